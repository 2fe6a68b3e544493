package zygosity

import (
	"testing"

	"variationutil/api/models/constants"

	"github.com/stretchr/testify/assert"
)

func TestStringOrIntToZygosity(t *testing.T) {
	for zyg := Heterozygous; zyg <= Alternate; zyg++ {
		assert.Equal(t, zyg, StringOrIntToZygosity(ZygosityToString(zyg)))
	}

	cases := []struct {
		in   string
		want constants.Zygosity
	}{
		{"heterozygous", Heterozygous},
		{"4", Reference},
		{"0", Unknown},
		{"9", Unknown},
		{"UNKNOWN", Unknown},
		{"", Unknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StringOrIntToZygosity(c.in), c.in)
	}
}
