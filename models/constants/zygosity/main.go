package zygosity

import (
	"strconv"
	"strings"

	"variationutil/api/models/constants"
)

const (
	Unknown constants.Zygosity = iota
	// Diploid or higher
	Heterozygous
	HomozygousReference
	HomozygousAlternate

	// Haploid (deliberately below diploid for sequential id'ing purposes)
	Reference
	Alternate
)

func IsKnown(value int) bool {
	return value > int(Unknown) && value <= int(Alternate)
}

func ZygosityToString(zyg constants.Zygosity) string {
	switch zyg {
	// Haploid
	case Reference:
		return "REFERENCE"
	case Alternate:
		return "ALTERNATE"

	// Diploid or higher
	case Heterozygous:
		return "HETEROZYGOUS"
	case HomozygousReference:
		return "HOMOZYGOUS_REFERENCE"
	case HomozygousAlternate:
		return "HOMOZYGOUS_ALTERNATE"
	default:
		return "UNKNOWN"
	}
}

// StringOrIntToZygosity reads either the name written by ZygosityToString
// or the numeric value. Anything else is Unknown.
func StringOrIntToZygosity(value string) constants.Zygosity {
	if i, err := strconv.Atoi(value); err == nil {
		if IsKnown(i) {
			return constants.Zygosity(i)
		}
		return Unknown
	}
	for zyg := Heterozygous; zyg <= Alternate; zyg++ {
		if strings.EqualFold(value, ZygosityToString(zyg)) {
			return zyg
		}
	}
	return Unknown
}
