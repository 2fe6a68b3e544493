package sniffer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	verrors "variationutil/api/errors"
	"variationutil/api/models/constants/encoding"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallVcf = "##fileformat=VCFv4.1\n" +
	"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Total Depth\">\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\n" +
	"chr1\t100\t.\tA\tT\t50\tPASS\tDP=3\tGT\t0/1\n"

func writeText(t *testing.T, name string, content string) string {
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func writeGzip(t *testing.T, name string, content string) string {
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return p
}

func TestSniff(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		enc, err := Sniff(writeText(t, "small.vcf", smallVcf))
		assert.NoError(t, err)
		assert.Equal(t, encoding.Text, enc)
	})

	t.Run("gzip", func(t *testing.T) {
		enc, err := Sniff(writeGzip(t, "small.vcf.gz", smallVcf))
		assert.NoError(t, err)
		assert.Equal(t, encoding.Gzip, enc)
	})

	t.Run("is deterministic", func(t *testing.T) {
		p := writeGzip(t, "small.vcf.gz", smallVcf)
		first, err1 := Sniff(p)
		second, err2 := Sniff(p)
		assert.NoError(t, err1)
		assert.NoError(t, err2)
		assert.Equal(t, first, second)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Sniff(filepath.Join(t.TempDir(), "nope.vcf"))
		assert.ErrorIs(t, err, verrors.ErrNotFound)
	})

	t.Run("gzip without header within bound", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < MaxHeaderScanLines+1; i++ {
			fmt.Fprintf(&b, "##meta=%d\n", i)
		}
		b.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n")

		_, err := Sniff(writeGzip(t, "late.vcf.gz", b.String()))
		assert.ErrorIs(t, err, verrors.ErrFormat)
		assert.Contains(t, err.Error(), "no valid VCF header line found")
	})

	t.Run("text without header", func(t *testing.T) {
		_, err := Sniff(writeText(t, "notes.txt", "just some notes\nnothing else\n"))
		assert.ErrorIs(t, err, verrors.ErrFormat)
	})

	t.Run("binary content is unsupported", func(t *testing.T) {
		enc, err := Sniff(writeText(t, "blob.bin", "PK\x03\x04\x00\x00binary"))
		assert.ErrorIs(t, err, verrors.ErrFormat)
		assert.Equal(t, encoding.Unsupported, enc)
	})
}
