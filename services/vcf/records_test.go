package vcf

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	z "variationutil/api/models/constants/zygosity"
	"variationutil/api/models/indexes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotatedVcf = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n" +
	"chr1\t100\trs1\tA\tT\t50\tPASS\tDP=3;ANN=T|missense_variant|MODERATE|GENE1|GENE1|transcript|TR1|protein_coding|1/2|c.10A>T|p.Lys4Met|10/100|10/100|4/33||\tGT:DP\t0/1:4\t1|1:6\n" +
	"chr1\t200\t.\tG\tC,GA\t50\tq10\tDP=4;ANN=C|intron_variant|MODIFIER|GENE1|GENE1|transcript|TR1|protein_coding|1/2|c.20+5G>C||||||,GA|stop_gained|HIGH|GENE2|GENE2|transcript|TR2|protein_coding|2/2|c.30G>GA|p.Trp10*|||||\tGT\t./.\t0/2\n" +
	"chr2\t50\t.\tC\tT\t50\tPASS\tDP=9\tGT\t0\t1\n"

func writeAnnotated(t *testing.T) string {
	p := filepath.Join(t.TempDir(), "ann.vcf")
	require.NoError(t, os.WriteFile(p, []byte(annotatedVcf), 0644))
	return p
}

func drain(t *testing.T, r *RecordReader) []*Record {
	var out []*Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestParseAnnotations(t *testing.T) {
	t.Run("allow-listed effects only", func(t *testing.T) {
		anns := ParseAnnotations("DP=4;ANN=C|intron_variant|MODIFIER|G1|G1|transcript|TR1|protein_coding|1/2|c.20+5G>C|||,GA|stop_gained|HIGH|G2|G2|transcript|TR2|protein_coding|2/2|c.30G>GA|p.Trp10*")
		assert.Equal(t, []indexes.Annotation{{
			Allele:        "GA",
			Effect:        "stop_gained",
			GeneId:        "G2",
			TranscriptId:  "TR2",
			BaseChange:    "c.30G>GA",
			ProteinChange: "p.Trp10*",
		}}, anns)
	})

	t.Run("no ANN field", func(t *testing.T) {
		assert.Empty(t, ParseAnnotations("DP=4;AF=0.5"))
	})

	t.Run("short entries are skipped", func(t *testing.T) {
		assert.Empty(t, ParseAnnotations("ANN=T|missense_variant|MODERATE"))
	})
}

func TestRecordReader(t *testing.T) {
	t.Run("with calls", func(t *testing.T) {
		r, err := NewRecordReader(writeAnnotated(t), true)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, []string{"S1", "S2"}, r.Samples())
		recs := drain(t, r)
		require.Len(t, recs, 3)

		first := recs[0]
		assert.Equal(t, Locus{Chrom: "chr1", Pos: 100}, first.Locus)
		assert.Equal(t, "rs1", first.Id)
		assert.Equal(t, []string{"T"}, first.Alts)
		require.Len(t, first.Annotations, 1)
		assert.Equal(t, "missense_variant", first.Annotations[0].Effect)
		assert.Equal(t, "p.Lys4Met", first.Annotations[0].ProteinChange)

		require.Len(t, first.Calls, 2)
		assert.Equal(t, "S1", first.Calls[0].Id)
		assert.Equal(t, z.Heterozygous, first.Calls[0].Variation.Genotype.Zygosity)
		assert.Equal(t, indexes.AllelePair{Left: "A", Right: "T"}, first.Calls[0].Variation.Alleles)
		assert.True(t, first.Calls[1].Variation.Genotype.Phased)
		assert.Equal(t, z.HomozygousAlternate, first.Calls[1].Variation.Genotype.Zygosity)

		second := recs[1]
		assert.Equal(t, "q10", second.Filter)
		assert.Equal(t, z.Unknown, second.Calls[0].Variation.Genotype.Zygosity)
		assert.Equal(t, indexes.AllelePair{Left: "G", Right: "GA"}, second.Calls[1].Variation.Alleles)

		third := recs[2]
		assert.Empty(t, third.Annotations)
		assert.Equal(t, z.Reference, third.Calls[0].Variation.Genotype.Zygosity)
		assert.Equal(t, z.Alternate, third.Calls[1].Variation.Genotype.Zygosity)
	})

	t.Run("without calls", func(t *testing.T) {
		r, err := NewRecordReader(writeAnnotated(t), false)
		require.NoError(t, err)
		defer r.Close()

		for _, rec := range drain(t, r) {
			assert.Nil(t, rec.Calls)
		}
	})

	t.Run("stream is not restartable", func(t *testing.T) {
		r, err := NewRecordReader(writeAnnotated(t), false)
		require.NoError(t, err)
		defer r.Close()

		drain(t, r)
		_, err = r.Next()
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestShouldIncludeCalls(t *testing.T) {
	assert.True(t, ShouldIncludeCalls(1<<40, 1, 1024))
	assert.True(t, ShouldIncludeCalls(100, 500, 1024))
	assert.False(t, ShouldIncludeCalls(4096, 500, 1024))
}

func TestParseGenotype(t *testing.T) {
	cases := []struct {
		gt       string
		zygosity interface{}
		alleles  indexes.AllelePair
	}{
		{"0/0", z.HomozygousReference, indexes.AllelePair{Left: "A", Right: "A"}},
		{"0|1", z.Heterozygous, indexes.AllelePair{Left: "A", Right: "C"}},
		{"2/2", z.HomozygousAlternate, indexes.AllelePair{Left: "G", Right: "G"}},
		{"./.", z.Unknown, indexes.AllelePair{}},
		{"1", z.Alternate, indexes.AllelePair{Left: "C"}},
		{"0", z.Reference, indexes.AllelePair{Left: "A"}},
		{"7/0", z.Heterozygous, indexes.AllelePair{Left: "", Right: "A"}},
	}
	for _, c := range cases {
		v := ParseGenotype(c.gt, "A", []string{"C", "G"})
		assert.Equal(t, c.zygosity, v.Genotype.Zygosity, c.gt)
		assert.Equal(t, c.alleles, v.Alleles, c.gt)
	}
}
