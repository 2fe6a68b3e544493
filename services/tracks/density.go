package tracks

import (
	"bufio"
	"fmt"
	"io"
	"os"

	verrors "variationutil/api/errors"
	"variationutil/api/services/metadata"
	"variationutil/api/services/vcf"

	. "github.com/ahmetb/go-linq"
)

// DensityBin is one bedGraph row.
type DensityBin struct {
	Chrom string
	Start int64
	End   int64
	Count int
}

type binKey struct {
	chrom string
	bin   int64
}

// DensityBins counts variants per floor(pos/binSize) in a single pass over
// the VCF. The last bin of a contig ends at the contig length. Rows are
// sorted by contig name, then start.
func DensityBins(vcfPath string, binSize int64, lengths map[string]int64) ([]DensityBin, error) {
	if binSize <= 0 {
		return nil, verrors.New(verrors.KindInconsistentData, "bin size must be positive, got %d", binSize)
	}

	reader, err := vcf.NewRecordReader(vcfPath, false)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	counts := map[binKey]int{}
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		length, ok := lengths[rec.Chrom]
		if !ok || length <= 0 {
			return nil, verrors.New(verrors.KindInconsistentData, "no length for contig %s", rec.Chrom)
		}
		bin := int64(rec.Pos) / binSize
		// a bin starting at or past the contig end folds into the last one
		if last := (length - 1) / binSize; bin > last {
			bin = last
		}
		counts[binKey{rec.Chrom, bin}]++
	}

	bins := make([]DensityBin, 0, len(counts))
	for k, n := range counts {
		length := lengths[k.chrom]
		start := k.bin * binSize
		end := start + binSize
		if end > length {
			end = length
		}
		bins = append(bins, DensityBin{Chrom: k.chrom, Start: start, End: end, Count: n})
	}

	var sorted []DensityBin
	From(bins).
		OrderByT(func(b DensityBin) string { return b.Chrom }).
		ThenByT(func(b DensityBin) int64 { return b.Start }).
		ToSlice(&sorted)
	return sorted, nil
}

func WriteBedGraph(path string, bins []DensityBin) error {
	return writeLines(path, func(w *bufio.Writer) {
		for _, b := range bins {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", b.Chrom, b.Start, b.End, b.Count)
		}
	})
}

// WriteChromSizes writes the two column contig length file bedGraphToBigWig
// reads.
func WriteChromSizes(path string, contigs []metadata.Contig) error {
	return writeLines(path, func(w *bufio.Writer) {
		for _, c := range contigs {
			fmt.Fprintf(w, "%s\t%d\n", c.ContigId, c.Length)
		}
	})
}

func writeLines(path string, fill func(w *bufio.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", path)
	}
	w := bufio.NewWriter(f)
	fill(w)
	if err := w.Flush(); err != nil {
		f.Close()
		return verrors.Wrap(verrors.KindStorage, err, "unable to write %s", path)
	}
	return f.Close()
}
