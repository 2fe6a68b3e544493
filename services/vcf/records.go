package vcf

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models/constants/effect"
	"variationutil/api/models/indexes"
)

type (
	Locus struct {
		Chrom string `json:"chrom"`
		Pos   int    `json:"pos"`
	}

	Record struct {
		Locus
		Id          string               `json:"id"`
		Ref         string               `json:"ref"`
		Alts        []string             `json:"alts"`
		Filter      string               `json:"filter"`
		Annotations []indexes.Annotation `json:"annotations"`
		Calls       []indexes.Sample     `json:"calls,omitempty"`
	}

	// RecordReader is a single-pass, non-restartable stream of body
	// records.
	RecordReader struct {
		rc           io.ReadCloser
		lr           *lineReader
		samples      []string
		includeCalls bool
		pending      string
	}
)

// ShouldIncludeCalls gates per-sample calls: only single-sample files or
// files smaller than threshold bytes carry them downstream.
func ShouldIncludeCalls(fileSize int64, numSamples int, threshold int64) bool {
	return numSamples == 1 || fileSize < threshold
}

// NewRecordReaderForFile applies the calls gate using the file's size.
func NewRecordReaderForFile(path string, numSamples int, threshold int64) (*RecordReader, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindNotFound, err, "%s does not exist", path)
	}
	return NewRecordReader(path, ShouldIncludeCalls(fi.Size(), numSamples, threshold))
}

func NewRecordReader(path string, includeCalls bool) (*RecordReader, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}

	r := &RecordReader{rc: rc, lr: newLineReader(rc), includeCalls: includeCalls}
	for {
		line, err := r.lr.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			rc.Close()
			return nil, err
		}
		if strings.HasPrefix(line, "#CHROM") {
			if cols := strings.Split(line, "\t"); len(cols) > 9 {
				r.samples = cols[9:]
			}
			break
		}
		if line != "" && line[0] != '#' {
			r.pending = line
			break
		}
	}
	return r, nil
}

func (r *RecordReader) Samples() []string {
	return r.samples
}

func (r *RecordReader) IncludesCalls() bool {
	return r.includeCalls
}

// Next returns the following record, or io.EOF once the stream is drained.
func (r *RecordReader) Next() (*Record, error) {
	for {
		var line string
		if r.pending != "" {
			line, r.pending = r.pending, ""
		} else {
			var err error
			if line, err = r.lr.next(); err != nil {
				return nil, err
			}
		}
		if line == "" || line[0] == '#' {
			continue
		}
		return r.parseRecord(line)
	}
}

func (r *RecordReader) Close() error {
	return r.rc.Close()
}

func (r *RecordReader) parseRecord(line string) (*Record, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < 5 {
		return nil, verrors.New(verrors.KindFormat, "malformed record at line %d: %d columns", r.lr.line, len(cols))
	}

	pos, err := strconv.Atoi(cols[1])
	if err != nil {
		return nil, verrors.Wrap(verrors.KindFormat, err, "malformed position at line %d", r.lr.line)
	}

	rec := &Record{
		Locus: Locus{Chrom: cols[0], Pos: pos},
		Id:    cols[2],
		Ref:   cols[3],
		Alts:  strings.Split(cols[4], ","),
	}
	if len(cols) > 6 {
		rec.Filter = cols[6]
	}
	if len(cols) > 7 {
		rec.Annotations = ParseAnnotations(cols[7])
	}

	if r.includeCalls && len(cols) > 9 {
		gtIndex := -1
		for i, f := range strings.Split(cols[8], ":") {
			if f == "GT" {
				gtIndex = i
				break
			}
		}
		if gtIndex >= 0 {
			for i, sampleCol := range cols[9:] {
				values := strings.Split(sampleCol, ":")
				if gtIndex >= len(values) {
					continue
				}
				id := ""
				if i < len(r.samples) {
					id = r.samples[i]
				}
				rec.Calls = append(rec.Calls, indexes.Sample{
					Id:        id,
					Variation: ParseGenotype(values[gtIndex], rec.Ref, rec.Alts),
				})
			}
		}
	}

	return rec, nil
}

// ParseAnnotations extracts allow-listed effects from the ANN sub-field
// of an INFO column. Entries with fewer than eleven fields are skipped.
func ParseAnnotations(info string) []indexes.Annotation {
	var ann string
	for _, field := range strings.Split(info, ";") {
		if strings.HasPrefix(field, "ANN=") {
			ann = strings.TrimPrefix(field, "ANN=")
		}
	}
	if ann == "" {
		return nil
	}

	var out []indexes.Annotation
	for _, entry := range strings.Split(ann, ",") {
		eff := strings.Split(entry, "|")
		if len(eff) < 11 || !effect.IsAllowed(eff[1]) {
			continue
		}
		out = append(out, indexes.Annotation{
			Allele:        eff[0],
			Effect:        eff[1],
			GeneId:        eff[3],
			TranscriptId:  eff[6],
			BaseChange:    eff[9],
			ProteinChange: eff[10],
		})
	}
	return out
}
