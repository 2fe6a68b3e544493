package vcf

import (
	"errors"
	"io"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"
)

type (
	ContigTally struct {
		ContigId      string `json:"contig_id"`
		TotalVariants int    `json:"totalvariants"`
		PassVariants  int    `json:"passvariants"`
	}

	// VcfInfo aggregates one pass over a VCF. ChromosomeIds keeps the
	// order contigs were first seen in the body.
	VcfInfo struct {
		Version       string
		Header        []indexes.HeaderEntry
		ChromosomeIds []string
		Contigs       map[string]*ContigTally
		GenotypeIds   []string
		TotalVariants int
	}
)

// OrderedContigs returns the tallies in first-seen order.
func (v *VcfInfo) OrderedContigs() []ContigTally {
	out := make([]ContigTally, 0, len(v.ChromosomeIds))
	for _, id := range v.ChromosomeIds {
		out = append(out, *v.Contigs[id])
	}
	return out
}

// Parse streams the VCF at path once.
func Parse(path string) (*VcfInfo, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ParseReader(rc)
}

// ParseReader aggregates a decompressed VCF stream. Only the current line
// is held in memory.
func ParseReader(r io.Reader) (*VcfInfo, error) {
	info := &VcfInfo{
		Header:        []indexes.HeaderEntry{},
		ChromosomeIds: []string{},
		Contigs:       map[string]*ContigTally{},
		GenotypeIds:   []string{},
	}

	lr := newLineReader(r)
	for {
		line, err := lr.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if line == "" {
			continue
		}

		if line[0] == '#' {
			switch {
			case strings.HasPrefix(line, "##fileformat="):
				info.Version = strings.TrimSpace(strings.TrimPrefix(line, "##fileformat="))
			case strings.HasPrefix(line, "#CHROM"):
				cols := strings.Split(line, "\t")
				if len(cols) > 9 {
					info.GenotypeIds = append(info.GenotypeIds, cols[9:]...)
				}
			default:
				if category, ok := metaCategory(line); ok {
					info.Header = append(info.Header, ParseMetaLine(category, line))
				}
			}
			continue
		}

		cols := strings.SplitN(line, "\t", 8)
		if len(cols) < 2 {
			return nil, verrors.New(verrors.KindFormat, "malformed record at line %d: expected tab separated columns", lr.line)
		}

		chrom := cols[0]
		tally, seen := info.Contigs[chrom]
		if !seen {
			tally = &ContigTally{ContigId: chrom}
			info.Contigs[chrom] = tally
			info.ChromosomeIds = append(info.ChromosomeIds, chrom)
		}
		tally.TotalVariants++
		if len(cols) > 6 && cols[6] == "PASS" {
			tally.PassVariants++
		}
		info.TotalVariants++
	}

	return info, nil
}
