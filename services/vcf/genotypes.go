package vcf

import (
	"strconv"
	"strings"

	"variationutil/api/models/constants"
	p "variationutil/api/models/constants/ploidy"
	z "variationutil/api/models/constants/zygosity"
	"variationutil/api/models/indexes"
)

// ParseGenotype interprets a GT value against the record's alleles.
// Missing calls ('.') and unparseable allele indices yield an unknown
// zygosity with empty alleles.
func ParseGenotype(gt string, ref string, alts []string) indexes.Variation {
	var ploidy constants.Ploidy
	// as defined by https://samtools.github.io/hts-specs/VCFv4.1.pdf , page 25
	if !strings.Contains(gt, "|") && !strings.Contains(gt, "/") {
		ploidy = p.Haploid
	} else {
		ploidy = p.Diploid
	}

	var (
		zyg         constants.Zygosity
		phased      bool
		alleleLeft  = -1
		alleleRight = -1
	)

	switch ploidy {
	case p.Haploid:
		alleleLeft = alleleIndex(gt)

		if alleleLeft == -1 {
			zyg = z.Unknown
		} else if alleleLeft == 0 {
			zyg = z.Reference
		} else {
			// covers 1 and greater
			zyg = z.Alternate
		}

	case p.Diploid:
		phased = strings.Contains(gt, "|")

		var splits []string
		if phased {
			splits = strings.Split(gt, "|")
		} else {
			splits = strings.Split(gt, "/")
		}
		// TODO: handle triploid and higher; only the first two alleles are read
		alleleLeft = alleleIndex(splits[0])
		if len(splits) > 1 {
			alleleRight = alleleIndex(splits[1])
		}

		switch {
		case alleleLeft == -1 || alleleRight == -1:
			zyg = z.Unknown
		case alleleLeft != alleleRight:
			zyg = z.Heterozygous
		case alleleLeft == 0:
			zyg = z.HomozygousReference
		default:
			zyg = z.HomozygousAlternate
		}
	}

	variation := indexes.Variation{
		Genotype: indexes.Genotype{
			Phased:   phased,
			Zygosity: zyg,
		},
	}
	variation.Alleles.Left = resolveAllele(alleleLeft, ref, alts)
	if ploidy == p.Diploid {
		variation.Alleles.Right = resolveAllele(alleleRight, ref, alts)
	}
	return variation
}

func alleleIndex(s string) int {
	if s == "." || s == "" {
		return -1
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return -1
	}
	return i
}

// indexing ref/alt in a vcf row:
//
//	      0       1, 2, 3, ...
//	...  REF		ALT			...
//	...  G		CT,CTT,CTTT
func resolveAllele(i int, ref string, alts []string) string {
	switch {
	case i == 0:
		return ref
	case i > 0 && i <= len(alts):
		return alts[i-1]
	default:
		return ""
	}
}
