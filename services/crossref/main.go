// Package crossref checks the identifiers a VCF refers to against the
// assembly and sample metadata it is imported with. Every mismatch is
// collected before reporting.
package crossref

import (
	"strings"

	verrors "variationutil/api/errors"

	. "github.com/ahmetb/go-linq"
)

type Report struct {
	MissingChromosomes []string
	MissingGenotypes   []string
	DuplicateGenotypes []string
}

// ChromosomesInAssembly returns the VCF chromosomes absent from the
// assembly, in VCF order. Assembly contigs without variants are fine.
func ChromosomesInAssembly(vcfChromosomes []string, assemblyContigs []string) []string {
	known := map[string]bool{}
	From(assemblyContigs).ForEachT(func(c string) { known[c] = true })

	var missing []string
	From(vcfChromosomes).
		WhereT(func(c string) bool { return !known[c] }).
		Distinct().
		ToSlice(&missing)
	return missing
}

func NormalizeId(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// GenotypesInSamples returns the VCF genotype ids, as spelled in the VCF,
// that have no sample id once both sides are trimmed and upper-cased.
func GenotypesInSamples(vcfGenotypes []string, sampleIds []string) []string {
	known := map[string]bool{}
	From(sampleIds).ForEachT(func(s string) { known[NormalizeId(s)] = true })

	var missing []string
	From(vcfGenotypes).
		WhereT(func(g string) bool { return !known[NormalizeId(g)] }).
		ToSlice(&missing)
	return missing
}

// DuplicateIds lists ids declared more than once, once each, in order of
// their second appearance.
func DuplicateIds(ids []string) []string {
	seen := map[string]int{}
	var dups []string
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

// Check runs the chromosome check and, when sampleIds is non-nil, the
// genotype checks. Both run to completion regardless of the other.
func Check(vcfChromosomes, assemblyContigs, vcfGenotypes, sampleIds []string) Report {
	r := Report{MissingChromosomes: ChromosomesInAssembly(vcfChromosomes, assemblyContigs)}
	if sampleIds != nil {
		r.MissingGenotypes = GenotypesInSamples(vcfGenotypes, sampleIds)
		r.DuplicateGenotypes = DuplicateIds(vcfGenotypes)
	}
	return r
}

func (r Report) Ok() bool {
	return len(r.MissingChromosomes) == 0 && len(r.MissingGenotypes) == 0 && len(r.DuplicateGenotypes) == 0
}

// Err folds every mismatch of the report into one CrossReferenceError.
func (r Report) Err() error {
	if r.Ok() {
		return nil
	}

	var parts []string
	details := map[string]interface{}{}
	var all []string
	if len(r.MissingChromosomes) > 0 {
		parts = append(parts, "VCF contig ids not present in assembly: "+strings.Join(r.MissingChromosomes, ", "))
		details["missingChromosomes"] = r.MissingChromosomes
		all = append(all, r.MissingChromosomes...)
	}
	if len(r.MissingGenotypes) > 0 {
		parts = append(parts, "VCF genotypes not present in sample metadata: "+strings.Join(r.MissingGenotypes, ", "))
		details["missingGenotypes"] = r.MissingGenotypes
		all = append(all, r.MissingGenotypes...)
	}
	if len(r.DuplicateGenotypes) > 0 {
		parts = append(parts, "duplicated genotype ids in VCF: "+strings.Join(r.DuplicateGenotypes, ", "))
		details["duplicateGenotypes"] = r.DuplicateGenotypes
	}

	e := verrors.NewCrossReferenceError("identifiers", all).WithDetails(details)
	e.Message = strings.Join(parts, "; ")
	return e
}
