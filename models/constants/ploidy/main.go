package ploidy

import (
	"variationutil/api/models/constants"
)

const (
	Unknown constants.Ploidy = iota

	Haploid
	Diploid
)
