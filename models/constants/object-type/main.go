package objectType

import (
	"strings"

	"variationutil/api/models/constants"
)

const (
	Variations       constants.ObjectType = "KBaseGwasData.Variations"
	Genome           constants.ObjectType = "KBaseGenomes.Genome"
	Assembly         constants.ObjectType = "KBaseGenomeAnnotations.Assembly"
	AttributeMapping constants.ObjectType = "KBaseExperiments.AttributeMapping"
)

// Matches reports whether a stored, possibly versioned, type string
// (i.e. "KBaseGwasData.Variations-1.0") is of the given type.
func Matches(stored string, t constants.ObjectType) bool {
	return strings.Contains(stored, string(t))
}
