package effect

import (
	"variationutil/api/models/constants"
)

const (
	SynonymousVariant constants.Effect = "synonymous_variant"
	MissenseVariant   constants.Effect = "missense_variant"
	FrameshiftVariant constants.Effect = "frameshift_variant"
	StopGained        constants.Effect = "stop_gained"
	StopLost          constants.Effect = "stop_lost"
)

// Effects retained from ANN annotations; everything else is dropped.
var AllowList = []constants.Effect{
	SynonymousVariant,
	MissenseVariant,
	FrameshiftVariant,
	StopGained,
	StopLost,
}

func IsAllowed(e string) bool {
	for _, a := range AllowList {
		if string(a) == e {
			return true
		}
	}
	return false
}
