package encoding

import (
	"variationutil/api/models/constants"
)

const (
	Text        constants.Encoding = "text"
	Gzip        constants.Encoding = "gzip"
	Unsupported constants.Encoding = "unsupported"
)
