package dtos

import (
	"time"

	"variationutil/api/models/indexes"
	"variationutil/api/models/ingest"
)

type GeneralErrorResponseDto struct {
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Errors    []GeneralError `json:"errors"`
}

type GeneralError struct {
	Message string                 `json:"message"`
	Kind    string                 `json:"kind,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type ImportRequestsResponseDTO struct {
	Status   int                    `json:"status"`
	Message  string                 `json:"message"`
	Requests []ingest.ImportRequest `json:"requests"`
}

type VariationResponseDTO struct {
	Status  int                   `json:"status"`
	Message string                `json:"message"`
	Result  *indexes.StoredObject `json:"result"`
	// -1 when variants are not indexed
	IndexedVariants int `json:"indexedVariants"`
}
