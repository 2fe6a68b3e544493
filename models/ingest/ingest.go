package ingest

import (
	"github.com/google/uuid"
)

type State string

const (
	Queued  State = "Queued"
	Running State = "Running"
	Done    State = "Done"
	Error   State = "Error"
)

// ImportRequest tracks one variation import from submission to outcome.
type ImportRequest struct {
	Id           uuid.UUID   `json:"id"`
	Filename     string      `json:"filename"`
	State        State       `json:"state"`
	Message      string      `json:"message"`
	VariationRef string      `json:"variationRef,omitempty"`
	Report       interface{} `json:"report,omitempty"`
	CreatedAt    string      `json:"createdAt"`
	UpdatedAt    string      `json:"updatedAt"`
}

type ImportResponseDTO struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	State    State     `json:"state"`
	Message  string    `json:"message"`
}
