package errors

import (
	"errors"
	"net/http"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/models/dtos"
)

/*
	Utility functions to facillitate returning error responses to HTTP clients
*/

// -- Simplest: 1 error with message
func CreateSimpleBadRequest(message string) dtos.GeneralErrorResponseDto {
	return create(http.StatusBadRequest, dtos.GeneralError{Message: message})
}
func CreateSimpleNotFound(message string) dtos.GeneralErrorResponseDto {
	return create(http.StatusNotFound, dtos.GeneralError{Message: message})
}
func CreateSimpleInternalServerError(message string) dtos.GeneralErrorResponseDto {
	return create(http.StatusInternalServerError, dtos.GeneralError{Message: message})
}

// --

// StatusOf maps a pipeline error kind onto an HTTP status.
func StatusOf(err error) int {
	switch {
	case verrors.GetKind(err) == verrors.KindNotFound:
		return http.StatusNotFound
	case verrors.IsUserError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// FromError builds the response for err, keeping its kind and details.
func FromError(err error) (int, dtos.GeneralErrorResponseDto) {
	status := StatusOf(err)
	ge := dtos.GeneralError{Message: err.Error()}

	var pe *verrors.PipelineError
	if errors.As(err, &pe) {
		ge.Message = pe.Message
		ge.Kind = string(pe.Kind)
		ge.Details = pe.Details
	}
	return status, create(status, ge)
}

func create(status int, ge dtos.GeneralError) dtos.GeneralErrorResponseDto {
	return dtos.GeneralErrorResponseDto{
		Code:      status,
		Message:   http.StatusText(status),
		Timestamp: time.Now(),
		Errors:    []dtos.GeneralError{ge},
	}
}
