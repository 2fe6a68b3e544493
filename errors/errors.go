// Package errors provides the structured error kinds raised by the
// import pipeline. Every pipeline failure carries a kind, a message and
// optional details so the HTTP and CLI surfaces can report it uniformly.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindFormat           Kind = "FORMAT"
	KindTool             Kind = "TOOL"
	KindVersion          Kind = "VERSION"
	KindValidation       Kind = "VALIDATION"
	KindCrossReference   Kind = "CROSS_REFERENCE"
	KindInconsistentData Kind = "INCONSISTENT_DATA"
	KindStorage          Kind = "STORAGE"
	KindUnsupportedType  Kind = "UNSUPPORTED_TYPE"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound         = &PipelineError{Kind: KindNotFound}
	ErrFormat           = &PipelineError{Kind: KindFormat}
	ErrTool             = &PipelineError{Kind: KindTool}
	ErrVersion          = &PipelineError{Kind: KindVersion}
	ErrValidation       = &PipelineError{Kind: KindValidation}
	ErrCrossReference   = &PipelineError{Kind: KindCrossReference}
	ErrInconsistentData = &PipelineError{Kind: KindInconsistentData}
	ErrStorage          = &PipelineError{Kind: KindStorage}
	ErrUnsupportedType  = &PipelineError{Kind: KindUnsupportedType}
)

type PipelineError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %v", k, e.Details[k])
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target is a PipelineError of the same kind.
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithDetails returns a copy of the error with the given details merged in.
func (e *PipelineError) WithDetails(details map[string]interface{}) *PipelineError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

func New(kind Kind, format string, args ...interface{}) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(kind Kind, cause error, format string, args ...interface{}) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// NewToolError describes an external program that failed. The command line,
// exit code and captured output are kept so the failure can be reproduced.
func NewToolError(command string, exitCode int, output string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindTool,
		Message: fmt.Sprintf("command failed: %s", command),
		Details: map[string]interface{}{
			"command":  command,
			"exitCode": exitCode,
			"output":   output,
		},
		Cause: cause,
	}
}

// NewValidationError keeps the full validator log, untruncated.
func NewValidationError(tool string, log string, format string, args ...interface{}) *PipelineError {
	return &PipelineError{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
		Details: map[string]interface{}{
			"tool": tool,
			"log":  log,
		},
	}
}

// NewCrossReferenceError names every missing identifier at once.
func NewCrossReferenceError(what string, missing []string) *PipelineError {
	return &PipelineError{
		Kind:    KindCrossReference,
		Message: fmt.Sprintf("%s not found: %s", what, strings.Join(missing, ", ")),
		Details: map[string]interface{}{
			"missing": missing,
		},
	}
}

// GetKind extracts the kind from an error chain.
// Returns an empty kind if the error is not a PipelineError.
func GetKind(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsUserError reports whether the failure stems from the caller's input
// rather than from the service or its collaborators.
func IsUserError(err error) bool {
	switch GetKind(err) {
	case KindFormat, KindVersion, KindValidation, KindCrossReference, KindUnsupportedType:
		return true
	}
	return false
}
