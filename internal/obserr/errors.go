// Package obserr defines the typed errors surfaced by the engine's core
// components. The HTTP surface is the only place that translates these into
// status codes (see internal/httpapi).
package obserr

import "fmt"

// NotFoundError indicates a requested node or artifact id does not exist.
type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates a caller-supplied parameter is invalid (bad
// path, partial explicit artifact pair, unknown cache action, etc).
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// ArtifactLoadError indicates the manifest or catalog could not be read or
// parsed.
type ArtifactLoadError struct{ Message string }

func (e *ArtifactLoadError) Error() string { return e.Message }

// ConflictError indicates an operation could not complete because of the
// current state (reserved for future admin operations).
type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrArtifactLoad creates an ArtifactLoadError with a formatted message.
func ErrArtifactLoad(format string, args ...interface{}) *ArtifactLoadError {
	return &ArtifactLoadError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
