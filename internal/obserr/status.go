package obserr

import (
	"errors"
	"net/http"
)

// HTTPStatusFromError maps a typed error from this package to an HTTP status
// code. Errors that are not one of the typed errors here map to 500.
func HTTPStatusFromError(err error) int {
	var notFound *NotFoundError
	var validation *ValidationError
	var artifactLoad *ArtifactLoadError
	var conflict *ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &artifactLoad):
		return http.StatusServiceUnavailable
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
