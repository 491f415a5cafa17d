package restclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// HTTPError represents an HTTP-level error (non-2xx response).
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsTransient returns true if the status points at a server-side problem
// the caller may retry later.
func (e *HTTPError) IsTransient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Error wraps an API failure with the operation that caused it.
type Error struct {
	// Op is the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps a request failure onto the model error taxonomy. resource
// and id name the entity for NOT_FOUND messages.
func classify(op, resource, id string, err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusNotFound:
			nf := model.NewNotFoundError(resource, id)
			nf.Err = err
			return nf
		case httpErr.IsTransient():
			return model.NewUnavailableError(op, err)
		default:
			return &Error{Op: op, Err: err}
		}
	}
	return model.NewUnavailableError(op, err)
}

// IsHTTPStatus reports whether err carries an HTTP response with status.
func IsHTTPStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}
