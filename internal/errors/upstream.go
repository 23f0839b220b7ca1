package errors

import (
	stdErrors "errors"
	"fmt"
)

// UpstreamError reports that the catalog provider could not be reached or
// answered with a non-2xx status. StatusCode is zero for transport failures.
type UpstreamError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: upstream responded with status %d", e.Op, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: upstream unavailable", e.Op, e.URL)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates an UpstreamError for the given operation.
func NewUpstreamError(op, url string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Op: op, URL: url, StatusCode: statusCode, Err: err}
}

// IsUpstreamError reports whether err is an UpstreamError (even when wrapped).
func IsUpstreamError(err error) bool {
	var upstreamErr *UpstreamError
	return stdErrors.As(err, &upstreamErr)
}
