package errors

import (
	stdErrors "errors"
	"fmt"
)

// RatingsError represents a failed ratings provider lookup. The ratings client
// never returns it to callers; it is logged and cached as an absent result.
type RatingsError struct {
	Key    string
	Reason string
	Err    error
}

func (e *RatingsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ratings unavailable for %s: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("ratings unavailable for %s: %s", e.Key, e.Reason)
}

func (e *RatingsError) Unwrap() error {
	return e.Err
}

// NewRatingsError creates a RatingsError for the given cache key.
func NewRatingsError(key, reason string, err error) *RatingsError {
	return &RatingsError{Key: key, Reason: reason, Err: err}
}

// IsRatingsError reports whether err is a RatingsError (even when wrapped).
func IsRatingsError(err error) bool {
	var ratingsErr *RatingsError
	return stdErrors.As(err, &ratingsErr)
}

// RenderError is returned when a poster overlay cannot be produced.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string {
	return "render overlay: " + e.Reason
}

// NewRenderError creates a RenderError with the given reason.
func NewRenderError(reason string) *RenderError {
	return &RenderError{Reason: reason}
}

// IsRenderError reports whether err is a RenderError (even when wrapped).
func IsRenderError(err error) bool {
	var renderErr *RenderError
	return stdErrors.As(err, &renderErr)
}
