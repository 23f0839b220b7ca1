package errors

import stdErrors "errors"

// ErrInvalidRequest marks malformed caller input such as an empty type or id.
var ErrInvalidRequest = stdErrors.New("invalid request")

// ErrNotFound marks a resource that exists neither upstream nor in the fallback data.
var ErrNotFound = stdErrors.New("not found")
