// Package apperr defines the error kinds the API layers map to responses.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream registry unavailable")
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsClientError reports whether err was caused by the request itself rather
// than by the registry.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument)
}
