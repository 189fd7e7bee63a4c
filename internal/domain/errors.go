package domain

import "errors"

var (
	// ErrValidation marks missing or malformed request fields.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown session or record.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate start or an operation invalid for the current status.
	ErrConflict = errors.New("conflict")
	// ErrUpstreamUnavailable marks an upstream connect or send failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPersistenceFailure marks a failed durable write during finalization.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrServiceUnavailable marks an upstream that is not configured at all.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ErrorCode returns a stable machine-readable code for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrPersistenceFailure):
		return "persistence_failure"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	}
	return "internal_error"
}
