package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Business kinds (validation, not found, conflict, gone) carry a
// reason that is safe to show to the caller; infrastructure and unexpected
// failures are reported opaquely.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrInfrastructure = errors.New("infrastructure error")
	ErrUnexpected     = errors.New("unexpected error")
)

type kindError struct {
	kind   error
	reason string
	cause  error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return e.reason + ": " + e.cause.Error()
	}
	return e.reason
}

func (e *kindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, reason: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newKind(ErrValidation, format, args...) }
func NotFound(format string, args ...any) error   { return newKind(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) error   { return newKind(ErrConflict, format, args...) }
func Gone(format string, args ...any) error       { return newKind(ErrGone, format, args...) }

// Infrastructure wraps a store or provider failure.
func Infrastructure(cause error, format string, args ...any) error {
	return &kindError{kind: ErrInfrastructure, reason: fmt.Sprintf(format, args...), cause: cause}
}

// Unexpected wraps err unless it already carries a kind.
func Unexpected(err error, context string) error {
	if err == nil || IsTyped(err) {
		return err
	}
	return &kindError{kind: ErrUnexpected, reason: context, cause: err}
}

// IsTyped reports whether err carries one of the kinds above.
func IsTyped(err error) bool {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrGone, ErrInfrastructure, ErrUnexpected} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// IsBusiness reports whether err is a caller-facing failure.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrGone)
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrGone):
		return http.StatusGone
	case errors.Is(err, ErrInfrastructure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrGone):
		return "GONE"
	case errors.Is(err, ErrInfrastructure):
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Public returns the message that may be sent to the client.
func Public(err error) string {
	if IsBusiness(err) {
		var ke *kindError
		if errors.As(err, &ke) {
			return ke.reason
		}
		return err.Error()
	}
	if errors.Is(err, ErrInfrastructure) {
		return "Service temporarily unavailable"
	}
	return "Failed to process request"
}
