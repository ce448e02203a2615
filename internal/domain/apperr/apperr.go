// Package apperr defines the error taxonomy shared by guards, services and
// repositories. Errors carry a kind matched exhaustively at the HTTP
// boundary instead of a subclass hierarchy.
package apperr

import "errors"

// Kind classifies an error for boundary mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindQuotaExceeded
)

// String returns the stable wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAuthentication:
		return "authentication_error"
	case KindAuthorization:
		return "authorization_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindQuotaExceeded:
		return "quota_exceeded"
	default:
		return "internal_error"
	}
}

// Error is a kinded error with an optional structured payload.
type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind keeping cause for unwrapping.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches a structured payload and returns e.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Validation is a 400: malformed or missing input.
func Validation(message string) *Error { return New(KindValidation, message) }

// Authentication is a 401: bad, missing or expired credential.
func Authentication(message string) *Error { return New(KindAuthentication, message) }

// Authorization is a 403: valid identity, insufficient membership or role.
func Authorization(message string) *Error { return New(KindAuthorization, message) }

// NotFound is a 404.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Conflict is a 409: uniqueness violation.
func Conflict(message string) *Error { return New(KindConflict, message) }

// QuotaExceeded is a 403 specialized authorization failure.
func QuotaExceeded(message string) *Error { return New(KindQuotaExceeded, message) }

// Internal is a 500.
func Internal(message string) *Error { return New(KindInternal, message) }

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// DetailsOf extracts the structured payload from err, or nil.
func DetailsOf(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
