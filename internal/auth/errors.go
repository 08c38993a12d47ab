package auth

import "errors"

// Flow errors returned by Service.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

// Gate errors. Every authentication failure wraps ErrUnauthenticated
// together with the internal kind, so both errors.Is(err, ErrUnauthenticated)
// and errors.Is(err, ErrExpired) hold for an expired token.
var (
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrInactiveAccount = errors.New("inactive user")
	ErrMissingToken    = errors.New("missing bearer token")
	ErrSubjectNotFound = errors.New("token subject not found")
)

// Token decode errors.
var (
	ErrBadSignature = errors.New("token signature or structure invalid")
	ErrWrongType    = errors.New("token type is not access")
	ErrExpired      = errors.New("token expired")
)

type unauthenticatedError struct{ kind error }

func (e unauthenticatedError) Error() string { return ErrUnauthenticated.Error() + ": " + e.kind.Error() }

func (e unauthenticatedError) Unwrap() []error { return []error{ErrUnauthenticated, e.kind} }

func unauthenticated(kind error) error { return unauthenticatedError{kind: kind} }

// failureKind returns a short label for logs and metrics. It never
// contains token material.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrWrongType):
		return "wrong_type"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrSubjectNotFound):
		return "not_found"
	case errors.Is(err, ErrInactiveAccount):
		return "inactive"
	default:
		return "error"
	}
}
