package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how it should surface to a caller.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthenticated
	KindUnauthorized
	KindNotFound
	KindUpstream
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_failure"
	case KindConfiguration:
		return "configuration_error"
	default:
		return "internal_error"
	}
}

// Common error values shared across packages
var (
	// Token errors
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrAudienceMismatch   = errors.New("token audience mismatch")
	ErrCreatorMismatch    = errors.New("token issued for a different creator")
	ErrNoCredential       = errors.New("no credential presented")
	ErrInvalidRedirectURI = errors.New("invalid redirect URI")

	// Lookup errors
	ErrCreatorNotFound = errors.New("creator not registered")
)

// Error carries a Kind, a stable machine-readable Code and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap classifies err. A nil err still yields an error so callers can use it as
// a terminal value.
func Wrap(kind Kind, code string, err error, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return KindInternal.String()
}

// MessageOf returns a message safe to show to an end user.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "An internal error occurred"
}

// HTTPStatus maps a Kind to the status code used by JSON and HTML responses.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
