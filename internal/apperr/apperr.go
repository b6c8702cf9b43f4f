package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// KindUnknown is what KindOf returns for errors that never went through this package.
	KindUnknown Kind = iota
	// KindValidation means the request is missing required input, never retried.
	KindValidation
	// KindAuth means the portal rejected the credentials or the login state could not be confirmed.
	KindAuth
	// KindTransient covers timeouts, detached pages, aborted navigations and refused connections.
	KindTransient
	// KindStructural means the expected markup is absent and no empty-state marker was recognized.
	KindStructural
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	case KindStructural:
		return "structural"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) Kind {
	switch s {
	case "validation":
		return KindValidation
	case "auth":
		return KindAuth
	case "transient":
		return KindTransient
	case "structural":
		return KindStructural
	default:
		return KindUnknown
	}
}

var (
	ErrTimeout    = errors.New("timed out")
	ErrNavigation = errors.New("navigation failed")
	ErrDetached   = errors.New("page is closed or detached")
)

// Error carries a kind for programmatic handling and a Russian message for the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return newError(KindValidation, message, nil)
}

func Auth(message string, err error) *Error {
	return newError(KindAuth, message, err)
}

func Transient(message string, err error) *Error {
	return newError(KindTransient, message, err)
}

func Structural(message string, err error) *Error {
	return newError(KindStructural, message, err)
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of err, falling back to fallback.
func MessageOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// Retryable reports whether the caller may retry err with backoff.
func Retryable(err error) bool {
	return KindOf(err) == KindTransient
}

func StatusCode(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
