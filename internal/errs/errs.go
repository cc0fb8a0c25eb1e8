// Package errs defines the error taxonomy shared by the domain packages.
// Every failure a caller can act on is an *Error carrying a Kind; the HTTP
// layer maps the Kind to a status code and the Code to the response body.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	KindFatal Kind = iota
	KindValidation
	KindNotFound
	KindBusinessRule
	KindUnauthorized
	KindConflict
	KindConcurrency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindConcurrency:
		return "concurrency"
	default:
		return "fatal"
	}
}

// Error is a classified domain error. Sentinels are created once with New and
// compared with errors.Is; callers add detail by wrapping with fmt.Errorf.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// New returns a classified error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds an ad-hoc validation error for input problems that do not
// deserve a dedicated sentinel.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_argument", Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain. Unclassified
// errors are fatal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// CodeOf reports the machine readable code of err, "internal" when err is not
// classified.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
