// Package apperr defines the error kinds shared by the scheduling core.
//
// Every error that crosses a package boundary matches exactly one kind with
// errors.Is. Package level sentinels wrap a kind so callers can test either
// the precise cause (doctor.ErrDoctorNotFound) or the class (ErrNotFound).
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAmbiguous     = fmt.Errorf("ambiguous reference: %w", ErrNotFound)
	ErrConflict      = errors.New("conflict")
	ErrUpstream      = errors.New("upstream failure")
	ErrConfiguration = errors.New("configuration error")
)

// Error attaches a kind and the failing operation to a cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// E builds an *Error. A nil err yields an error carrying only the kind.
func E(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil && e.Op == "":
		return e.Kind.Error()
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code returns the stable string code for err's kind. It is used in tool
// results and HTTP error bodies.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

// IsDomain reports whether err is a client facing domain outcome rather than
// an infrastructure failure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict)
}
