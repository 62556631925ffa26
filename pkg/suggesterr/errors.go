// Package suggesterr defines the error taxonomy shared across the
// suggestion engine. Every error the engine returns across a package
// boundary carries a Kind so callers can branch on errors.As without
// parsing messages.
package suggesterr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error by the condition that produced it.
type Kind int

const (
	// InvalidPhrase means ingest input failed the normalization contract
	// (empty after normalization, or over the max phrase length).
	InvalidPhrase Kind = iota
	// InvalidPrefix means a lookup prefix failed validation.
	InvalidPrefix
	// InvalidQuery means a request's shape or parameters are malformed
	// (negative limit, unknown cursor, etc).
	InvalidQuery
	// DeadlineExceeded means a lookup exceeded its per-request budget.
	DeadlineExceeded
	// ServiceDegraded means a dependency (Log Store, Session Store) is
	// unavailable and the engine is serving best-effort results.
	ServiceDegraded
	// InvariantViolation means an internal consistency check failed. It
	// should not occur; it is returned rather than panicked because it
	// can surface across a library boundary.
	InvariantViolation
	// NotFound means a requested resource (a blocked phrase, an admin
	// entity) does not exist.
	NotFound
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case InvalidPhrase:
		return "invalid_phrase"
	case InvalidPrefix:
		return "invalid_prefix"
	case InvalidQuery:
		return "invalid_query"
	case DeadlineExceeded:
		return "deadline_exceeded"
	case ServiceDegraded:
		return "service_degraded"
	case InvariantViolation:
		return "invariant_violation"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf("%s", msg)}
}

// Wrap builds an *Error around an existing error.
func Wrap(op string, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}

// KindOf extracts the Kind from err, defaulting to InvariantViolation when
// err does not wrap an *Error — a caller saw an error we didn't classify.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return InvariantViolation
}
