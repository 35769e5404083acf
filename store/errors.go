package store

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure. The set is closed: every error the
// package returns carries exactly one of these, so callers can branch on
// kind without knowing which backend produced it.
type Kind string

const (
	// KindConfiguration means the Config was invalid or incomplete.
	// Always detected at New, never deferred to first use.
	KindConfiguration Kind = "configuration"

	// KindConnection means the backing medium could not be reached or
	// opened. Retrying is the caller's decision; the package never
	// retries internally.
	KindConnection Kind = "connection"

	// KindValidation means a record's shape or a value failed a check
	// (field-set mismatch, empty record set, unparsable coercion).
	KindValidation Kind = "validation"

	// KindWrite is an I/O failure while saving records.
	KindWrite Kind = "write"

	// KindRead is an I/O failure while retrieving records.
	KindRead Kind = "read"

	// KindState means an operation was invoked in the wrong lifecycle
	// state, e.g. SaveData after Close.
	KindState Kind = "state"
)

// Error is the {kind, backend, message} triple surfaced for every
// failure. Backend is filled in by the Store that owns the provider, so
// a caller juggling several stores can tell which one failed.
type Error struct {
	Kind    Kind
	Backend string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Backend != "" {
		s = e.Backend + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// errf builds an *Error with a formatted message. The underlying cause,
// if any, goes last in args and is split off so Unwrap works.
func errf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or "" if err is not a store error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err is a store error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
