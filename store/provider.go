// Package store is a unified data-storage facade: one Store configured
// once with a backend and thereafter saving and loading records without
// the caller binding to a specific storage technology.
package store

import (
	"fmt"
	"sort"
	"strconv"
)

// Record is one logical row/document: field name -> scalar value
// (string, number, boolean, or nil). Field order is not carried by the
// map itself; providers take it from Config.Fields when declared, else
// from the sorted keys of the first record they see.
type Record map[string]any

// RecordSet is an ordered sequence of Records, the unit of exchange for
// SaveData and GetData.
type RecordSet []Record

// Filter is an optional equality filter for GetData: keep records where
// Field equals Value. Comparison is loose: values match if they are
// equal after rendering to their string form, so a CSV-read "42"
// matches int64(42).
type Filter struct {
	Field string
	Value any
}

func (f *Filter) matches(rec Record) bool {
	v, ok := rec[f.Field]
	if !ok {
		return false
	}
	if v == f.Value {
		return true
	}
	return formatScalar(v) == formatScalar(f.Value)
}

// Info is backend metadata returned by Describe.
type Info struct {
	Backend  Backend `json:"backend"`
	Location string  `json:"location"`
	Records  int     `json:"records"`
}

// Provider is the capability contract every backend implements. A
// provider owns exactly one handle to its medium: acquired on Connect,
// released on Disconnect, not safe for unsynchronized concurrent use.
type Provider interface {
	// Connect opens the medium. Calling it on an already-connected
	// provider is a no-op, not an error.
	Connect() error

	// Disconnect releases the handle. Release failures are logged and
	// swallowed so cleanup never fails the caller.
	Disconnect() error

	// SaveData appends records to the medium and returns the number
	// written.
	SaveData(records RecordSet) (int, error)

	// GetData returns all records in insertion order, or the subset
	// matching filter if non-nil.
	GetData(filter *Filter) (RecordSet, error)

	// TrimData drops the oldest (or newest) n records and returns how
	// many remain.
	TrimData(n int, oldest bool) (int, error)

	// Describe returns backend metadata without mutating any state.
	Describe() (Info, error)
}

// errNotConnected is the guard every provider returns when an operation
// arrives before Connect. Store connects lazily so callers normally
// never see it.
func errNotConnected(b Backend) *Error {
	return errf(KindState, nil, "%s provider is not connected", b)
}

func errEmptySet() *Error {
	return errf(KindValidation, nil, "empty record set")
}

// recordFields returns the record's field names: in declared order for
// names present in declared, sorted for the rest. This is the schema
// snapshot rule: deterministic regardless of map iteration order.
func recordFields(rec Record, declared []string) []string {
	out := make([]string, 0, len(rec))
	seen := make(map[string]bool, len(rec))
	for _, f := range declared {
		if _, ok := rec[f]; ok {
			out = append(out, f)
			seen[f] = true
		}
	}
	rest := make([]string, 0, len(rec))
	for f := range rec {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// sameFieldSet reports whether rec has exactly the given fields, and if
// not, names one offending field (extra or missing).
func sameFieldSet(fields []string, rec Record) (string, bool) {
	for _, f := range fields {
		if _, ok := rec[f]; !ok {
			return f, false
		}
	}
	if len(rec) > len(fields) {
		known := make(map[string]bool, len(fields))
		for _, f := range fields {
			known[f] = true
		}
		extras := make([]string, 0, 1)
		for f := range rec {
			if !known[f] {
				extras = append(extras, f)
			}
		}
		sort.Strings(extras)
		return extras[0], false
	}
	return "", true
}

// formatScalar renders a scalar value to its text form. Nil becomes the
// empty string; floats use the shortest representation that round-trips.
func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", x)
	}
}
