// Package tsverr defines the TSV error taxonomy (base spec §7): Invalid,
// Resource, and Internal, each carrying the failing operation's name and an
// optional wrapped cause.
//
// This generalizes the teacher's instrument.InstrumentationError (file
// position + message + suggestion) from "which AST node" to "which TSV
// operation": same shape — enough context to act on, nothing more.
package tsverr

import "fmt"

// Code classifies a TSV error per the base spec's §7 taxonomy.
type Code int

const (
	// Invalid marks a bad argument, e.g. a nil value passed to Set.
	Invalid Code = iota
	// Resource marks an allocation or primitive-init failure.
	Resource
	// Internal marks a broken invariant detected mid-operation — the spec
	// permits either aborting the process or surfacing this code; this
	// module always surfaces it rather than aborting (see DESIGN.md).
	Internal
)

func (c Code) String() string {
	switch c {
	case Invalid:
		return "invalid"
	case Resource:
		return "resource"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every public TSV operation
// that can fail.
type Error struct {
	Code Code
	Op   string // the operation that failed, e.g. "tsv.Set"
	Err  error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error with no wrapped cause.
func New(op string, code Code) *Error {
	return &Error{Op: op, Code: code}
}

// Wrap constructs an *Error wrapping cause, or returns nil if cause is nil.
func Wrap(op string, code Code, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Err: cause}
}
