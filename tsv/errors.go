package tsv

import "github.com/kolkov/tsv/internal/tsv/tsverr"

// Error codes, re-exported from the internal error taxonomy so callers
// never need to import internal/tsv/tsverr directly.
const (
	ErrInvalid  = tsverr.Invalid
	ErrResource = tsverr.Resource
	ErrInternal = tsverr.Internal
)

// Error is the concrete error type returned by Var's methods.
type Error = tsverr.Error
