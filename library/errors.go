package library

import (
	"errors"
	"fmt"

	"songdrop/types"
)

// ImportErrorKind tags the failure modes of an import call.
type ImportErrorKind string

const (
	DuplicateFound    ImportErrorKind = "duplicate_found"
	UnsupportedFormat ImportErrorKind = "unsupported_format"
	WriteFailure      ImportErrorKind = "write_failure"
	OtherFailure      ImportErrorKind = "other"
)

// ImportError is the tagged error returned by Library.ImportFile. Callers
// branch on Kind; in particular a duplicate is a typed branch for the
// sequencer, never a string match against an opaque error.
type ImportError struct {
	Kind     ImportErrorKind
	Existing *types.SongRef // set only for DuplicateFound
	Err      error
}

func (e *ImportError) Error() string {
	if e.Kind == DuplicateFound && e.Existing != nil {
		return fmt.Sprintf("%s: already in library as %q", e.Kind, e.Existing.Title)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *ImportError) Unwrap() error { return e.Err }

// AsImportError unwraps err into an *ImportError when possible.
func AsImportError(err error) (*ImportError, bool) {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
