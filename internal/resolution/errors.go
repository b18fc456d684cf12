package resolution

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Lookup when no record has the requested case number.
var ErrNotFound = errors.New("resolution not found")

// ErrEmptyCaseNumber is returned by Create when the draft has no case number.
var ErrEmptyCaseNumber = errors.New("case number is required")

// LoadError reports that the backing file could not be read or decoded.
// The collection held before the failed load is left in place.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load resolutions from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// AlreadyExistsError reports a create for a case number that is already taken.
type AlreadyExistsError struct {
	CaseNumber string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("a resolution with case number %s already exists", e.CaseNumber)
}

// PersistError reports that the collection could not be written back.
//
// When returned from Create the new record is already part of the in-memory
// collection; memory and disk disagree until the next successful persist.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist resolutions to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
