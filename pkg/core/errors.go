package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure classes of a run.
var (
	// ErrIngestion marks malformed input: unreadable sources, missing
	// required fields or values of the wrong type.
	ErrIngestion = errors.New("ingestion error")

	// ErrDerivation marks a field that is present but cannot be turned into
	// a derived value, such as a millisecond timestamp that does not parse.
	ErrDerivation = errors.New("derivation error")

	// ErrWrite marks a destination that could not be written or committed.
	ErrWrite = errors.New("write error")

	// ErrNotMaterialized is returned when a phase needs a table that no
	// earlier run has written.
	ErrNotMaterialized = errors.New("table not materialized")
)

// IngestionError describes a single bad input record.
// Record is the zero-based position of the record within its source, or -1
// when the error concerns the source as a whole.
type IngestionError struct {
	Source string
	Record int
	Field  string
	Reason string
	Err    error
}

func (e *IngestionError) Error() string {
	var msg string
	switch {
	case e.Record < 0:
		msg = fmt.Sprintf("%s: %s", e.Source, e.Reason)
	case e.Field == "":
		msg = fmt.Sprintf("%s record %d: %s", e.Source, e.Record, e.Reason)
	default:
		msg = fmt.Sprintf("%s record %d: field %q: %s", e.Source, e.Record, e.Field, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrIngestion so callers can match the class with errors.Is.
func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }

func (e *IngestionError) Unwrap() error { return e.Err }

// DerivationError describes a field whose value could not be derived.
type DerivationError struct {
	Source string
	Record int
	Field  string
	Value  any
	Err    error
}

func (e *DerivationError) Error() string {
	msg := fmt.Sprintf("%s record %d: cannot derive from %s=%v", e.Source, e.Record, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DerivationError) Is(target error) bool { return target == ErrDerivation }

func (e *DerivationError) Unwrap() error { return e.Err }

// WriteError describes a table that could not be persisted.
type WriteError struct {
	Table string
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s to %s: %v", e.Table, e.Path, e.Err)
}

func (e *WriteError) Is(target error) bool { return target == ErrWrite }

func (e *WriteError) Unwrap() error { return e.Err }
