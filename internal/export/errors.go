package export

import (
	"errors"

	"github.com/link270/fbx-analyzer/internal/validation"
)

// Failure kinds. Match them with errors.Is.
var (
	ErrLoad      = errors.New("scene load failed")
	ErrSave      = errors.New("scene save failed")
	ErrRoundTrip = errors.New("round-trip check failed")
	// ErrSamePath is a save failure raised before any store is opened.
	ErrSamePath = errors.New("destination path must differ from source path")
)

// Error is a terminal failure of one export run.
type Error struct {
	Kind     error
	State    State
	Message  string
	Statuses []validation.CategoryStatus
	Diff     []validation.MetricDiff
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is matches the failure kind. Same-path failures also match ErrSave.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrSamePath && target == ErrSave
}

func (e *Error) Unwrap() error { return e.Err }
