package social

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bandmate/backend/internal/models"
)

var (
	// ErrNotFound indicates a referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates the intent was rejected before touching the store.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates the intent contradicts the current relationship state.
	ErrConflict = errors.New("conflict")
)

// Step actions reported in StepRef.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// StepRef identifies a single per-document mutation.
type StepRef struct {
	Kind   models.Kind `json:"kind"`
	ID     string      `json:"id"`
	Action string      `json:"action"`
}

func (s StepRef) String() string {
	return fmt.Sprintf("%s %s/%s", s.Action, s.Kind, s.ID)
}

// DocRef names a document created by an operation.
type DocRef struct {
	Kind models.Kind `json:"kind"`
	ID   string      `json:"id"`
}

// PartialFailureError reports a multi-document operation that stopped after
// some of its steps were applied. Re-running the operation with the same
// arguments, and the ids in Created, converges to the intended end state.
type PartialFailureError struct {
	Operation string
	Failed    StepRef
	Applied   []StepRef
	Created   []DocRef
	Err       error
}

func (e *PartialFailureError) Error() string {
	applied := make([]string, len(e.Applied))
	for i, s := range e.Applied {
		applied[i] = s.String()
	}
	return fmt.Sprintf("%s: partial failure at %s after [%s]: %v", e.Operation, e.Failed, strings.Join(applied, ", "), e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func notFound(kind models.Kind, id string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
}
