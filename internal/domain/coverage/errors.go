package coverage

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const (
	ReasonNoOverlap   = "no_overlap"
	ReasonNotComputed = "not_computed"
)

// EmptyCoverageError is recoverable: callers should offer manual code entry.
type EmptyCoverageError struct {
	Reason string
}

func (e *EmptyCoverageError) Error() string {
	if e.Reason == ReasonNotComputed {
		return "postal code dataset not loaded; coverage could not be computed"
	}
	return "polygon does not overlap any postal code"
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError marks an exact duplicate insert. Mutations absorb it as a
// no-op.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate entry: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// PartialFailureError means a mutation failed and its rollback failed too, so
// storage may hold a half-applied change.
type PartialFailureError struct {
	Operation   string
	Err         error
	RollbackErr error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s partially applied: %v (rollback: %v)", e.Operation, e.Err, e.RollbackErr)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

type ExternalLookupError struct {
	Code string
	Err  error
}

func (e *ExternalLookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.Code, e.Err)
}

func (e *ExternalLookupError) Unwrap() error { return e.Err }

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
