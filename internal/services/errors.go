package services

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the authorizer denies a mutation.
var ErrForbidden = errors.New("user may not mutate this budget")

// ValidationError rejects a malformed mutation before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LockedBudgetError rejects a child-entity write on a locked or archived
// budget. Nothing is recomputed.
type LockedBudgetError struct {
	BudgetID int64
	Status   string
}

func (e *LockedBudgetError) Error() string {
	return fmt.Sprintf("budget %d is %s and rejects mutation", e.BudgetID, e.Status)
}

// DependencyCycleError rejects a fringe item whose base chain loops back
// on itself. Detected at write time, never during recompute.
type DependencyCycleError struct {
	LineItemID int64
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("fringe base chain of line item %d forms a cycle", e.LineItemID)
}

// StaleReadError means a recompute pass observed a row deleted out from
// under it. The whole operation is retried once, then surfaced.
type StaleReadError struct {
	Entity string
	ID     int64
}

func (e *StaleReadError) Error() string {
	return fmt.Sprintf("%s %d disappeared during recomputation", e.Entity, e.ID)
}

// NotFoundError identifies the missing entity for the caller.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func notFoundErr(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func staleReadErr(entity string, id int64) error {
	return &StaleReadError{Entity: entity, ID: id}
}

// IsRetryable reports whether the operation should be re-run from the top
// with a fresh transaction.
func IsRetryable(err error) bool {
	var stale *StaleReadError
	return errors.As(err, &stale)
}
