/*
errors.go - Centralized error types for the training engine

PURPOSE:
  All engine-adjacent error types in one place. Note the taxonomy: data
  absence (empty required list, unresolved position, missing dates, no
  exam attempts) is NEVER an error - those resolve to documented zero
  states. Errors here cover store lookups and invariant violations only.

ERROR CATEGORIES:
  1. Not-found errors - Store lookups (employee, position, rule)
  2. Invariant violations - Reconciler bugs, fatal in tests
  3. Batch item failures - Carried as values in import reports, not errors

USAGE:
  if errors.Is(err, training.ErrEmployeeNotFound) { ... }

SEE ALSO:
  - matrix.go: Validate returns *MatrixInvariantError
  - store.go: Store interfaces returning these sentinels
*/
package training

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned by stores when no record has the id.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrPositionNotFound is returned by stores when the catalog has no
	// position with the given name. Distinct from the non-fatal unresolved
	// position condition during hydration, which is not an error.
	ErrPositionNotFound = errors.New("position not found")
)

// IsNotFound reports whether the error is one of the lookup sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrPositionNotFound)
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// MatrixInvariantError reports a broken ComplianceMatrix invariant.
// This indicates a reconciler bug, never bad input.
type MatrixInvariantError struct {
	Code    string // e.g. "partition_overlap", "count_mismatch"
	Message string
}

func (e *MatrixInvariantError) Error() string {
	return fmt.Sprintf("compliance matrix invariant violated (%s): %s", e.Code, e.Message)
}
