/*
matrix.go - Compliance matrix computation (the reconciler)

PURPOSE:
  Derives the ComplianceMatrix from an employee's course history and a
  position's required-course list. This is the single recompute routine:
  every write path that touches history or required courses goes through
  ComputeMatrix, so the cached matrix can never drift from its inputs.

CLASSIFICATION:
  A required course is satisfied iff some approved history entry matches
  it by normalized name. Unsatisfied courses are missing; a missing course
  that appears anywhere in history (any status) is failed (attempted but
  never approved), otherwise pending (never attempted).

ROUNDING:
  CompliancePercentage = round(100 * completed / required), half-up,
  computed with decimal.Decimal. Tests pin exact values.

SEE ALSO:
  - normalize.go: Name matching
  - history.go: Upsert that feeds this routine
  - hydrate.go: Seeds required courses before recomputing
*/
package training

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeMatrix reconciles history against required courses. Pure; all
// inputs are treated defensively (nil slices behave as empty). An empty
// required list yields the zero matrix, a valid terminal state.
func ComputeMatrix(history []HistoryEntry, required []CourseName) ComplianceMatrix {
	m := ComplianceMatrix{
		RequiredCount:   len(required),
		RequiredCourses: append([]CourseName{}, required...),
		MissingCourses:  []CourseName{},
		FailedCourses:   []CourseName{},
		PendingCourses:  []CourseName{},
	}
	if len(required) == 0 {
		return m
	}

	approved := make(map[string]bool, len(history))
	attempted := make(map[string]bool, len(history))
	for _, e := range history {
		key := Normalize(string(e.CourseName))
		attempted[key] = true
		if e.Status == StatusApproved {
			approved[key] = true
		}
	}

	// Missing courses keep the relative order of the required list.
	for _, c := range required {
		key := Normalize(string(c))
		if approved[key] {
			continue
		}
		m.MissingCourses = append(m.MissingCourses, c)
		if attempted[key] {
			m.FailedCourses = append(m.FailedCourses, c)
		} else {
			m.PendingCourses = append(m.PendingCourses, c)
		}
	}

	m.CompletedCount = m.RequiredCount - len(m.MissingCourses)
	m.CompliancePercentage = percentage(m.CompletedCount, m.RequiredCount)
	return m
}

// percentage computes round-half-up(100*completed/required) exactly.
func percentage(completed, required int) int {
	if required <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(completed) * 100).
		Div(decimal.NewFromInt(int64(required))).
		Round(0)
	return int(pct.IntPart())
}

// IsZero reports whether the matrix is in the zero state (no required
// courses seeded). Hydration candidates are detected with this.
func (m ComplianceMatrix) IsZero() bool {
	return len(m.RequiredCourses) == 0 && m.RequiredCount == 0
}

// Validate checks the matrix invariants. A violation indicates a bug in
// the reconciler itself, never bad input data; production code paths log
// violations loudly rather than tolerating them.
func (m ComplianceMatrix) Validate() error {
	if m.CompliancePercentage < 0 || m.CompliancePercentage > 100 {
		return &MatrixInvariantError{
			Code:    "percentage_out_of_range",
			Message: fmt.Sprintf("compliance percentage %d outside [0,100]", m.CompliancePercentage),
		}
	}
	if m.CompletedCount+len(m.MissingCourses) != m.RequiredCount {
		return &MatrixInvariantError{
			Code: "count_mismatch",
			Message: fmt.Sprintf("completed %d + missing %d != required %d",
				m.CompletedCount, len(m.MissingCourses), m.RequiredCount),
		}
	}
	if len(m.FailedCourses)+len(m.PendingCourses) != len(m.MissingCourses) {
		return &MatrixInvariantError{
			Code: "partition_size_mismatch",
			Message: fmt.Sprintf("failed %d + pending %d != missing %d",
				len(m.FailedCourses), len(m.PendingCourses), len(m.MissingCourses)),
		}
	}
	failed := make(map[string]bool, len(m.FailedCourses))
	for _, c := range m.FailedCourses {
		failed[Normalize(string(c))] = true
	}
	for _, c := range m.PendingCourses {
		if failed[Normalize(string(c))] {
			return &MatrixInvariantError{
				Code:    "partition_overlap",
				Message: fmt.Sprintf("course %q classified both failed and pending", c),
			}
		}
	}
	return nil
}
