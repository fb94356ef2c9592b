/*
Package training provides the core compliance reconciliation engine.

PURPOSE:
  This package contains the pure types and algorithms for tracking employee
  training compliance against role-based course requirements. Given an
  employee's course history and the courses their position requires, the
  engine derives a compliance matrix: which requirements are satisfied,
  which were attempted and failed, and which were never attempted at all.

KEY CONCEPTS IN THIS FILE (types.go):
  - CourseName: An opaque display string identifying a course
  - HistoryEntry: One recorded course result (at most one per raw course name)
  - ComplianceMatrix: The derived completed/missing/failed/pending summary
  - Position: A role with its ordered list of required courses
  - TrainingRecord: The employee aggregate (history + matrix + promotion data)

DESIGN PRINCIPLES:
  1. Purity: All algorithms are pure functions over values passed in.
     The engine performs no I/O, holds no state, and is safe to rerun.
  2. Derived data: ComplianceMatrix is always fully recomputed from history
     and required courses by one routine, never incrementally patched.
  3. Defensive defaults: Absent data (empty required lists, missing dates,
     unresolved positions) resolves to documented zero states, never errors.
  4. Precision: Percentage rounding uses decimal.Decimal so the cached
     value is exact and reproducible.

USAGE:
  matrix := training.ComputeMatrix(rec.History, pos.RequiredCourses)
  rec.History = training.UpsertHistory(rec.History, result)

SEE ALSO:
  - normalize.go: Course/position name canonicalization
  - matrix.go: Compliance matrix computation
  - history.go: Course result upsert
  - hydrate.go: Self-healing of empty matrices
  - seniority.go: Calendar month arithmetic
*/
package training

import (
	"time"
)

// =============================================================================
// COURSE NAMES AND HISTORY
// =============================================================================

// CourseName is an opaque display string, e.g. "Manejo de Montacargas".
// Two names denote the same course iff their Normalize forms are equal.
// Uniqueness after normalization is only guaranteed within a single
// required-courses list, never across the whole catalog.
type CourseName string

// Status is the outcome recorded on a history entry. It is fixed at write
// time from the score and never re-derived afterwards.
type Status string

const (
	StatusApproved Status = "approved"
	StatusFailed   Status = "failed"
)

// PassingScore is the approval threshold applied at write time.
// This constant is part of the upsert contract, not configurable per course.
const PassingScore = 70.0

// HistoryEntry is one recorded course result for an employee.
// Invariant: at most one entry per distinct raw CourseName string.
type HistoryEntry struct {
	CourseName CourseName `json:"course_name"`
	Date       time.Time  `json:"date"` // day precision
	Score      float64    `json:"score"`
	Status     Status     `json:"status"`
}

// CourseResult is a newly reported result, before status derivation.
// Bulk import collaborators normalize dates to day precision before
// handing results to the engine.
type CourseResult struct {
	CourseName CourseName
	Date       time.Time
	Score      float64
}

// =============================================================================
// POSITIONS
// =============================================================================

// Position is a role in the catalog with its required courses.
// RequiredCourses is an ordered set: order is preserved through the matrix,
// and names are unique within the list (by normalized form).
type Position struct {
	Name            string       `json:"name"`
	Department      string       `json:"department"`
	RequiredCourses []CourseName `json:"required_courses"`
}

// =============================================================================
// COMPLIANCE MATRIX
// =============================================================================

// ComplianceMatrix is the derived, cached summary of requirement satisfaction.
//
// Invariants (checked by Validate):
//   - MissingCourses is the disjoint union of FailedCourses and PendingCourses
//   - CompletedCount + len(MissingCourses) == RequiredCount
//   - CompliancePercentage in [0,100]; 0 when RequiredCount == 0
type ComplianceMatrix struct {
	RequiredCount        int          `json:"required_count"`
	RequiredCourses      []CourseName `json:"required_courses"`
	CompletedCount       int          `json:"completed_count"`
	MissingCourses       []CourseName `json:"missing_courses"`
	FailedCourses        []CourseName `json:"failed_courses"`
	PendingCourses       []CourseName `json:"pending_courses"`
	CompliancePercentage int          `json:"compliance_percentage"`
}

// =============================================================================
// PROMOTION DATA
// =============================================================================

// ExamAttempt is one promotion exam attempt. Passed is fixed at write time
// against the rule's minimum score in force at that time; it is never
// re-evaluated retroactively and is informational only for eligibility.
type ExamAttempt struct {
	Date   time.Time `json:"date"`
	Score  float64   `json:"score"`
	Passed bool      `json:"passed"`
}

// PromotionData carries the promotion-specific fields of an employee.
// ExamAttempts is ordered by date ascending and append-only in normal
// operation.
type PromotionData struct {
	PositionStartDate time.Time     `json:"position_start_date"`
	PerformanceScore  float64       `json:"performance_score"`
	PerformancePeriod string        `json:"performance_period"`
	ExamAttempts      []ExamAttempt `json:"exam_attempts"`
}

// LatestAttempt returns the most recent exam attempt by date, or nil when
// there are none. Defensive against out-of-order data.
func (pd PromotionData) LatestAttempt() *ExamAttempt {
	var latest *ExamAttempt
	for i := range pd.ExamAttempts {
		if latest == nil || !pd.ExamAttempts[i].Date.Before(latest.Date) {
			latest = &pd.ExamAttempts[i]
		}
	}
	return latest
}

// =============================================================================
// TRAINING RECORD - The employee aggregate
// =============================================================================

// TrainingRecord is the employee aggregate. History and Matrix are always
// updated together, atomically from the caller's perspective; stores must
// never persist one without the other.
type TrainingRecord struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Position   string           `json:"position"` // raw position name, resolved against the catalog
	Department string           `json:"department"`
	History    []HistoryEntry   `json:"history"`
	Matrix     ComplianceMatrix `json:"matrix"`
	Promotion  PromotionData    `json:"promotion"`
}

// =============================================================================
// TIME HELPERS
// =============================================================================

// DayOf truncates a time to day precision in UTC. All dates stored on
// history entries and exam attempts are day-precision.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
