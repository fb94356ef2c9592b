/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Domain types
  that are themselves stable JSON documents (ComplianceMatrix, Verdict,
  import reports) are embedded directly rather than mirrored field by
  field.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers (and the factory package), not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rules.go: RuleJSON and PositionJSON request schemas
*/
package api

import (
	"github.com/warp/compliance-engine/importer"
	"github.com/warp/compliance-engine/promotion"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeSummaryDTO is the list-view projection of a training record.
type EmployeeSummaryDTO struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Position             string `json:"position"`
	Department           string `json:"department"`
	CompliancePercentage int    `json:"compliance_percentage"`
	CompletedCount       int    `json:"completed_count"`
	RequiredCount        int    `json:"required_count"`
}

// EmployeeDTO is the full record returned by the detail endpoint.
type EmployeeDTO struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	Position   string                    `json:"position"`
	Department string                    `json:"department"`
	History    []training.HistoryEntry   `json:"history"`
	Matrix     training.ComplianceMatrix `json:"matrix"`
	Promotion  training.PromotionData    `json:"promotion"`
}

// CreateEmployeeRequest creates a training record. ID is optional; a
// uuid is generated when absent.
type CreateEmployeeRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

// SubmitResultRequest reports one course result for one employee.
// Date uses "2006-01-02".
type SubmitResultRequest struct {
	CourseName string  `json:"course_name"`
	Date       string  `json:"date"`
	Score      float64 `json:"score"`
}

// PromotionDataRequest replaces the promotion fields of a record.
// Exam attempts are managed through the exam-attempts endpoint, never here.
type PromotionDataRequest struct {
	PositionStartDate string  `json:"position_start_date"` // "2006-01-02", empty allowed
	PerformanceScore  float64 `json:"performance_score"`
	PerformancePeriod string  `json:"performance_period"`
}

// SeniorityDTO is the display form of time in position.
type SeniorityDTO struct {
	Years       int `json:"years"`
	Months      int `json:"months"`
	TotalMonths int `json:"total_months"`
}

// =============================================================================
// POSITIONS
// =============================================================================

// AddCoursesRequest appends required courses to a position. Courses that
// already exist on the list (by normalized name) are skipped, not errors.
type AddCoursesRequest struct {
	Courses []string `json:"courses"`
}

// AddCoursesResponse reports the outcome of a course addition.
type AddCoursesResponse struct {
	Position string   `json:"position"`
	Added    []string `json:"added"`
	Skipped  []string `json:"skipped"`
}

// BulkResultRequest applies one course result to every employee in a
// position (bulk registration after a group session).
type BulkResultRequest struct {
	CourseName string  `json:"course_name"`
	Date       string  `json:"date"`
	Score      float64 `json:"score"`
}

// =============================================================================
// ELIGIBILITY AND EXAMS
// =============================================================================

// EligibilityResponse pairs the verdict with the rule context it was
// evaluated against.
type EligibilityResponse struct {
	EmployeeID  string            `json:"employee_id"`
	Position    string            `json:"position"`
	PromotionTo string            `json:"promotion_to"`
	Verdict     promotion.Verdict `json:"verdict"`
}

// RecordAttemptRequest records a promotion exam attempt.
type RecordAttemptRequest struct {
	Date  string  `json:"date"` // "2006-01-02"
	Score float64 `json:"score"`
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportResponse wraps the batch report, including rows rejected at
// parse time (before any store access).
type ImportResponse struct {
	ParseFailures []importer.RowFailure `json:"parse_failures"`
	Report        importer.Report       `json:"report"`
}

// RosterImportResponse reports a JSON roster seed. Existing records are
// skipped, never overwritten.
type RosterImportResponse struct {
	Created             []string `json:"created"` // employee ids
	Skipped             []string `json:"skipped"` // ids that already existed
	UnresolvedPositions []string `json:"unresolved_positions"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
