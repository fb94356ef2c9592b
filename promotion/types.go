/*
Package promotion evaluates promotion eligibility.

PURPOSE:
  Given an employee's training record and the promotion rule for their
  position, this package produces a structured four-criterion verdict:
  temporality (months in position), matrix (compliance coverage),
  performance (latest review score), and exam (latest attempt score).
  It also gates exam retakes.

KEY CONCEPTS IN THIS FILE (types.go):
  - Rule: Configurable thresholds for one current position
  - Criterion: One met/current/required triple
  - Verdict: The four criteria plus the overall decision

DESIGN PRINCIPLES:
  1. Fresh evaluation: A verdict is recomputed on demand from the record
     and rule; it is never persisted as source of truth.
  2. Explicit clock: "now" is a parameter everywhere, never a global read.
  3. Independence: Each criterion is computed on its own; the overall
     decision is simply "all four met".

SEE ALSO:
  - evaluate.go: Verdict computation
  - exam.go: Retake gating and attempt recording
  - rules.go: Rule set with ambiguity rejection
*/
package promotion

// Rule holds the promotion thresholds for one current position.
// Rules are keyed by the normalized CurrentPosition; at most one rule may
// exist per normalized position (enforced by RuleSet and the rule store).
type Rule struct {
	ID                  string  `json:"id"`
	CurrentPosition     string  `json:"current_position"`
	PromotionTo         string  `json:"promotion_to"`
	TemporalityMonths   int     `json:"temporality_months"`
	ExamMinScore        float64 `json:"exam_min_score"`
	MatrixMinCoverage   float64 `json:"matrix_min_coverage"`
	PerformanceMinScore float64 `json:"performance_min_score"`
}

// Criterion is one evaluated eligibility criterion. Current is nil only
// for the exam criterion when the employee has never attempted the exam.
type Criterion struct {
	Met      bool     `json:"met"`
	Current  *float64 `json:"current"`
	Required float64  `json:"required"`
}

// Overall is the combined decision across the four criteria.
type Overall struct {
	Eligible bool `json:"eligible"`
	MetCount int  `json:"met_count"` // 0..4
}

// Verdict is the full eligibility assessment for one employee/rule pair.
// Purely derived; recomputed on every evaluation.
type Verdict struct {
	Temporality Criterion `json:"temporality"`
	Matrix      Criterion `json:"matrix"`
	Performance Criterion `json:"performance"`
	Exam        Criterion `json:"exam"`
	Overall     Overall   `json:"overall"`
}
