/*
evaluate.go - The four-criterion eligibility evaluation

CRITERIA (each independent):
  Temporality:  whole months since position start >= rule months.
                Absent start date => current 0, not met.
  Matrix:       cached compliance percentage >= rule coverage.
  Performance:  performance score >= rule minimum (absent => 0).
  Exam:         score of the MOST RECENT attempt >= rule minimum.
                No attempts => current nil, not met. Historical
                passed/failed flags on attempts are informational only;
                only the latest attempt counts.

  overall.eligible iff all four criteria are met.

MONTH ARITHMETIC:
  Shares training.MonthsBetween with the seniority helpers, so the
  temporality criterion and any seniority display agree bit-for-bit.
*/
package promotion

import (
	"time"

	"github.com/warp/compliance-engine/training"
)

// Evaluate computes the eligibility verdict for one employee against one
// rule at the given instant. Pure; no caching, no clock reads.
func Evaluate(rec training.TrainingRecord, rule Rule, now time.Time) Verdict {
	v := Verdict{
		Temporality: evalTemporality(rec.Promotion, rule, now),
		Matrix:      evalThreshold(float64(rec.Matrix.CompliancePercentage), rule.MatrixMinCoverage),
		Performance: evalThreshold(rec.Promotion.PerformanceScore, rule.PerformanceMinScore),
		Exam:        evalExam(rec.Promotion, rule),
	}

	for _, c := range []Criterion{v.Temporality, v.Matrix, v.Performance, v.Exam} {
		if c.Met {
			v.Overall.MetCount++
		}
	}
	v.Overall.Eligible = v.Overall.MetCount == 4
	return v
}

func evalTemporality(pd training.PromotionData, rule Rule, now time.Time) Criterion {
	c := Criterion{Current: float64Ptr(0), Required: float64(rule.TemporalityMonths)}
	if pd.PositionStartDate.IsZero() {
		// Unknown start date never satisfies temporality, even when the
		// rule requires zero months.
		return c
	}
	months := float64(training.MonthsBetween(pd.PositionStartDate, now))
	c.Current = &months
	c.Met = months >= c.Required
	return c
}

func evalThreshold(current, required float64) Criterion {
	return Criterion{Met: current >= required, Current: &current, Required: required}
}

func evalExam(pd training.PromotionData, rule Rule) Criterion {
	c := Criterion{Required: rule.ExamMinScore}
	latest := pd.LatestAttempt()
	if latest == nil {
		return c // current stays nil: the criterion was never attempted
	}
	score := latest.Score
	c.Current = &score
	c.Met = score >= rule.ExamMinScore
	return c
}

func float64Ptr(f float64) *float64 { return &f }
