/*
exam.go - Exam retake gating and attempt recording

GATING RULES:
  An employee may not schedule a new attempt while
    (a) temporality is not yet met, or
    (b) the latest attempt already satisfies the rule's minimum score, or
    (c) the retake cooldown since the latest (failed) attempt has not
        elapsed.
  A failed latest attempt otherwise allows a retake.

COOLDOWN:
  The cooldown is an explicit configuration value in days (see
  config.ExamCooldownDays), defaulting to DefaultCooldownDays. Zero
  disables the cooldown entirely.

RECORDING:
  RecordAttempt fixes Passed against the rule's ExamMinScore in force at
  write time; the flag is never re-evaluated retroactively. Attempts are
  kept ordered by date ascending.
*/
package promotion

import (
	"sort"
	"time"

	"github.com/warp/compliance-engine/training"
)

// DefaultCooldownDays is the retake cooldown applied when configuration
// does not override it.
const DefaultCooldownDays = 30

// GateReason explains a gate decision.
type GateReason string

const (
	GateAllowed           GateReason = "allowed"
	GateTemporalityNotMet GateReason = "temporality_not_met"
	GateAlreadyPassed     GateReason = "latest_attempt_passed"
	GateCooldownActive    GateReason = "cooldown_active"
)

// GateDecision is the structured result of a retake-gate check.
type GateDecision struct {
	Allowed    bool       `json:"allowed"`
	Reason     GateReason `json:"reason"`
	RetryAfter *time.Time `json:"retry_after,omitempty"` // set for cooldown_active
}

// CanScheduleAttempt decides whether the employee may schedule a new exam
// attempt at the given instant. Pure.
func CanScheduleAttempt(rec training.TrainingRecord, rule Rule, cooldownDays int, now time.Time) GateDecision {
	pd := rec.Promotion
	if pd.PositionStartDate.IsZero() ||
		training.MonthsBetween(pd.PositionStartDate, now) < rule.TemporalityMonths {
		return GateDecision{Reason: GateTemporalityNotMet}
	}

	latest := pd.LatestAttempt()
	if latest == nil {
		return GateDecision{Allowed: true, Reason: GateAllowed}
	}
	if latest.Score >= rule.ExamMinScore {
		return GateDecision{Reason: GateAlreadyPassed}
	}
	if cooldownDays > 0 {
		retryAfter := training.DayOf(latest.Date).AddDate(0, 0, cooldownDays)
		if now.Before(retryAfter) {
			return GateDecision{Reason: GateCooldownActive, RetryAfter: &retryAfter}
		}
	}
	return GateDecision{Allowed: true, Reason: GateAllowed}
}

// RecordAttempt appends an attempt with Passed fixed against the rule at
// write time, keeping the list ordered by date ascending. Returns the
// recorded attempt.
func RecordAttempt(pd *training.PromotionData, rule Rule, date time.Time, score float64) training.ExamAttempt {
	att := training.ExamAttempt{
		Date:   training.DayOf(date),
		Score:  score,
		Passed: score >= rule.ExamMinScore,
	}
	pd.ExamAttempts = append(pd.ExamAttempts, att)
	sort.SliceStable(pd.ExamAttempts, func(i, j int) bool {
		return pd.ExamAttempts[i].Date.Before(pd.ExamAttempts[j].Date)
	})
	return att
}
