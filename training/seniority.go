/*
seniority.go - Calendar month arithmetic

PURPOSE:
  Whole-month elapsed-time helpers for temporality checks. The promotion
  evaluator and the exam gate both use MonthsBetween, so month arithmetic
  is consistent bit-for-bit across every consumer (one implementation,
  not two approximations).

SEMANTICS:
  Calendar-aware subtraction, floored to whole completed months: a month
  counts once the same day-of-month is reached ("started March 15" is 1
  month on April 15, 0 months on April 14). Never uses day-count/30.
  A zero start date, or a start in the future, yields 0.

CLOCK:
  "now" is always an explicit parameter. Nothing here reads the wall
  clock, so callers and tests control time deterministically.
*/
package training

import "time"

// MonthsBetween returns whole calendar months elapsed from start to now,
// floored. 0 for a zero start or when now precedes start.
func MonthsBetween(start, now time.Time) int {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if now.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// YearsAndMonths splits the elapsed whole months into years and leftover
// months, for display ("2 years, 3 months in position").
func YearsAndMonths(start, now time.Time) (years, months int) {
	total := MonthsBetween(start, now)
	return total / 12, total % 12
}
