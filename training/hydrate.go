/*
hydrate.go - Self-healing of empty compliance matrices

PURPOSE:
  An employee record can end up with an empty matrix when it was imported
  before its position existed in the catalog, or when the position name on
  the record drifted from the catalog spelling ("Operador de Montacargas"
  vs "OPERADOR DE MONTACARGAS"). Hydration lazily repairs such records by
  re-resolving the position and recomputing the matrix.

RESOLUTION ORDER (first match wins):
  1. Exact raw-string match on position name
  2. Normalized match, scanning the full catalog

  The normalized fallback mirrors the reconciler's matching so records
  cannot stay permanently stuck at requiredCount = 0 over formatting drift.

FAILURE MODE:
  No catalog match is a non-fatal "unresolved position" condition reported
  in the outcome value, never an error. The matrix stays in the zero state.

SEE ALSO:
  - matrix.go: Recompute invoked once required courses are seeded
  - normalize.go: Position name matching
*/
package training

import "strings"

// NeedsHydration reports whether a record qualifies for self-healing:
// its matrix has no required courses seeded and it names a position.
func NeedsHydration(rec *TrainingRecord) bool {
	return rec.Matrix.IsZero() && strings.TrimSpace(rec.Position) != ""
}

// ResolvePosition finds the catalog position for a raw position name.
// Exact match first, then normalized match. Returns nil, false when the
// name resolves to nothing.
func ResolvePosition(name string, catalog []Position) (*Position, bool) {
	for i := range catalog {
		if catalog[i].Name == name {
			return &catalog[i], true
		}
	}
	want := Normalize(name)
	if want == "" {
		return nil, false
	}
	for i := range catalog {
		if Normalize(catalog[i].Name) == want {
			return &catalog[i], true
		}
	}
	return nil, false
}

// HydrationOutcome reports what Hydrate did.
type HydrationOutcome struct {
	// Resolved is false only for the unresolved-position condition.
	Resolved bool
	// MatchedPosition is the catalog spelling of the resolved position.
	MatchedPosition string
	// Changed is true when the record's matrix was recomputed.
	Changed bool
}

// Hydrate seeds the record's required courses from the catalog and
// recomputes the matrix. A record that does not need hydration is left
// untouched. Safe to call repeatedly; the recompute is idempotent.
func Hydrate(rec *TrainingRecord, catalog []Position) HydrationOutcome {
	if !NeedsHydration(rec) {
		return HydrationOutcome{Resolved: true, MatchedPosition: rec.Position}
	}
	pos, ok := ResolvePosition(rec.Position, catalog)
	if !ok {
		return HydrationOutcome{}
	}
	rec.Matrix = ComputeMatrix(rec.History, pos.RequiredCourses)
	return HydrationOutcome{Resolved: true, MatchedPosition: pos.Name, Changed: true}
}
