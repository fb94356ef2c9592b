/*
history.go - Course result upsert

PURPOSE:
  Merges a newly reported course result into an employee's history while
  preserving the at-most-one-entry-per-course invariant, then lets the
  caller recompute the matrix. History and matrix are never saved
  independently of each other (see ApplyResult and the store contract).

KEYING:
  The upsert matches existing entries by RAW string equality on the course
  name, not normalized equality. Two submissions differing only by case or
  accent therefore create two history rows; the reconciler still matches
  either row to the requirement by normalized name. This asymmetry is a
  deliberate, documented contract (see DESIGN.md), not an oversight.

STATUS DERIVATION:
  status = approved iff score >= PassingScore (70), fixed at write time
  and never re-derived later.

SEE ALSO:
  - matrix.go: The recompute routine invoked after every upsert
  - types.go: PassingScore, HistoryEntry
*/
package training

// UpsertHistory merges a result into history. If an entry with the same
// raw course name exists, its date, score, and status are replaced in
// place, preserving the entry's position in the list; otherwise a new
// entry is appended. The input slice is not mutated.
func UpsertHistory(history []HistoryEntry, result CourseResult) []HistoryEntry {
	entry := HistoryEntry{
		CourseName: result.CourseName,
		Date:       DayOf(result.Date),
		Score:      result.Score,
		Status:     StatusForScore(result.Score),
	}

	out := append([]HistoryEntry{}, history...)
	for i := range out {
		if out[i].CourseName == result.CourseName {
			out[i].Date = entry.Date
			out[i].Score = entry.Score
			out[i].Status = entry.Status
			return out
		}
	}
	return append(out, entry)
}

// StatusForScore derives the write-time status for a score.
func StatusForScore(score float64) Status {
	if score >= PassingScore {
		return StatusApproved
	}
	return StatusFailed
}

// ApplyResult upserts a result into the record's history and recomputes
// the matrix from the updated history in one step, keeping the two
// consistent. Callers persist both together.
func ApplyResult(rec *TrainingRecord, result CourseResult) {
	rec.History = UpsertHistory(rec.History, result)
	rec.Matrix = ComputeMatrix(rec.History, rec.Matrix.RequiredCourses)
}
