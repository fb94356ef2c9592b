/*
apply.go - Failure-isolated batch application of course results

PURPOSE:
  Applies parsed result rows to employee records. Each employee update is
  an independent read-modify-write unit: fetch record, hydrate its matrix
  if empty, upsert the result, recompute the matrix, persist history and
  matrix together. One employee's failure never aborts its siblings; the
  report aggregates failed rows for the caller to surface.

SELF-HEALING:
  Records with an empty matrix are hydrated against the position catalog
  on the way through, so a bulk import repairs stale records as a side
  effect. Unresolved positions are reported, not raised.

SEE ALSO:
  - importer.go: Spreadsheet parsing feeding this applier
  - training/hydrate.go: The self-healing rules
*/
package importer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/warp/compliance-engine/training"
)

// Applier applies result batches against the stores.
type Applier struct {
	Employees training.EmployeeStore
	Catalog   training.PositionCatalog
	Log       *zap.Logger // optional; nop when nil
}

// Report summarizes one batch application.
type Report struct {
	Applied             int          `json:"applied"`
	Failures            []RowFailure `json:"failures"`
	UnresolvedPositions []string     `json:"unresolved_positions"` // position names, deduplicated
}

// ApplyResults applies rows one employee update at a time. Per-item
// failures are recorded and skipped; only a catalog read error fails the
// whole batch (nothing can be hydrated without it).
func (a *Applier) ApplyResults(ctx context.Context, rows []ResultRow) (Report, error) {
	report := Report{Failures: []RowFailure{}, UnresolvedPositions: []string{}}

	catalog, err := a.Catalog.ListPositions(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load position catalog: %w", err)
	}

	unresolved := map[string]bool{}
	for _, row := range rows {
		if err := a.applyOne(ctx, row, catalog, unresolved); err != nil {
			report.Failures = append(report.Failures, RowFailure{
				Row:        row.Row,
				EmployeeID: row.EmployeeID,
				Reason:     err.Error(),
			})
			continue
		}
		report.Applied++
	}

	for name := range unresolved {
		report.UnresolvedPositions = append(report.UnresolvedPositions, name)
	}
	sort.Strings(report.UnresolvedPositions)

	a.logger().Info("applied result batch",
		zap.Int("applied", report.Applied),
		zap.Int("failed", len(report.Failures)),
		zap.Int("unresolved_positions", len(report.UnresolvedPositions)))
	return report, nil
}

// ApplyToPosition applies one course result to every employee currently
// in a position (bulk registration after a group training session).
// Failures carry row 0 since there is no spreadsheet row to point at.
func (a *Applier) ApplyToPosition(ctx context.Context, position string, result training.CourseResult) (Report, error) {
	employees, err := a.Employees.ListEmployeesByPosition(ctx, position)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list employees for position %q: %w", position, err)
	}

	rows := make([]ResultRow, 0, len(employees))
	for _, rec := range employees {
		rows = append(rows, ResultRow{
			EmployeeID: rec.ID,
			CourseName: string(result.CourseName),
			Date:       result.Date,
			Score:      result.Score,
		})
	}
	return a.ApplyResults(ctx, rows)
}

// applyOne is the independent read-modify-write unit for one row.
func (a *Applier) applyOne(ctx context.Context, row ResultRow, catalog []training.Position, unresolved map[string]bool) error {
	rec, err := a.Employees.GetEmployee(ctx, row.EmployeeID)
	if err != nil {
		return err
	}

	if outcome := training.Hydrate(rec, catalog); !outcome.Resolved {
		unresolved[rec.Position] = true
	}

	training.ApplyResult(rec, training.CourseResult{
		CourseName: training.CourseName(row.CourseName),
		Date:       row.Date,
		Score:      row.Score,
	})

	if err := rec.Matrix.Validate(); err != nil {
		// Reconciler bug. Refuse to persist a broken matrix and say so loudly.
		a.logger().Error("matrix invariant violation",
			zap.String("employee_id", rec.ID), zap.Error(err))
		return err
	}

	return a.Employees.SaveTrainingState(ctx, rec.ID, rec.History, rec.Matrix)
}

func (a *Applier) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
