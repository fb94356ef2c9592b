/*
store.go - Persistence interfaces consumed by the engine's callers

PURPOSE:
  The engine itself performs no I/O; these interfaces describe the
  external collaborators it is reconciled against. Implementations:
  store/sqlite (production), store/memory (tests/dev).

ATOMICITY CONTRACT:
  History and matrix travel together: SaveTrainingState replaces both in
  one call and there is deliberately no way to persist one without the
  other. Promotion data is persisted separately (it never races with the
  history/matrix invariant).

CONCURRENCY:
  Bulk callers treat each employee's fetch -> upsert -> recompute -> save
  as an independent unit (optimistic read-then-write). No multi-document
  transaction is assumed; last write wins between concurrent writers on
  the same employee.
*/
package training

import "context"

// EmployeeStore supplies and persists TrainingRecords.
type EmployeeStore interface {
	// GetEmployee returns the record or ErrEmployeeNotFound.
	GetEmployee(ctx context.Context, id string) (*TrainingRecord, error)

	// ListEmployees returns all records.
	ListEmployees(ctx context.Context) ([]TrainingRecord, error)

	// ListEmployeesByPosition returns records whose raw position name
	// normalizes to the same form as the given name.
	ListEmployeesByPosition(ctx context.Context, position string) ([]TrainingRecord, error)

	// SaveEmployee creates or fully replaces a record.
	SaveEmployee(ctx context.Context, rec TrainingRecord) error

	// SaveTrainingState replaces history and matrix together, never
	// separately. ErrEmployeeNotFound when the id is unknown.
	SaveTrainingState(ctx context.Context, id string, history []HistoryEntry, matrix ComplianceMatrix) error

	// SavePromotionData replaces the promotion fields of a record.
	SavePromotionData(ctx context.Context, id string, pd PromotionData) error
}

// PositionCatalog supplies positions and their required-course lists.
// The engine only reads; administrative mutation goes through the same
// interface for the API surface.
type PositionCatalog interface {
	// ListPositions returns the full catalog.
	ListPositions(ctx context.Context) ([]Position, error)

	// GetPosition returns the position by raw name or ErrPositionNotFound.
	GetPosition(ctx context.Context, name string) (*Position, error)

	// SavePosition creates or fully replaces a position.
	SavePosition(ctx context.Context, p Position) error

	// DeletePosition removes a position. Positions are never deleted
	// automatically; this exists for explicit administration only.
	DeletePosition(ctx context.Context, name string) error
}
