/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements training.EmployeeStore, training.PositionCatalog, and
  promotion.RuleStore using SQLite. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  positions:        Catalog of roles and their required-course lists
  employees:        Training records (history/matrix/promotion as JSON)
  promotion_rules:  Promotion thresholds per current position

JSON COLUMNS:
  Ordered lists (history, required courses) and nested aggregates (matrix,
  promotion data) are stored as JSON documents. History and matrix are
  written by a single statement in SaveTrainingState, so a record can
  never be observed with a history that disagrees with its cached matrix.

AMBIGUITY ENFORCEMENT:
  idx_rules_position_norm is a UNIQUE index on the normalized current
  position. Two rules colliding on the same normalized position are a
  configuration inconsistency and are rejected at write time with
  promotion.AmbiguousRuleError, never resolved by pick-first at read time.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Bulk callers perform independent
  per-employee read-modify-write cycles; last write wins between
  concurrent writers on the same employee.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/compliance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - training/store.go: Interface definitions and atomicity contract
  - store/memory: In-memory implementation for tests/dev
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/compliance-engine/promotion"
	"github.com/warp/compliance-engine/training"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ training.EmployeeStore   = (*Store)(nil)
	_ training.PositionCatalog = (*Store)(nil)
	_ promotion.RuleStore      = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Position catalog
	CREATE TABLE IF NOT EXISTS positions (
		name TEXT PRIMARY KEY,
		department TEXT NOT NULL DEFAULT '',
		required_courses_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Training records. History and matrix are only ever written together.
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		position_norm TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		history_json TEXT NOT NULL DEFAULT '[]',
		matrix_json TEXT NOT NULL DEFAULT '{}',
		promotion_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Position-match queries (bulk registration, re-reconciliation)
	CREATE INDEX IF NOT EXISTS idx_employees_position_norm
		ON employees(position_norm);

	-- Promotion rules
	CREATE TABLE IF NOT EXISTS promotion_rules (
		id TEXT PRIMARY KEY,
		current_position TEXT NOT NULL,
		current_position_norm TEXT NOT NULL,
		promotion_to TEXT NOT NULL,
		temporality_months INTEGER NOT NULL DEFAULT 0,
		exam_min_score REAL NOT NULL DEFAULT 0,
		matrix_min_coverage REAL NOT NULL DEFAULT 0,
		performance_min_score REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one rule per normalized position. Ambiguous rule
	-- configurations are rejected at write time, not resolved at read time.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_position_norm
		ON promotion_rules(current_position_norm);
	`
	_, err := s.db.Exec(schema)
	return err
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// POSITION CATALOG
// =============================================================================

// SavePosition creates or fully replaces a position.
func (s *Store) SavePosition(ctx context.Context, p training.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coursesJSON, err := json.Marshal(orEmptyCourses(p.RequiredCourses))
	if err != nil {
		return fmt.Errorf("marshal required courses: %w", err)
	}
	now := nowRFC3339()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO positions (name, department, required_courses_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			department = excluded.department,
			required_courses_json = excluded.required_courses_json,
			updated_at = excluded.updated_at`,
		p.Name, p.Department, string(coursesJSON), now, now)
	return err
}

// GetPosition returns a position by raw name.
func (s *Store) GetPosition(ctx context.Context, name string) (*training.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT name, department, required_courses_json
		FROM positions WHERE name = ?`, name)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, training.ErrPositionNotFound
	}
	return p, err
}

// ListPositions returns the full catalog ordered by name.
func (s *Store) ListPositions(ctx context.Context) ([]training.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, department, required_courses_json
		FROM positions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []training.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeletePosition removes a position by raw name.
func (s *Store) DeletePosition(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return training.ErrPositionNotFound
	}
	return nil
}

func scanPosition(row rowScanner) (*training.Position, error) {
	var p training.Position
	var coursesJSON string
	if err := row.Scan(&p.Name, &p.Department, &coursesJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(coursesJSON), &p.RequiredCourses); err != nil {
		return nil, fmt.Errorf("unmarshal required courses for %q: %w", p.Name, err)
	}
	return &p, nil
}

func orEmptyCourses(courses []training.CourseName) []training.CourseName {
	if courses == nil {
		return []training.CourseName{}
	}
	return courses
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee creates or fully replaces a training record.
func (s *Store) SaveEmployee(ctx context.Context, rec training.TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	historyJSON, matrixJSON, promotionJSON, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	now := nowRFC3339()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO employees
			(id, name, position, position_norm, department,
			 history_json, matrix_json, promotion_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			position_norm = excluded.position_norm,
			department = excluded.department,
			history_json = excluded.history_json,
			matrix_json = excluded.matrix_json,
			promotion_json = excluded.promotion_json,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Name, rec.Position, training.Normalize(rec.Position), rec.Department,
		historyJSON, matrixJSON, promotionJSON, now, now)
	return err
}

// GetEmployee returns a training record by id.
func (s *Store) GetEmployee(ctx context.Context, id string) (*training.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, position, department, history_json, matrix_json, promotion_json
		FROM employees WHERE id = ?`, id)
	rec, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, training.ErrEmployeeNotFound
	}
	return rec, err
}

// ListEmployees returns all training records ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]training.TrainingRecord, error) {
	return s.listEmployees(ctx, `
		SELECT id, name, position, department, history_json, matrix_json, promotion_json
		FROM employees ORDER BY name`)
}

// ListEmployeesByPosition returns records whose position normalizes to the
// same form as the given name.
func (s *Store) ListEmployeesByPosition(ctx context.Context, position string) ([]training.TrainingRecord, error) {
	return s.listEmployees(ctx, `
		SELECT id, name, position, department, history_json, matrix_json, promotion_json
		FROM employees WHERE position_norm = ? ORDER BY name`,
		training.Normalize(position))
}

func (s *Store) listEmployees(ctx context.Context, query string, args ...any) ([]training.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []training.TrainingRecord
	for rows.Next() {
		rec, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// SaveTrainingState replaces history and matrix together in a single
// statement. There is deliberately no way to persist one without the other.
func (s *Store) SaveTrainingState(ctx context.Context, id string, history []training.HistoryEntry, matrix training.ComplianceMatrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	historyJSON, err := json.Marshal(orEmptyHistory(history))
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	matrixJSON, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("marshal matrix: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees SET history_json = ?, matrix_json = ?, updated_at = ?
		WHERE id = ?`,
		string(historyJSON), string(matrixJSON), nowRFC3339(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return training.ErrEmployeeNotFound
	}
	return nil
}

// SavePromotionData replaces the promotion fields of a record.
func (s *Store) SavePromotionData(ctx context.Context, id string, pd training.PromotionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	promotionJSON, err := json.Marshal(pd)
	if err != nil {
		return fmt.Errorf("marshal promotion data: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE employees SET promotion_json = ?, updated_at = ? WHERE id = ?`,
		string(promotionJSON), nowRFC3339(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return training.ErrEmployeeNotFound
	}
	return nil
}

func marshalRecord(rec training.TrainingRecord) (history, matrix, promo string, err error) {
	h, err := json.Marshal(orEmptyHistory(rec.History))
	if err != nil {
		return "", "", "", fmt.Errorf("marshal history: %w", err)
	}
	m, err := json.Marshal(rec.Matrix)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal matrix: %w", err)
	}
	p, err := json.Marshal(rec.Promotion)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal promotion data: %w", err)
	}
	return string(h), string(m), string(p), nil
}

func orEmptyHistory(history []training.HistoryEntry) []training.HistoryEntry {
	if history == nil {
		return []training.HistoryEntry{}
	}
	return history
}

func scanEmployee(row rowScanner) (*training.TrainingRecord, error) {
	var rec training.TrainingRecord
	var historyJSON, matrixJSON, promotionJSON string
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Position, &rec.Department,
		&historyJSON, &matrixJSON, &promotionJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(historyJSON), &rec.History); err != nil {
		return nil, fmt.Errorf("unmarshal history for %q: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(matrixJSON), &rec.Matrix); err != nil {
		return nil, fmt.Errorf("unmarshal matrix for %q: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(promotionJSON), &rec.Promotion); err != nil {
		return nil, fmt.Errorf("unmarshal promotion data for %q: %w", rec.ID, err)
	}
	return &rec, nil
}

// =============================================================================
// PROMOTION RULES
// =============================================================================

// SaveRule creates or fully replaces a rule. A rule whose normalized
// current position collides with a different existing rule is rejected
// with promotion.AmbiguousRuleError.
func (s *Store) SaveRule(ctx context.Context, r promotion.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := training.Normalize(r.CurrentPosition)

	var existingID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM promotion_rules
		WHERE current_position_norm = ? AND id != ?`, norm, r.ID).Scan(&existingID)
	switch {
	case err == nil:
		return &promotion.AmbiguousRuleError{Position: norm, RuleIDs: []string{existingID, r.ID}}
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	now := nowRFC3339()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO promotion_rules
			(id, current_position, current_position_norm, promotion_to,
			 temporality_months, exam_min_score, matrix_min_coverage,
			 performance_min_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_position = excluded.current_position,
			current_position_norm = excluded.current_position_norm,
			promotion_to = excluded.promotion_to,
			temporality_months = excluded.temporality_months,
			exam_min_score = excluded.exam_min_score,
			matrix_min_coverage = excluded.matrix_min_coverage,
			performance_min_score = excluded.performance_min_score,
			updated_at = excluded.updated_at`,
		r.ID, r.CurrentPosition, norm, r.PromotionTo,
		r.TemporalityMonths, r.ExamMinScore, r.MatrixMinCoverage,
		r.PerformanceMinScore, now, now)
	return err
}

// ListRules returns all rules ordered by current position.
func (s *Store) ListRules(ctx context.Context) ([]promotion.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, current_position, promotion_to, temporality_months,
		       exam_min_score, matrix_min_coverage, performance_min_score
		FROM promotion_rules ORDER BY current_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []promotion.Rule
	for rows.Next() {
		var r promotion.Rule
		if err := rows.Scan(&r.ID, &r.CurrentPosition, &r.PromotionTo,
			&r.TemporalityMonths, &r.ExamMinScore, &r.MatrixMinCoverage,
			&r.PerformanceMinScore); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRule removes a rule by id.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM promotion_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return promotion.ErrRuleNotFound
	}
	return nil
}
