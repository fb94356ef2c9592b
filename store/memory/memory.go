// Package memory provides in-memory Store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/compliance-engine/promotion"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of all storage interfaces
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	positions map[string]training.Position       // by raw name
	employees map[string]training.TrainingRecord // by id
	rules     map[string]promotion.Rule          // by id
}

var (
	_ training.EmployeeStore   = (*Store)(nil)
	_ training.PositionCatalog = (*Store)(nil)
	_ promotion.RuleStore      = (*Store)(nil)
)

func New() *Store {
	return &Store{
		positions: make(map[string]training.Position),
		employees: make(map[string]training.TrainingRecord),
		rules:     make(map[string]promotion.Rule),
	}
}

// Positions

func (s *Store) SavePosition(_ context.Context, p training.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.Name] = p
	return nil
}

func (s *Store) GetPosition(_ context.Context, name string) (*training.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[name]
	if !ok {
		return nil, training.ErrPositionNotFound
	}
	return &p, nil
}

func (s *Store) ListPositions(_ context.Context) ([]training.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]training.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeletePosition(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[name]; !ok {
		return training.ErrPositionNotFound
	}
	delete(s.positions, name)
	return nil
}

// Employees

func (s *Store) SaveEmployee(_ context.Context, rec training.TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[rec.ID] = rec
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id string) (*training.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.employees[id]
	if !ok {
		return nil, training.ErrEmployeeNotFound
	}
	return &rec, nil
}

func (s *Store) ListEmployees(_ context.Context) ([]training.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]training.TrainingRecord, 0, len(s.employees))
	for _, rec := range s.employees {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListEmployeesByPosition(_ context.Context, position string) ([]training.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := training.Normalize(position)
	var out []training.TrainingRecord
	for _, rec := range s.employees {
		if training.Normalize(rec.Position) == want {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveTrainingState(_ context.Context, id string, history []training.HistoryEntry, matrix training.ComplianceMatrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.employees[id]
	if !ok {
		return training.ErrEmployeeNotFound
	}
	rec.History = append([]training.HistoryEntry{}, history...)
	rec.Matrix = matrix
	s.employees[id] = rec
	return nil
}

func (s *Store) SavePromotionData(_ context.Context, id string, pd training.PromotionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.employees[id]
	if !ok {
		return training.ErrEmployeeNotFound
	}
	rec.Promotion = pd
	s.employees[id] = rec
	return nil
}

// Rules

func (s *Store) SaveRule(_ context.Context, r promotion.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	norm := training.Normalize(r.CurrentPosition)
	for _, existing := range s.rules {
		if existing.ID != r.ID && training.Normalize(existing.CurrentPosition) == norm {
			return &promotion.AmbiguousRuleError{Position: norm, RuleIDs: []string{existing.ID, r.ID}}
		}
	}
	s.rules[r.ID] = r
	return nil
}

func (s *Store) ListRules(_ context.Context) ([]promotion.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]promotion.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentPosition < out[j].CurrentPosition })
	return out, nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return promotion.ErrRuleNotFound
	}
	delete(s.rules, id)
	return nil
}
