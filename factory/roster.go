/*
roster.go - JSON employee roster definitions

PURPOSE:
  Converts a JSON roster (the initial employee seed, typically exported
  from an HR system) into TrainingRecords. Records start with an empty
  history and a zero matrix; hydration against the position catalog
  happens where the roster is applied, not here.

JSON SCHEMA:
  [
    {
      "id": "emp-001",
      "name": "María González",
      "position": "Operador de Montacargas",
      "department": "Almacén"
    }
  ]
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/compliance-engine/training"
)

// EmployeeJSON is the JSON representation of one roster entry.
type EmployeeJSON struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

// ParseEmployee converts and validates one roster entry. A missing id is
// filled with a generated uuid.
func ParseEmployee(j EmployeeJSON) (training.TrainingRecord, error) {
	if j.Name == "" {
		return training.TrainingRecord{}, fmt.Errorf("employee %q: name is required", j.ID)
	}

	id := j.ID
	if id == "" {
		id = uuid.NewString()
	}
	return training.TrainingRecord{
		ID:         id,
		Name:       j.Name,
		Position:   j.Position,
		Department: j.Department,
		History:    []training.HistoryEntry{},
		Matrix:     training.ComputeMatrix(nil, nil),
	}, nil
}

// ParseRoster converts a JSON array of roster entries, rejecting duplicate
// ids within the batch.
func ParseRoster(raw []byte) ([]training.TrainingRecord, error) {
	var defs []EmployeeJSON
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("invalid roster JSON: %w", err)
	}

	seen := make(map[string]bool, len(defs))
	records := make([]training.TrainingRecord, 0, len(defs))
	for _, def := range defs {
		rec, err := ParseEmployee(def)
		if err != nil {
			return nil, err
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("duplicate employee id %q in roster", rec.ID)
		}
		seen[rec.ID] = true
		records = append(records, rec)
	}
	return records, nil
}
