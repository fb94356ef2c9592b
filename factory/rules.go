/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON promotion-rule and position-catalog definitions into
  domain structs. This enables configuration without code changes - HR
  can define rules and catalogs in JSON, and the factory creates the
  proper Go structs with validation and defaults applied.

JSON SCHEMA (rules):
  [
    {
      "id": "rule-operador",
      "current_position": "Operador de Montacargas",
      "promotion_to": "Supervisor de Almacén",
      "temporality_months": 6,
      "exam_min_score": 80,
      "matrix_min_coverage": 90,
      "performance_min_score": 80
    }
  ]

JSON SCHEMA (positions):
  [
    {
      "name": "Operador de Montacargas",
      "department": "Almacén",
      "required_courses": ["Manejo de Montacargas", "Seguridad Básica"]
    }
  ]

KEY FEATURES:
  - Validates required fields and score ranges
  - Generates ids (uuid) for rules that omit them
  - Deduplicates required courses by normalized name within one list
  - Rejects ambiguous rule sets (two rules on one normalized position)

SEE ALSO:
  - promotion/rules.go: RuleSet and ambiguity semantics
  - training/types.go: Position
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/compliance-engine/promotion"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a promotion rule.
type RuleJSON struct {
	ID                  string  `json:"id,omitempty"`
	CurrentPosition     string  `json:"current_position"`
	PromotionTo         string  `json:"promotion_to"`
	TemporalityMonths   int     `json:"temporality_months"`
	ExamMinScore        float64 `json:"exam_min_score"`
	MatrixMinCoverage   float64 `json:"matrix_min_coverage"`
	PerformanceMinScore float64 `json:"performance_min_score"`
}

// PositionJSON is the JSON representation of a catalog position.
type PositionJSON struct {
	Name            string   `json:"name"`
	Department      string   `json:"department"`
	RequiredCourses []string `json:"required_courses"`
}

// =============================================================================
// RULES
// =============================================================================

// ParseRule converts and validates a single rule definition. A missing id
// is filled with a generated uuid.
func ParseRule(j RuleJSON) (promotion.Rule, error) {
	if j.CurrentPosition == "" {
		return promotion.Rule{}, fmt.Errorf("rule %q: current_position is required", j.ID)
	}
	if j.PromotionTo == "" {
		return promotion.Rule{}, fmt.Errorf("rule for %q: promotion_to is required", j.CurrentPosition)
	}
	if j.TemporalityMonths < 0 {
		return promotion.Rule{}, fmt.Errorf("rule for %q: temporality_months must not be negative", j.CurrentPosition)
	}
	for name, score := range map[string]float64{
		"exam_min_score":        j.ExamMinScore,
		"matrix_min_coverage":   j.MatrixMinCoverage,
		"performance_min_score": j.PerformanceMinScore,
	} {
		if score < 0 || score > 100 {
			return promotion.Rule{}, fmt.Errorf("rule for %q: %s %v outside [0,100]", j.CurrentPosition, name, score)
		}
	}

	id := j.ID
	if id == "" {
		id = uuid.NewString()
	}
	return promotion.Rule{
		ID:                  id,
		CurrentPosition:     j.CurrentPosition,
		PromotionTo:         j.PromotionTo,
		TemporalityMonths:   j.TemporalityMonths,
		ExamMinScore:        j.ExamMinScore,
		MatrixMinCoverage:   j.MatrixMinCoverage,
		PerformanceMinScore: j.PerformanceMinScore,
	}, nil
}

// ParseRules converts a JSON array of rule definitions into a validated,
// unambiguous rule list. Ambiguity surfaces as promotion.AmbiguousRuleError.
func ParseRules(raw []byte) ([]promotion.Rule, error) {
	var defs []RuleJSON
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("invalid rules JSON: %w", err)
	}

	rules := make([]promotion.Rule, 0, len(defs))
	for _, def := range defs {
		r, err := ParseRule(def)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	// Building the set validates normalized-position uniqueness.
	if _, err := promotion.NewRuleSet(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// =============================================================================
// POSITIONS
// =============================================================================

// ParsePosition converts and validates a single position definition.
// Required courses are deduplicated by normalized name, keeping the first
// spelling and the original order.
func ParsePosition(j PositionJSON) (training.Position, error) {
	if j.Name == "" {
		return training.Position{}, fmt.Errorf("position: name is required")
	}

	seen := make(map[string]bool, len(j.RequiredCourses))
	courses := make([]training.CourseName, 0, len(j.RequiredCourses))
	for _, c := range j.RequiredCourses {
		key := training.Normalize(c)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		courses = append(courses, training.CourseName(c))
	}

	return training.Position{
		Name:            j.Name,
		Department:      j.Department,
		RequiredCourses: courses,
	}, nil
}

// ParsePositions converts a JSON array of position definitions.
func ParsePositions(raw []byte) ([]training.Position, error) {
	var defs []PositionJSON
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("invalid positions JSON: %w", err)
	}

	positions := make([]training.Position, 0, len(defs))
	for _, def := range defs {
		p, err := ParsePosition(def)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, nil
}
