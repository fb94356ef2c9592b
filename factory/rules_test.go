package factory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/compliance-engine/factory"
	"github.com/warp/compliance-engine/promotion"
	"github.com/warp/compliance-engine/training"
)

func TestParseRule_Valid(t *testing.T) {
	rule, err := factory.ParseRule(factory.RuleJSON{
		ID:                  "rule-1",
		CurrentPosition:     "Operador",
		PromotionTo:         "Supervisor",
		TemporalityMonths:   6,
		ExamMinScore:        80,
		MatrixMinCoverage:   90,
		PerformanceMinScore: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, "rule-1", rule.ID)
	assert.Equal(t, 6, rule.TemporalityMonths)
}

func TestParseRule_GeneratesMissingID(t *testing.T) {
	rule, err := factory.ParseRule(factory.RuleJSON{
		CurrentPosition: "Operador",
		PromotionTo:     "Supervisor",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
}

func TestParseRule_Validation(t *testing.T) {
	cases := map[string]factory.RuleJSON{
		"missing current_position": {PromotionTo: "Supervisor"},
		"missing promotion_to":     {CurrentPosition: "Operador"},
		"negative temporality":     {CurrentPosition: "Operador", PromotionTo: "Supervisor", TemporalityMonths: -1},
		"exam score too high":      {CurrentPosition: "Operador", PromotionTo: "Supervisor", ExamMinScore: 101},
		"negative coverage":        {CurrentPosition: "Operador", PromotionTo: "Supervisor", MatrixMinCoverage: -5},
	}
	for name, def := range cases {
		_, err := factory.ParseRule(def)
		assert.Error(t, err, name)
	}
}

func TestParseRules_RejectsAmbiguousSet(t *testing.T) {
	raw := []byte(`[
		{"id": "r1", "current_position": "Técnico Eléctrico", "promotion_to": "Supervisor"},
		{"id": "r2", "current_position": "tecnico electrico", "promotion_to": "Supervisor"}
	]`)

	_, err := factory.ParseRules(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, promotion.ErrAmbiguousRule))
}

func TestParseRules_ValidSet(t *testing.T) {
	raw := []byte(`[
		{"current_position": "Operador", "promotion_to": "Supervisor", "temporality_months": 6},
		{"current_position": "Supervisor", "promotion_to": "Gerente", "temporality_months": 12}
	]`)

	rules, err := factory.ParseRules(raw)
	require.NoError(t, err)
	require.Len(t, rules, 2)
}

func TestParsePosition_DeduplicatesCourses(t *testing.T) {
	pos, err := factory.ParsePosition(factory.PositionJSON{
		Name:       "Operador",
		Department: "Almacén",
		RequiredCourses: []string{
			"Seguridad Básica",
			"SEGURIDAD BASICA", // same course, different spelling
			"Manejo de Montacargas",
			"  ", // blank entries are dropped
		},
	})
	require.NoError(t, err)

	// First spelling and original order win.
	assert.Equal(t, []training.CourseName{"Seguridad Básica", "Manejo de Montacargas"}, pos.RequiredCourses)
}

func TestParsePosition_RequiresName(t *testing.T) {
	_, err := factory.ParsePosition(factory.PositionJSON{Department: "Almacén"})
	assert.Error(t, err)
}

func TestParseRoster(t *testing.T) {
	raw := []byte(`[
		{"id": "emp-1", "name": "María González", "position": "Operador"},
		{"name": "Juan Pérez", "position": "Supervisor", "department": "Almacén"}
	]`)

	records, err := factory.ParseRoster(raw)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "emp-1", records[0].ID)
	assert.NotEmpty(t, records[1].ID)
	assert.NotNil(t, records[0].History)
	require.NoError(t, records[0].Matrix.Validate())
}

func TestParseRoster_RejectsDuplicateIDs(t *testing.T) {
	raw := []byte(`[
		{"id": "emp-1", "name": "Ana"},
		{"id": "emp-1", "name": "Beto"}
	]`)

	_, err := factory.ParseRoster(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate employee id")
}

func TestParseRoster_RequiresName(t *testing.T) {
	_, err := factory.ParseRoster([]byte(`[{"id": "emp-1"}]`))
	assert.Error(t, err)
}
