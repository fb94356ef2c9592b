package training_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/compliance-engine/training"
)

func TestNormalize_StripsAccentsCaseAndWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"accents and trailing space", "Seguridad Básica ", "SEGURIDAD BASICA"},
		{"already canonical", "SEGURIDAD BASICA", "SEGURIDAD BASICA"},
		{"mixed case", "manejo de Montacargas", "MANEJO DE MONTACARGAS"},
		{"n with tilde folds to n", "Señalización", "SENALIZACION"},
		{"leading whitespace", "  Curso A", "CURSO A"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, training.Normalize(tt.in))
		})
	}
}

func TestNormalize_EquivalentSpellingsCollapse(t *testing.T) {
	// GIVEN: The same course recorded with different accents and casing
	// THEN: Both normalize to the same form
	assert.Equal(t,
		training.Normalize("Seguridad Básica"),
		training.Normalize("SEGURIDAD BASICA "))
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, s := range []string{"Seguridad Básica ", "curso ánimo", "", "YA NORMAL"} {
		once := training.Normalize(s)
		assert.Equal(t, once, training.Normalize(once), "normalize should be idempotent for %q", s)
	}
}

func TestNormalize_TildeFoldsLikeAnyCombiningMark(t *testing.T) {
	// NFD splits ñ into n + U+0303, which sits inside the stripped
	// U+0300-U+036F block, so "año" and "ano" collide after
	// normalization. Pin that behavior: it is the documented contract,
	// even though it merges distinct Spanish words.
	assert.Equal(t, "ANO", training.Normalize("año"))
	assert.Equal(t, training.Normalize("ano"), training.Normalize("año"))
}
