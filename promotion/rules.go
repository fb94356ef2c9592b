/*
rules.go - Rule set keyed by normalized position, with ambiguity rejection

AMBIGUITY:
  Two rules whose CurrentPosition normalizes to the same form are a
  configuration inconsistency. The set refuses to build (and the rule
  store refuses to save) instead of silently picking one; callers surface
  the AmbiguousRuleError to whoever edits the configuration.

LOOKUP:
  ForPosition resolves by normalized name, mirroring the reconciler's
  matching, so "Operador de Montacargas" and "OPERADOR DE MONTACARGAS"
  select the same rule.
*/
package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/compliance-engine/training"
)

var (
	// ErrAmbiguousRule is wrapped by AmbiguousRuleError.
	ErrAmbiguousRule = errors.New("ambiguous promotion rule")

	// ErrRuleNotFound is returned by rule stores for unknown rule ids.
	ErrRuleNotFound = errors.New("promotion rule not found")
)

// AmbiguousRuleError reports two or more rules colliding on the same
// normalized position.
type AmbiguousRuleError struct {
	Position string   // normalized form the rules collide on
	RuleIDs  []string // ids of the colliding rules
}

func (e *AmbiguousRuleError) Error() string {
	return fmt.Sprintf("ambiguous promotion rules for position %q: %s",
		e.Position, strings.Join(e.RuleIDs, ", "))
}

func (e *AmbiguousRuleError) Unwrap() error { return ErrAmbiguousRule }

// RuleSet is an immutable collection of rules indexed by normalized
// current position.
type RuleSet struct {
	rules      []Rule
	byPosition map[string]int
}

// NewRuleSet builds a set, rejecting normalized-position collisions with
// an AmbiguousRuleError.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	s := &RuleSet{
		rules:      append([]Rule{}, rules...),
		byPosition: make(map[string]int, len(rules)),
	}
	for i, r := range s.rules {
		key := training.Normalize(r.CurrentPosition)
		if prev, dup := s.byPosition[key]; dup {
			return nil, &AmbiguousRuleError{
				Position: key,
				RuleIDs:  []string{s.rules[prev].ID, r.ID},
			}
		}
		s.byPosition[key] = i
	}
	return s, nil
}

// ForPosition returns the rule applying to a raw position name, matching
// by normalized form.
func (s *RuleSet) ForPosition(position string) (Rule, bool) {
	i, ok := s.byPosition[training.Normalize(position)]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// Rules returns all rules in insertion order.
func (s *RuleSet) Rules() []Rule {
	return append([]Rule{}, s.rules...)
}

// RuleStore persists promotion rules. Implementations must reject saves
// that would create a normalized-position collision (AmbiguousRuleError),
// enforcing ambiguity rejection at write time rather than read time.
type RuleStore interface {
	ListRules(ctx context.Context) ([]Rule, error)
	SaveRule(ctx context.Context, r Rule) error
	DeleteRule(ctx context.Context, id string) error
}
