// Package style defines the spec-style configuration tables. A style is
// data, not code: clause vocabulary, name-composition templates and a
// forbidden-nesting table. Every style translates to the same three engine
// primitives, so adding a style never touches the engine.
package style

import (
	"fmt"
	"strings"
)

// Clause identifies one grouping keyword of a spec style.
type Clause string

const (
	ClauseFeature  Clause = "feature"
	ClauseScenario Clause = "scenario"
	ClauseDescribe Clause = "describe"
	ClauseWhen     Clause = "when"
	ClauseShould   Clause = "should"
	ClauseMust     Clause = "must"
	ClauseThat     Clause = "that"
	ClauseWhich    Clause = "which"
	ClauseCan      Clause = "can"
)

// NestingRule forbids opening Inner inside Outer. When DirectOnly is set
// only immediate nesting is rejected; otherwise any ancestor of kind Outer
// rejects the registration.
type NestingRule struct {
	Outer      Clause
	Inner      Clause
	DirectOnly bool
}

// Style is one spec grammar: how scope and test names compose and which
// clause nestings its grammar rejects.
type Style struct {
	Name string

	// ScopeTokens maps each clause the style accepts as a scope to the
	// format template of its name contribution, e.g. "Feature: %s" or
	// "%s when". Clauses absent from the map cannot open scopes in this
	// style.
	ScopeTokens map[Clause]string

	// TestToken is the format template applied to test names, e.g.
	// "Scenario: %s". Empty means the test name is used verbatim.
	TestToken string

	// Separator joins scope tokens and the test token into the fully
	// qualified name.
	Separator string

	Forbidden []NestingRule
}

// ScopeToken renders the name contribution of a scope, or an error when the
// clause is not part of this style's grammar.
func (s *Style) ScopeToken(clause Clause, name string) (string, error) {
	tmpl, ok := s.ScopeTokens[clause]
	if !ok {
		return "", fmt.Errorf("style %s has no %s clause", s.Name, clause)
	}
	return fmt.Sprintf(tmpl, name), nil
}

// FormatTestName renders the name contribution of a test.
func (s *Style) FormatTestName(name string) string {
	if s.TestToken == "" {
		return name
	}
	return fmt.Sprintf(s.TestToken, name)
}

// ComposeName joins scope tokens and a test token into the fully qualified
// test or scope name.
func (s *Style) ComposeName(scopeTokens []string, leaf string) string {
	if len(scopeTokens) == 0 {
		return leaf
	}
	return strings.Join(scopeTokens, s.Separator) + s.Separator + leaf
}

// CheckNesting validates opening clause underneath the given ancestor
// clause stack (outermost first). It returns the violated rule's clauses
// when the style forbids the nesting.
func (s *Style) CheckNesting(ancestors []Clause, clause Clause) (outer Clause, ok bool) {
	for _, rule := range s.Forbidden {
		if rule.Inner != clause {
			continue
		}
		if rule.DirectOnly {
			if len(ancestors) > 0 && ancestors[len(ancestors)-1] == rule.Outer {
				return rule.Outer, false
			}
			continue
		}
		for _, a := range ancestors {
			if a == rule.Outer {
				return rule.Outer, false
			}
		}
	}
	return "", true
}

// FeatureStyle is the feature/scenario grammar: features group scenarios
// and cannot be nested inside one another.
func FeatureStyle() *Style {
	return &Style{
		Name: "feature",
		ScopeTokens: map[Clause]string{
			ClauseFeature: "Feature: %s",
		},
		TestToken: "Scenario: %s",
		Separator: " ",
		Forbidden: []NestingRule{
			{Outer: ClauseFeature, Inner: ClauseFeature},
		},
	}
}

// WordStyle is the subject/when/should grammar. Verb clauses cannot
// directly contain themselves ("should inside should" reads as a grammar
// slip, not intent), but may reappear deeper under an intervening clause.
func WordStyle() *Style {
	return &Style{
		Name: "word",
		ScopeTokens: map[Clause]string{
			ClauseDescribe: "%s",
			ClauseWhen:     "%s when",
			ClauseShould:   "%s should",
			ClauseMust:     "%s must",
			ClauseThat:     "%s that",
			ClauseWhich:    "%s which",
			ClauseCan:      "%s can",
		},
		Separator: " ",
		Forbidden: []NestingRule{
			{Outer: ClauseWhen, Inner: ClauseWhen, DirectOnly: true},
			{Outer: ClauseShould, Inner: ClauseShould, DirectOnly: true},
			{Outer: ClauseMust, Inner: ClauseMust, DirectOnly: true},
		},
	}
}

// FlatStyle is the minimal describe/it grammar with no nesting
// restrictions. It is the engine default.
func FlatStyle() *Style {
	return &Style{
		Name: "flat",
		ScopeTokens: map[Clause]string{
			ClauseDescribe: "%s",
		},
		Separator: " ",
	}
}
