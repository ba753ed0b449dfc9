// Package acceptance bundles the self-check suites shipped with the
// specforge binary. Running them verifies an installation end to end:
// registration, styles, fixtures, asynchronous bodies and reporting.
package acceptance

import (
	"context"
	"fmt"
	"strings"

	"github.com/specforge/specforge"
	"github.com/specforge/specforge/fixture"
	"github.com/specforge/specforge/future"
	"github.com/specforge/specforge/style"
)

// Definitions returns the self-check suites in the order they run.
func Definitions() []specforge.SuiteDefinition {
	return []specforge.SuiteDefinition{
		{Name: "engine smoke", Define: defineSmoke},
		{
			Name:    "feature grammar",
			Define:  defineFeatureGrammar,
			Options: []specforge.SuiteOption{specforge.WithStyle(style.FeatureStyle())},
		},
		{
			Name:   "fixture plumbing",
			Define: defineFixtures,
			Options: []specforge.SuiteOption{
				specforge.WithStyle(style.WordStyle()),
				specforge.WithFixture(newScratchBuffer),
			},
		},
	}
}

func defineSmoke(s *specforge.Suite) {
	s.Info("smoke suite covers sync, async and control-flow bodies")

	s.Test("strings concatenate", func() error {
		if got := "spec" + "forge"; got != "specforge" {
			return fmt.Errorf("unexpected concatenation %q", got)
		}
		return nil
	})

	s.Test("async bodies resolve", func() *future.Future {
		return future.Go(func() error {
			if 2+2 != 4 {
				return fmt.Errorf("arithmetic is broken")
			}
			return nil
		})
	})

	s.Test("pending marks unfinished work", func(t *fixture.TestContext) {
		t.Pending("deliberately unfinished")
	})

	s.Ignore("ignored tests never run", func() error {
		return fmt.Errorf("this body must not execute")
	})

	s.Test("diagnostics attach to the test", func(t *fixture.TestContext) {
		t.Note("recorded from inside the body")
	}, "reporting")
}

func defineFeatureGrammar(s *specforge.Suite) {
	dsl := style.FeatureDSL{R: s}

	dsl.Feature("composition", func() {
		dsl.Scenario("names carry the feature prefix", func() {})
		dsl.Scenario("sibling scenarios stay ordered", func() {})
	})

	dsl.Feature("isolation", func() {
		dsl.Scenario("each feature scopes its scenarios", func() {})
	})
}

func defineFixtures(s *specforge.Suite) {
	dsl := style.WordDSL{R: s}

	dsl.Describe("a scratch buffer", func() {
		dsl.It("starts empty", func(t *fixture.TestContext) error {
			buf := t.Fixture().(*strings.Builder)
			if buf.Len() != 0 {
				return fmt.Errorf("fixture arrived dirty: %q", buf.String())
			}
			return nil
		})

		dsl.When("written to", func() {
			dsl.It("accumulates", func(t *fixture.TestContext) error {
				buf := t.Fixture().(*strings.Builder)
				buf.WriteString("abc")
				if buf.String() != "abc" {
					return fmt.Errorf("unexpected contents %q", buf.String())
				}
				return nil
			})
		})
	})
}

// newScratchBuffer hands each one-arg test a fresh builder.
func newScratchBuffer(_ context.Context, _ string) (any, func() error, error) {
	return &strings.Builder{}, nil, nil
}
