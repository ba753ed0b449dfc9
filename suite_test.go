package specforge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/fixture"
	"github.com/specforge/specforge/future"
	"github.com/specforge/specforge/style"
	"github.com/specforge/specforge/types"
)

func runSuite(t *testing.T, s *Suite, opts RunOptions) *events.Recorder {
	t.Helper()
	rec := events.NewRecorder()
	opts.Reporters = append(opts.Reporters, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	status, err := s.Run(ctx, opts)
	require.NoError(t, err)
	require.NoError(t, status.WaitUntilCompleted(ctx))
	return rec
}

func TestNewSuiteRegistersInDeclarationOrder(t *testing.T) {
	s, err := NewSuite("ordering", func(s *Suite) {
		s.Test("gamma", func() {})
		s.Test("alpha", func() {})
		s.Test("beta", func() {})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, s.TestNames())
}

func TestNewSuiteSurfacesDuplicateNames(t *testing.T) {
	_, err := NewSuite("dupes", func(s *Suite) {
		s.Test("same name", func() {})
		s.Test("same name", func() {})
	})
	require.Error(t, err)
	var dup *types.DuplicateNameError
	assert.ErrorAs(t, err, &dup)
}

func TestNewSuiteSurfacesNullTags(t *testing.T) {
	_, err := NewSuite("bad tags", func(s *Suite) {
		s.Test("tagged", func() {}, "db", "")
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "a test tag was null")
}

func TestNewSuiteSurfacesForbiddenNesting(t *testing.T) {
	_, err := NewSuite("nested features", func(s *Suite) {
		dsl := style.FeatureDSL{R: s}
		dsl.Feature("outer", func() {
			dsl.Feature("inner", func() {})
		})
	}, WithStyle(style.FeatureStyle()))
	require.Error(t, err)
	var nested *types.InvalidNestingError
	assert.ErrorAs(t, err, &nested)
}

func TestSuiteRunsAllBodyShapes(t *testing.T) {
	var calls []string
	s, err := NewSuite("shapes", func(s *Suite) {
		s.Test("plain", func() { calls = append(calls, "plain") })
		s.Test("erroring", func() error { calls = append(calls, "erroring"); return nil })
		s.Test("async", func() *future.Future {
			return future.Go(func() error {
				calls = append(calls, "async")
				return nil
			})
		})
		s.Test("contextual", func(tc *fixture.TestContext) {
			calls = append(calls, "contextual:"+tc.Name())
		})
	})
	require.NoError(t, err)

	rec := runSuite(t, s, RunOptions{})
	assert.Equal(t, []string{"plain", "erroring", "async", "contextual:contextual"}, calls)
	assert.Equal(t, 4, rec.Count(events.TestSucceeded))
}

func TestRegistrationInsideBodyFailsOnlyThatTest(t *testing.T) {
	var s *Suite
	var err error
	s, err = NewSuite("late registration", func(sd *Suite) {
		sd.Test("sneaky", func() {
			s.Test("added at runtime", func() {})
		})
		sd.Test("innocent", func() {})
	})
	require.NoError(t, err)

	rec := runSuite(t, s, RunOptions{})

	ev, ok := rec.TerminalFor("sneaky")
	require.True(t, ok)
	assert.Equal(t, events.TestFailed, ev.Kind)
	require.NotNil(t, ev.Throwable)
	assert.Contains(t, ev.Throwable.Message, "registration is closed")

	ev, ok = rec.TerminalFor("innocent")
	require.True(t, ok)
	assert.Equal(t, events.TestSucceeded, ev.Kind)
}

func TestFailureLocationPointsAtRegistrationSite(t *testing.T) {
	s, err := NewSuite("locations", func(s *Suite) {
		s.Test("direct registration", func() error {
			return errors.New("boom")
		})
		dsl := style.WordDSL{R: s}
		dsl.It("adapter registration", func() error {
			return errors.New("boom")
		})
	})
	require.NoError(t, err)

	rec := runSuite(t, s, RunOptions{})

	for _, name := range []string{"direct registration", "adapter registration"} {
		ev, ok := rec.TerminalFor(name)
		require.True(t, ok, name)
		require.NotNil(t, ev.Throwable, name)
		assert.True(t, strings.HasSuffix(ev.Throwable.FileName, "suite_test.go"),
			"%s reported from %s", name, ev.Throwable.FileName)
	}
}

func TestSuiteDiagnosticsRouteByPhase(t *testing.T) {
	var s *Suite
	var err error
	s, err = NewSuite("diag routing", func(sd *Suite) {
		sd.Info("declared before tests")
		sd.Test("noisy", func() {
			s.Note("emitted mid body")
		})
	})
	require.NoError(t, err)

	rec := runSuite(t, s, RunOptions{})

	// The declaration-time diagnostic is a top-level event.
	infos := rec.OfKind(events.InfoProvided)
	require.Len(t, infos, 1)
	assert.Equal(t, "declared before tests", infos[0].Message)

	// The in-body diagnostic rides on the terminal event.
	assert.Zero(t, rec.Count(events.NoteProvided))
	ev, ok := rec.TerminalFor("noisy")
	require.True(t, ok)
	require.Len(t, ev.RecordedEvents, 1)
	assert.Equal(t, "emitted mid body", ev.RecordedEvents[0].Message)
}

func TestFixtureOptionWiresSetupAndTeardown(t *testing.T) {
	var teardowns int
	s, err := NewSuite("fixtures", func(s *Suite) {
		s.Test("uses fixture", func(tc *fixture.TestContext) error {
			v, ok := tc.Fixture().(int)
			if !ok || v != 42 {
				return fmt.Errorf("unexpected fixture %v", tc.Fixture())
			}
			return nil
		})
		s.Test("no arg skips fixture", func() {})
	}, WithFixture(func(_ context.Context, _ string) (any, func() error, error) {
		return 42, func() error { teardowns++; return nil }, nil
	}))
	require.NoError(t, err)

	rec := runSuite(t, s, RunOptions{})
	assert.Equal(t, 2, rec.Count(events.TestSucceeded))
	assert.Equal(t, 1, teardowns, "only the one-arg body routes through setup")
}

func TestAroundOptionWrapsEveryBody(t *testing.T) {
	var wrapped []string
	s, err := NewSuite("around", func(s *Suite) {
		s.Test("first", func() {})
		s.Test("second", func(*fixture.TestContext) {})
	}, WithAround(func(tc *fixture.TestContext, invoke func() error) error {
		wrapped = append(wrapped, tc.Name())
		return invoke()
	}))
	require.NoError(t, err)

	runSuite(t, s, RunOptions{})
	assert.Equal(t, []string{"first", "second"}, wrapped)
}

func TestPendingAndCancelSignals(t *testing.T) {
	s, err := NewSuite("signals", func(s *Suite) {
		s.Test("pends", func(tc *fixture.TestContext) {
			tc.Pending("not built yet")
		})
		s.Test("cancels", func(tc *fixture.TestContext) {
			tc.Cancel(errors.New("environment missing"))
		})
	})
	require.NoError(t, err)

	rec := runSuite(t, s, RunOptions{})
	assert.Equal(t, 1, rec.Count(events.TestPending))
	assert.Equal(t, 1, rec.Count(events.TestCanceled))
	assert.Zero(t, rec.Count(events.TestFailed))
}

func TestWordStyleComposesFullNames(t *testing.T) {
	s, err := NewSuite("word style", func(s *Suite) {
		dsl := style.WordDSL{R: s}
		dsl.Describe("a parser", func() {
			dsl.When("given valid input", func() {
				dsl.It("produces a tree", func() {})
			})
		})
	}, WithStyle(style.WordStyle()))
	require.NoError(t, err)

	assert.Equal(t, []string{"a parser given valid input when produces a tree"}, s.TestNames())
}
