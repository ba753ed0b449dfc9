// Package specforge is an asynchronous test registration and execution
// engine. A suite collects named tests during a construction phase, then
// runs them serially or in parallel while streaming ordered lifecycle
// events to any number of reporters.
package specforge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/filter"
	"github.com/specforge/specforge/fixture"
	"github.com/specforge/specforge/registry"
	"github.com/specforge/specforge/reporting"
	"github.com/specforge/specforge/runner"
	"github.com/specforge/specforge/style"
	"github.com/specforge/specforge/types"
)

// Suite is one named collection of tests. Registration happens inside the
// define callback passed to NewSuite; once any test body starts executing
// the suite is sealed and further registration attempts fail.
type Suite struct {
	name    string
	catalog types.TagCatalog
	style   *style.Style
	reg     *registry.Registry
	binder  *fixture.Binder

	dispatcher atomic.Pointer[events.Dispatcher]
}

// SuiteOption customizes a suite before its define callback runs.
type SuiteOption func(*Suite)

// WithStyle selects the naming and nesting grammar. The default is the
// flat describe grammar.
func WithStyle(st *style.Style) SuiteOption {
	return func(s *Suite) { s.style = st }
}

// WithCatalog overrides the reserved tag names.
func WithCatalog(catalog types.TagCatalog) SuiteOption {
	return func(s *Suite) { s.catalog = catalog }
}

// WithFixture installs the setup used by one-argument test bodies. No-arg
// bodies never trigger it.
func WithFixture(setup fixture.Setup) SuiteOption {
	return func(s *Suite) { s.binder.Setup = setup }
}

// WithAround wraps every test invocation, regardless of body arity.
func WithAround(around fixture.Around) SuiteOption {
	return func(s *Suite) {
		s.binder.AroundNoArg = around
		s.binder.AroundOneArg = around
	}
}

// NewSuite constructs a suite by running define. Registration mistakes
// made during define (duplicate names, null tags, forbidden nesting,
// unsupported body shapes) abort construction and are returned as the
// error; no partially constructed suite escapes.
func NewSuite(name string, define func(*Suite), opts ...SuiteOption) (s *Suite, err error) {
	s = &Suite{
		name:    name,
		catalog: types.DefaultCatalog(),
		style:   style.FlatStyle(),
		binder:  &fixture.Binder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reg = registry.New(s.style, s.catalog)

	defer func() {
		if r := recover(); r != nil {
			s = nil
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("suite %q definition failed: %w", name, rerr)
				return
			}
			err = fmt.Errorf("suite %q definition failed: panic: %v", name, r)
		}
	}()
	if define != nil {
		define(s)
	}
	return s, nil
}

// Name returns the suite's display name.
func (s *Suite) Name() string { return s.name }

// TestNames returns the fully qualified test names in declaration order.
func (s *Suite) TestNames() []string { return s.reg.TestNames() }

// Registry exposes the underlying registration tree.
func (s *Suite) Registry() *registry.Registry { return s.reg }

// Outline renders the registration tree without running anything.
func (s *Suite) Outline() string {
	return reporting.Outline(s.name, s.reg.Root(), s.catalog)
}

// Test registers a test body under the current scope. Supported body
// shapes take no argument or a *fixture.TestContext, and may return
// nothing, an error, or a *future.Future. Registration errors panic; they
// surface as the NewSuite error during construction or, from inside a
// running test, as that test's failure.
func (s *Suite) Test(name string, body any, tags ...string) {
	if err := s.reg.RegisterTest(name, body, false, types.CallerLocation(1), tags...); err != nil {
		panic(err)
	}
}

// Ignore registers a test that is reported as ignored instead of run.
func (s *Suite) Ignore(name string, body any, tags ...string) {
	if err := s.reg.RegisterTest(name, body, true, types.CallerLocation(1), tags...); err != nil {
		panic(err)
	}
}

// Scope opens a named scope for the duration of body. The clause must be
// part of the suite's style grammar.
func (s *Suite) Scope(clause style.Clause, name string, body func()) {
	if err := s.reg.OpenScope(clause, name, body); err != nil {
		panic(err)
	}
}

// RegisterTest implements style.Registrar for the DSL adapters.
func (s *Suite) RegisterTest(name string, body any, tags ...string) {
	if err := s.reg.RegisterTest(name, body, false, types.CallerLocation(2), tags...); err != nil {
		panic(err)
	}
}

// RegisterIgnored implements style.Registrar for the DSL adapters.
func (s *Suite) RegisterIgnored(name string, body any, tags ...string) {
	if err := s.reg.RegisterTest(name, body, true, types.CallerLocation(2), tags...); err != nil {
		panic(err)
	}
}

// RegisterScope implements style.Registrar for the DSL adapters.
func (s *Suite) RegisterScope(clause style.Clause, name string, body func()) {
	if err := s.reg.OpenScope(clause, name, body); err != nil {
		panic(err)
	}
}

// Info emits an informational diagnostic. During construction it is woven
// into the suite narrative at its declaration position; during a run it
// goes to the active test's recorded events in serial mode or straight to
// the reporters otherwise.
func (s *Suite) Info(format string, args ...any) {
	s.diagnostic(events.InfoProvided, format, args...)
}

// Note emits a notice-level diagnostic.
func (s *Suite) Note(format string, args ...any) {
	s.diagnostic(events.NoteProvided, format, args...)
}

// Alert emits an alert-level diagnostic.
func (s *Suite) Alert(format string, args ...any) {
	s.diagnostic(events.AlertProvided, format, args...)
}

// Markup emits a formatted-text diagnostic.
func (s *Suite) Markup(text string) {
	s.diagnostic(events.MarkupProvided, "%s", text)
}

func (s *Suite) diagnostic(kind events.Kind, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	if s.reg.Phase() == registry.PhaseOpen {
		if err := s.reg.AddDiagnostic(kind, message); err == nil {
			return
		}
	}
	if d := s.dispatcher.Load(); d != nil {
		d.FireDiagnostic(kind, message)
	}
}

// RunOptions configure one execution of a suite.
type RunOptions struct {
	Filter    *filter.Filter
	Reporters []events.Reporter
	Log       log.Logger

	Parallel       bool
	MaxConcurrency int64
	Shuffle        bool
	ShuffleSeed    string

	RunID string
}

// Run launches the suite and returns a status handle immediately. The
// first Run seals registration; running a suite twice replays the same
// registrations under a fresh run ID.
func (s *Suite) Run(ctx context.Context, opts RunOptions) (*runner.RunStatus, error) {
	if opts.Filter == nil {
		opts.Filter = filter.Default(s.catalog)
	}

	r, err := runner.New(runner.Config{
		SuiteID:        s.name,
		SuiteName:      s.name,
		Registry:       s.reg,
		Filter:         opts.Filter,
		Binder:         s.binder,
		Reporter:       events.MultiReporter(opts.Reporters),
		Log:            opts.Log,
		Parallel:       opts.Parallel,
		MaxConcurrency: opts.MaxConcurrency,
		Shuffle:        opts.Shuffle,
		ShuffleSeed:    opts.ShuffleSeed,
		RunID:          opts.RunID,
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Store(r.Dispatcher())
	return r.Run(ctx), nil
}
