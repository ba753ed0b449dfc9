// Package runner schedules filtered tests for execution, serially on a
// trampolined queue or concurrently under a semaphore, and reduces the
// event stream into a run result.
package runner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/filter"
	"github.com/specforge/specforge/fixture"
	"github.com/specforge/specforge/future"
	"github.com/specforge/specforge/metrics"
	"github.com/specforge/specforge/registry"
	"github.com/specforge/specforge/types"
)

// Config holds configuration for creating a new runner.
type Config struct {
	SuiteID   string
	SuiteName string
	Registry  *registry.Registry
	Filter    *filter.Filter
	Binder    *fixture.Binder
	Reporter  events.Reporter
	Log       log.Logger

	// Parallel runs tests within each scope concurrently instead of in
	// declaration order. Scope boundaries still execute in order.
	Parallel       bool
	MaxConcurrency int64

	// Shuffle randomizes the start order of concurrent tests. The seed
	// string makes a shuffle reproducible; empty derives one from the
	// run ID.
	Shuffle     bool
	ShuffleSeed string

	RunID string
}

// Runner executes one suite's filtered tests and publishes lifecycle
// events while doing so.
type Runner struct {
	cfg        Config
	dispatcher *events.Dispatcher
	tracer     trace.Tracer
	log        log.Logger
}

// New creates a runner. The registry must already hold the suite's
// registrations; the runner closes the registration phase when the run
// starts.
func New(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Filter == nil {
		cfg.Filter = filter.Default(types.DefaultCatalog())
	}
	if cfg.Binder == nil {
		cfg.Binder = &fixture.Binder{}
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = int64(runtime.NumCPU())
	}
	if cfg.SuiteName == "" {
		cfg.SuiteName = "unnamed suite"
	}
	return &Runner{
		cfg:        cfg,
		dispatcher: events.NewDispatcher(cfg.Reporter, cfg.SuiteID, cfg.SuiteName),
		tracer:     otel.Tracer("test runner"),
		log:        cfg.Log,
	}, nil
}

// Dispatcher exposes the runner's event dispatcher so the embedding suite
// can route late diagnostics through it.
func (r *Runner) Dispatcher() *events.Dispatcher {
	return r.dispatcher
}

// Run launches the suite asynchronously and returns immediately with a
// status handle. Registration is closed as a side effect; tests that try
// to register from inside a body observe the closed phase.
func (r *Runner) Run(ctx context.Context) *RunStatus {
	status := newRunStatus()

	runID := r.cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	r.cfg.Registry.CloseRegistration()

	result := &Result{
		RunID:     runID,
		SuiteName: r.cfg.SuiteName,
		Started:   time.Now(),
	}

	plan, err := buildPlan(r.cfg.Registry.Root(), r.cfg.Filter)
	if err != nil {
		r.log.Error("Run plan construction failed", "suite", r.cfg.SuiteName, "err", err)
		metrics.RecordErrorDetails("plan", err)
		r.dispatcher.Fire(events.Event{Kind: events.RunStarting, Message: r.cfg.SuiteName})
		r.finish(result, status, err)
		return status
	}

	r.log.Debug("Starting run", "suite", r.cfg.SuiteName, "run_id", runID,
		"tests", testCount(plan), "parallel", r.cfg.Parallel)

	ctx, span := r.tracer.Start(ctx, "suite run",
		trace.WithAttributes(attribute.String("suite", r.cfg.SuiteName), attribute.String("run_id", runID)))
	status.WhenCompleted(func(bool, error) { span.End() })

	r.dispatcher.Fire(events.Event{
		Kind:    events.RunStarting,
		Message: fmt.Sprintf("%s: %d tests", r.cfg.SuiteName, testCount(plan)),
	})

	if r.cfg.Parallel {
		go r.runParallel(ctx, plan, result, status)
	} else {
		r.runSerial(ctx, plan, result, status)
	}
	return status
}

// finish stamps the result, emits the closing run event and resolves the
// status exactly once.
func (r *Runner) finish(result *Result, status *RunStatus, abortErr error) {
	result.Finished = time.Now()
	result.AbortErr = abortErr

	if abortErr != nil {
		r.dispatcher.Fire(events.Event{
			Kind:      events.RunAborted,
			Message:   abortErr.Error(),
			Throwable: events.NewThrowable(abortErr, nil),
		})
		r.log.Error("Run aborted", "suite", r.cfg.SuiteName, "run_id", result.RunID, "err", abortErr)
	} else {
		r.dispatcher.Fire(events.Event{
			Kind:    events.RunCompleted,
			Message: fmt.Sprintf("%d tests, %d failed", result.Stats.Total, result.Stats.Failed),
		})
	}

	metrics.RecordRun(r.cfg.SuiteName, result.RunID, result.Status(), result.Duration())
	status.complete(result, abortErr)
}

// runSerial drives the plan on the shared callback queue. Each test's
// completion schedules the next step through the queue rather than
// calling into it, so runs of any length keep a flat stack even when
// every body chains asynchronous continuations.
func (r *Runner) runSerial(ctx context.Context, plan []action, result *Result, status *RunStatus) {
	var step func(i int)
	step = func(i int) {
		for i < len(plan) {
			if err := ctx.Err(); err != nil {
				r.finish(result, status, err)
				return
			}
			act := plan[i]
			switch act.kind {
			case actionScopeOpen:
				r.dispatcher.Fire(events.Event{Kind: events.ScopeOpened, Message: act.scope.Name})
			case actionScopeClose:
				r.dispatcher.Fire(events.Event{Kind: events.ScopeClosed, Message: act.scope.Name})
			case actionDiagnostic:
				r.dispatcher.Fire(events.Event{Kind: act.diag.Kind, Message: act.diag.Message})
			case actionIgnored:
				r.reportIgnored(result, act.entry)
			case actionTest:
				entry := act.entry
				rec := r.dispatcher.BeginTest(entry.FullName, true)
				started := time.Now()
				fut := r.cfg.Binder.Invoke(ctx, entry.FullName, entry.Body, rec)
				next := i + 1
				fut.OnComplete(func(err error) {
					// Fatal errors never become a test outcome; the run
					// abort is their only report.
					if types.IsFatal(err) {
						r.finish(result, status, err)
						return
					}
					outcome := types.ClassifyError(err, entry.Location)
					outcome.Duration = time.Since(started)
					r.dispatcher.EndTest(entry.FullName, outcome, rec)
					result.record(entry.FullName, outcome)
					metrics.RecordTest(r.cfg.SuiteName, result.RunID, outcome.Status, outcome.Duration)
					step(next)
				})
				return
			}
			i++
		}
		r.finish(result, status, nil)
	}
	future.DefaultExecutor().Submit(func() { step(0) })
}

func (r *Runner) reportIgnored(result *Result, entry *registry.Entry) {
	outcome := types.Outcome{Status: types.TestStatusIgnored}
	r.dispatcher.Fire(events.Event{
		Kind:     events.TestIgnored,
		TestName: entry.FullName,
		Status:   types.TestStatusIgnored,
	})
	result.record(entry.FullName, outcome)
	metrics.RecordTest(r.cfg.SuiteName, result.RunID, types.TestStatusIgnored, 0)
}
