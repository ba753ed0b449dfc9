package specforge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/exitcodes"
	"github.com/specforge/specforge/filter"
	"github.com/specforge/specforge/logging"
	"github.com/specforge/specforge/reporting"
	"github.com/specforge/specforge/runner"
	"github.com/specforge/specforge/types"
)

// Lifecycle is the minimal start/stop contract the harness satisfies for
// its host process.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stopped() bool
}

var _ Lifecycle = &Harness{}

// SuiteDefinition declares one suite the harness should build and run.
// The define callback re-runs for every scheduled run, so each run gets a
// fresh registry.
type SuiteDefinition struct {
	Name    string
	Define  func(*Suite)
	Options []SuiteOption
}

// Harness drives one or more suites: it builds them, runs them once or on
// an interval, renders results and persists run artifacts.
type Harness struct {
	ctx         context.Context
	config      *Config
	version     string
	definitions []SuiteDefinition
	scheduler   RunScheduler

	mu      sync.Mutex
	results []*runner.Result

	running          atomic.Bool
	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates a harness for the given suite definitions.
func New(ctx context.Context, config *Config, version string, definitions []SuiteDefinition, shutdownCallback func(error)) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(definitions) == 0 {
		return nil, errors.New("at least one suite definition is required")
	}
	for _, def := range definitions {
		if def.Name == "" {
			return nil, errors.New("every suite definition needs a name")
		}
		if def.Define == nil {
			return nil, fmt.Errorf("suite %q has no define callback", def.Name)
		}
	}

	config.Log.Debug("Creating harness",
		"suites", len(definitions),
		"logDir", config.LogDir,
		"runInterval", config.RunInterval,
		"parallel", config.Parallel)

	return &Harness{
		ctx:              ctx,
		config:           config,
		version:          version,
		definitions:      definitions,
		scheduler:        NewIntervalScheduler(config.RunInterval, config.RunInterval == 0, config.Log),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the suites once or periodically at the configured interval.
// Start implements the Lifecycle interface.
func (h *Harness) Start(ctx context.Context) error {
	// Panics escaping a run are operational failures, exit code 2
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	h.ctx = ctx
	h.running.Store(true)

	if h.config.RunOnce {
		h.config.Log.Info("Starting specforge in run-once mode", "version", h.version)
	} else {
		h.config.Log.Info("Starting specforge in continuous mode", "version", h.version, "interval", h.config.RunInterval)
	}

	h.scheduler.RegisterCallback(h.runAll)

	if err := h.scheduler.Start(ctx); err != nil {
		if IsTestFailureError(err) || IsRuntimeError(err) {
			return err
		}
		h.config.Log.Error("Runtime error running suites", "error", err)
		return NewRuntimeError(err)
	}

	if h.config.RunOnce {
		h.config.Log.Info("Suites completed, exiting (run-once mode)")
		go func() {
			h.shutdownCallback(nil)
		}()
	}
	return nil
}

// Stop stops the harness. Stop implements the Lifecycle interface.
func (h *Harness) Stop(ctx context.Context) error {
	if !h.running.Load() {
		return nil
	}
	h.running.Store(false)
	if err := h.scheduler.Stop(); err != nil {
		return err
	}
	return h.scheduler.WaitForShutdown(ctx)
}

// Stopped reports whether the harness has been stopped.
func (h *Harness) Stopped() bool {
	return !h.running.Load()
}

// Results returns the results of the most recent run, one per suite.
func (h *Harness) Results() []*runner.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*runner.Result, len(h.results))
	copy(out, h.results)
	return out
}

// runAll executes every defined suite once under a shared run ID.
func (h *Harness) runAll() error {
	runID := uuid.New().String()
	start := time.Now()
	h.config.Log.Info("Starting run", "run_id", runID)

	fileLogger, err := logging.NewFileLogger(h.config.LogDir, runID)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create file logger: %w", err))
	}

	console := reporting.NewConsoleSink(os.Stdout, h.config.Colors)
	results := make([]*runner.Result, len(h.definitions))

	runSuite := func(i int, def SuiteDefinition) error {
		suite, err := NewSuite(def.Name, def.Define, def.Options...)
		if err != nil {
			return NewRuntimeError(err)
		}

		fl, err := filter.New(types.DefaultCatalog(),
			h.config.IncludeTags, h.config.ExcludeTags, h.config.FilterExpr, h.config.NameGlobs)
		if err != nil {
			return NewRuntimeError(err)
		}

		status, err := suite.Run(h.ctx, RunOptions{
			Filter:         fl,
			Reporters:      []events.Reporter{console, fileLogger},
			Log:            h.config.Log,
			Parallel:       h.config.Parallel,
			MaxConcurrency: int64(h.config.Concurrency),
			Shuffle:        h.config.Shuffle,
			ShuffleSeed:    h.config.ShuffleSeed,
			RunID:          runID,
		})
		if err != nil {
			return NewRuntimeError(err)
		}

		if err := status.WaitUntilCompleted(h.ctx); err != nil {
			return NewRuntimeError(fmt.Errorf("suite %q aborted: %w", def.Name, err))
		}
		results[i] = status.Result()
		return nil
	}

	var runErr error
	if h.config.Parallel && len(h.definitions) > 1 {
		g := new(errgroup.Group)
		if h.config.Concurrency > 0 {
			g.SetLimit(h.config.Concurrency)
		}
		for i, def := range h.definitions {
			i, def := i, def
			g.Go(func() error { return runSuite(i, def) })
		}
		runErr = g.Wait()
	} else {
		for i, def := range h.definitions {
			if runErr = runSuite(i, def); runErr != nil {
				break
			}
		}
	}

	if err := fileLogger.Complete(); err != nil {
		h.config.Log.Error("Failed to finalize run artifacts", "error", err)
	}

	if runErr != nil {
		return runErr
	}

	h.mu.Lock()
	h.results = results
	h.mu.Unlock()

	h.displayResults(results)
	h.config.Log.Info("Run complete", "run_id", runID, "duration", time.Since(start),
		"artifacts", fileLogger.GetDirectory())

	if failed := failedSuites(results); len(failed) > 0 {
		return NewTestFailureError(fmt.Sprintf("suites failed: %s", strings.Join(failed, ", ")))
	}
	return nil
}

func (h *Harness) displayResults(results []*runner.Result) {
	formatter := &reporting.SummaryFormatter{Colors: h.config.Colors}
	writer := reporting.NewStdoutWriter()
	for _, res := range results {
		if res == nil {
			continue
		}
		if err := writer.Write(formatter.Format(res)); err != nil {
			h.config.Log.Error("Failed to write summary", "error", err)
		}
	}
}

func failedSuites(results []*runner.Result) []string {
	var failed []string
	for _, res := range results {
		if res != nil && !res.Succeeded() {
			failed = append(failed, res.SuiteName)
		}
	}
	return failed
}
