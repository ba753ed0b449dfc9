package runner

import (
	"time"

	"github.com/specforge/specforge/types"
)

// TestRecord is one test's outcome within a completed run, in execution
// report order.
type TestRecord struct {
	Name    string
	Outcome types.Outcome
}

// ResultStats tracks outcome counts for one run.
type ResultStats struct {
	Total     int
	Succeeded int
	Failed    int
	Pending   int
	Canceled  int
	Ignored   int
}

// Result captures one completed (or aborted) suite run.
type Result struct {
	RunID     string
	SuiteName string
	Started   time.Time
	Finished  time.Time
	Records   []TestRecord
	Stats     ResultStats

	// AbortErr is the fatal error that cut the run short, nil for runs
	// that went to completion.
	AbortErr error
}

// Duration is the wall-clock span of the run.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Succeeded reports whether the run completed with no failed tests.
// Pending, canceled and ignored outcomes do not count against success.
func (r *Result) Succeeded() bool {
	return r.AbortErr == nil && r.Stats.Failed == 0
}

// Status collapses the run into a single status: aborted beats failed,
// failed beats everything else.
func (r *Result) Status() types.TestStatus {
	switch {
	case r.AbortErr != nil:
		return types.TestStatusAborted
	case r.Stats.Failed > 0:
		return types.TestStatusFailed
	default:
		return types.TestStatusSucceeded
	}
}

func (r *Result) record(name string, outcome types.Outcome) {
	r.Records = append(r.Records, TestRecord{Name: name, Outcome: outcome})
	r.Stats.Total++
	switch outcome.Status {
	case types.TestStatusSucceeded:
		r.Stats.Succeeded++
	case types.TestStatusFailed:
		r.Stats.Failed++
	case types.TestStatusPending:
		r.Stats.Pending++
	case types.TestStatusCanceled:
		r.Stats.Canceled++
	case types.TestStatusIgnored:
		r.Stats.Ignored++
	}
}
