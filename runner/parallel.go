package runner

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/semaphore"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/metrics"
	"github.com/specforge/specforge/types"
)

// runParallel walks the plan in order but executes each contiguous run
// of tests concurrently, bounded by the configured concurrency limit.
// Scope boundaries, diagnostics and ignored tests stay serialized, so
// scope open/close pairing in the event stream is identical to a serial
// run; only test starts within a scope are unordered.
func (r *Runner) runParallel(ctx context.Context, plan []action, result *Result, status *RunStatus) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(r.cfg.MaxConcurrency)

	i := 0
	for i < len(plan) {
		if err := ctx.Err(); err != nil {
			r.finish(result, status, err)
			return
		}
		act := plan[i]
		switch act.kind {
		case actionScopeOpen:
			r.dispatcher.Fire(events.Event{Kind: events.ScopeOpened, Message: act.scope.Name})
			i++
		case actionScopeClose:
			r.dispatcher.Fire(events.Event{Kind: events.ScopeClosed, Message: act.scope.Name})
			i++
		case actionDiagnostic:
			r.dispatcher.Fire(events.Event{Kind: act.diag.Kind, Message: act.diag.Message})
			i++
		case actionIgnored:
			r.reportIgnored(result, act.entry)
			i++
		case actionTest:
			j := i
			for j < len(plan) && plan[j].kind == actionTest {
				j++
			}
			if abortErr := r.runBatch(ctx, cancel, sem, plan[i:j], result); abortErr != nil {
				r.finish(result, status, abortErr)
				return
			}
			i = j
		}
	}
	r.finish(result, status, nil)
}

// runBatch executes one contiguous group of tests concurrently and blocks
// until every member has terminated. The returned error is the first
// fatal error observed; a fatal error also cancels the batch context so
// in-flight siblings can bail out.
func (r *Runner) runBatch(ctx context.Context, cancel context.CancelFunc, sem *semaphore.Weighted, batch []action, result *Result) error {
	order := make([]int, len(batch))
	for k := range order {
		order[k] = k
	}
	if r.cfg.Shuffle {
		seed := r.cfg.ShuffleSeed
		if seed == "" {
			seed = result.RunID
		}
		rng := rand.New(rand.NewSource(int64(xxhash.Sum64String(seed))))
		rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		abortErr error
	)
	for _, k := range order {
		entry := batch[k].entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			if ctx.Err() != nil {
				return
			}

			rec := r.dispatcher.BeginTest(entry.FullName, false)
			started := time.Now()
			fut := r.cfg.Binder.Invoke(ctx, entry.FullName, entry.Body, rec)
			err := fut.Wait(ctx)

			// Fatal errors never become a test outcome; the run abort is
			// their only report.
			if types.IsFatal(err) {
				mu.Lock()
				if abortErr == nil {
					abortErr = err
				}
				mu.Unlock()
				cancel()
				return
			}

			outcome := types.ClassifyError(err, entry.Location)
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				// The run was torn down underneath the test, not a
				// genuine body failure.
				outcome = types.Outcome{Status: types.TestStatusCanceled, Err: err}
			}
			outcome.Duration = time.Since(started)
			r.dispatcher.EndTest(entry.FullName, outcome, rec)

			mu.Lock()
			result.record(entry.FullName, outcome)
			mu.Unlock()
			metrics.RecordTest(r.cfg.SuiteName, result.RunID, outcome.Status, outcome.Duration)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return abortErr
}
