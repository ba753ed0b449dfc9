package runner

import (
	"context"
	"sync"

	"github.com/specforge/specforge/future"
)

// RunStatus tracks one run from launch to completion. Callbacks and
// waiters observe completion exactly once; registering after completion
// replays immediately.
type RunStatus struct {
	fut     *future.Future
	resolve func(error)

	mu     sync.Mutex
	result *Result
}

func newRunStatus() *RunStatus {
	fut, resolve := future.New()
	return &RunStatus{fut: fut, resolve: resolve}
}

// complete publishes the result and resolves the status. err is non-nil
// only for aborted runs; test failures complete with a nil error and a
// failed result.
func (s *RunStatus) complete(result *Result, err error) {
	s.mu.Lock()
	if s.result == nil {
		s.result = result
	}
	s.mu.Unlock()
	s.resolve(err)
}

// Completed reports whether the run has finished, without blocking.
func (s *RunStatus) Completed() bool {
	return s.fut.Resolved()
}

// Result returns the run result once completed, nil before that.
func (s *RunStatus) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Aborted returns the fatal error that ended the run early, or nil.
func (s *RunStatus) Aborted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	return s.result.AbortErr
}

// WhenCompleted registers cb to run when the run finishes. succeeded is
// true only for runs that completed with no failed tests and no abort.
// Each callback fires exactly once, on the shared callback queue.
func (s *RunStatus) WhenCompleted(cb func(succeeded bool, abortErr error)) {
	s.fut.OnComplete(func(err error) {
		res := s.Result()
		cb(err == nil && res != nil && res.Succeeded(), err)
	})
}

// WaitUntilCompleted blocks until the run finishes or ctx expires. The
// returned error is the abort error or the context's error; a run that
// merely had failing tests returns nil.
func (s *RunStatus) WaitUntilCompleted(ctx context.Context) error {
	return s.fut.Wait(ctx)
}

// Succeeds blocks until completion and reports whether the run succeeded.
// Context expiry counts as not succeeded.
func (s *RunStatus) Succeeds(ctx context.Context) bool {
	if err := s.fut.Wait(ctx); err != nil {
		return false
	}
	res := s.Result()
	return res != nil && res.Succeeded()
}
