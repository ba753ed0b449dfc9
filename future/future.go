// Package future provides the deferred results test bodies may return and
// the trampolined executor their continuations run on. Continuations are
// dispatched through an explicit FIFO queue rather than nested calls, so a
// chain of tens of thousands of steps completes without growing the stack.
package future

import (
	"context"
	"fmt"
	"sync"
)

// Executor is an explicit work queue. The first goroutine to submit drains
// the queue iteratively; submissions made while a drain is in progress are
// appended and picked up by the active drain loop.
type Executor struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

// Submit enqueues fn and, unless another goroutine is already draining,
// drains the queue on the calling goroutine.
func (e *Executor) Submit(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.running = false
			e.mu.Unlock()
			return
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		next()
	}
}

// defaultExecutor dispatches every future's callbacks. One shared queue
// keeps chained completions flat regardless of which goroutine resolves
// the underlying promise.
var defaultExecutor = &Executor{}

// DefaultExecutor exposes the shared callback executor, primarily so
// schedulers can interleave their own continuations with future
// completions in a single ordered queue.
func DefaultExecutor() *Executor {
	return defaultExecutor
}

// Future is a one-shot deferred result. It resolves exactly once with an
// error (nil on success); callbacks registered before or after resolution
// fire exactly once each.
type Future struct {
	mu        sync.Mutex
	completed bool
	err       error
	callbacks []func(error)
	done      chan struct{}
}

// New creates an unresolved future and its resolve function. Resolving
// more than once is a no-op.
func New() (*Future, func(error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.resolve
}

// Successful returns an already-resolved successful future.
func Successful() *Future {
	return Failed(nil)
}

// Failed returns an already-resolved future carrying err.
func Failed(err error) *Future {
	f := &Future{done: make(chan struct{}), completed: true, err: err}
	close(f.done)
	return f
}

// Go runs fn on a new goroutine and resolves the returned future with its
// result. Panics inside fn resolve the future instead of crashing the
// process; panic values that are errors (including the pending/cancel
// signals) are preserved as-is.
func Go(fn func() error) *Future {
	f, resolve := New()
	go func() {
		resolve(Recovered(fn))
	}()
	return f
}

// Recovered invokes fn, converting a panic into the returned error while
// preserving typed error panic values.
func Recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	return fn()
}

func (f *Future) resolve(err error) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return
	}
	f.completed = true
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb := cb
		defaultExecutor.Submit(func() { cb(err) })
	}
}

// OnComplete registers cb to run when the future resolves. If it already
// has, cb is scheduled immediately. Callbacks run on the executor queue.
func (f *Future) OnComplete(cb func(error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	defaultExecutor.Submit(func() { cb(err) })
}

// Then sequences next after f. The resulting future resolves with next's
// result once f succeeds, or short-circuits with f's error. next runs on
// the executor queue, so arbitrarily long Then chains stay flat.
func (f *Future) Then(next func() error) *Future {
	out, resolve := New()
	f.OnComplete(func(err error) {
		if err != nil {
			resolve(err)
			return
		}
		resolve(Recovered(next))
	})
	return out
}

// ThenAsync sequences an asynchronous continuation: the resulting future
// resolves when the future produced by next does.
func (f *Future) ThenAsync(next func() *Future) *Future {
	out, resolve := New()
	f.OnComplete(func(err error) {
		if err != nil {
			resolve(err)
			return
		}
		var inner *Future
		if perr := Recovered(func() error {
			inner = next()
			return nil
		}); perr != nil {
			resolve(perr)
			return
		}
		if inner == nil {
			resolve(nil)
			return
		}
		inner.OnComplete(resolve)
	})
	return out
}

// Wait blocks until the future resolves or the context expires.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolved reports whether the future has resolved, without blocking.
func (f *Future) Resolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}
