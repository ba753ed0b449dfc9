// Package fixture binds registered test bodies to their per-test fixtures
// and converts everything a body can do (return, error, panic, signal
// pending or cancel, resolve a deferred result) into a single completion
// channel the scheduler classifies.
package fixture

import (
	"context"
	"fmt"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/future"
	"github.com/specforge/specforge/types"
)

// TestContext is the handle a one-arg test body receives: the bound fixture
// value, the run context, buffered diagnostics and the pending/cancel
// signaling APIs.
type TestContext struct {
	name string
	ctx  context.Context
	fx   any
	rec  *events.TestRecorder
}

// Name returns the fully qualified test name.
func (t *TestContext) Name() string { return t.name }

// Context returns the run context; it is canceled when the run aborts.
func (t *TestContext) Context() context.Context { return t.ctx }

// Fixture returns the value produced by the suite's fixture setup, or nil
// for no-arg routed bodies.
func (t *TestContext) Fixture() any { return t.fx }

// Info buffers an informational message onto this test's terminal event.
func (t *TestContext) Info(format string, args ...any) {
	t.record(events.InfoProvided, format, args...)
}

// Note buffers a note onto this test's terminal event.
func (t *TestContext) Note(format string, args ...any) {
	t.record(events.NoteProvided, format, args...)
}

// Alert buffers an alert onto this test's terminal event.
func (t *TestContext) Alert(format string, args ...any) {
	t.record(events.AlertProvided, format, args...)
}

// Markup buffers a markup fragment onto this test's terminal event.
func (t *TestContext) Markup(text string) {
	t.record(events.MarkupProvided, "%s", text)
}

func (t *TestContext) record(kind events.Kind, format string, args ...any) {
	if t.rec != nil {
		t.rec.Record(kind, fmt.Sprintf(format, args...))
	}
}

// Pending marks the test pending and unwinds the body.
func (t *TestContext) Pending(reason string) {
	panic(&types.PendingSignal{Reason: reason})
}

// Cancel cancels the test with the given cause and unwinds the body.
func (t *TestContext) Cancel(cause error) {
	panic(&types.CancelSignal{Cause: cause})
}

// Bound is a registered body normalized to one of two invocation paths.
// The no-arg/one-arg routing decision is made here, once, from the
// declared signature, never at run time.
type Bound struct {
	NoArg bool
	Async bool

	sync  func(*TestContext) error
	async func(*TestContext) *future.Future
}

// Bind normalizes one of the six accepted body shapes. Any other type is a
// registration-time error.
func Bind(body any) (*Bound, error) {
	switch fn := body.(type) {
	case func():
		return &Bound{NoArg: true, sync: func(*TestContext) error {
			fn()
			return nil
		}}, nil
	case func() error:
		return &Bound{NoArg: true, sync: func(*TestContext) error {
			return fn()
		}}, nil
	case func() *future.Future:
		return &Bound{NoArg: true, Async: true, async: func(*TestContext) *future.Future {
			return fn()
		}}, nil
	case func(*TestContext):
		return &Bound{sync: func(t *TestContext) error {
			fn(t)
			return nil
		}}, nil
	case func(*TestContext) error:
		return &Bound{sync: fn}, nil
	case func(*TestContext) *future.Future:
		return &Bound{Async: true, async: fn}, nil
	default:
		return nil, fmt.Errorf("unsupported test body signature %T", body)
	}
}

// Around wraps the invocation of one test body. The wrapper must call
// invoke exactly once; for asynchronous bodies it wraps the synchronous
// initiation of the deferred result.
type Around func(t *TestContext, invoke func() error) error

// Setup produces the fixture value for a one-arg test and its teardown.
type Setup func(ctx context.Context, testName string) (fx any, teardown func() error, err error)

// Binder wraps user-supplied fixture setup around test bodies. The zero
// value invokes bodies directly with a nil fixture.
type Binder struct {
	// Setup builds the fixture for one-arg bodies. No-arg bodies never
	// route through it.
	Setup Setup

	// AroundNoArg wraps argument-less bodies; AroundOneArg wraps bodies
	// that take the fixture handle. The split mirrors the two routing
	// paths: an override of one never sees tests of the other arity.
	AroundNoArg Around
	AroundOneArg Around
}

// Invoke runs one bound body, returning a future that resolves with nil on
// success or with the error/signal that ended it. Panics anywhere in the
// body or its continuations resolve the future; nothing escapes except by
// the caller's explicit fatal check.
func (b *Binder) Invoke(ctx context.Context, name string, bound *Bound, rec *events.TestRecorder) *future.Future {
	tc := &TestContext{name: name, ctx: ctx, rec: rec}
	out, resolve := future.New()

	var inner *future.Future
	err := future.Recovered(func() error {
		if bound.NoArg {
			return b.invokeNoArg(tc, bound, &inner)
		}
		return b.invokeOneArg(tc, bound, &inner)
	})
	if err != nil {
		resolve(err)
		return out
	}
	if inner == nil {
		resolve(nil)
		return out
	}
	inner.OnComplete(resolve)
	return out
}

func (b *Binder) invokeNoArg(tc *TestContext, bound *Bound, inner **future.Future) error {
	around := b.AroundNoArg
	if around == nil {
		around = func(_ *TestContext, invoke func() error) error { return invoke() }
	}
	return around(tc, func() error {
		if bound.Async {
			*inner = bound.async(tc)
			return nil
		}
		return bound.sync(tc)
	})
}

func (b *Binder) invokeOneArg(tc *TestContext, bound *Bound, inner **future.Future) error {
	var teardown func() error
	if b.Setup != nil {
		fx, td, err := b.Setup(tc.ctx, tc.name)
		if err != nil {
			return fmt.Errorf("fixture setup: %w", err)
		}
		tc.fx = fx
		teardown = td
	}

	around := b.AroundOneArg
	if around == nil {
		around = func(_ *TestContext, invoke func() error) error { return invoke() }
	}

	if bound.Async {
		err := around(tc, func() error {
			*inner = bound.async(tc)
			return nil
		})
		if err != nil {
			runTeardown(&err, teardown)
			return err
		}
		if *inner != nil && teardown != nil {
			*inner = withTeardown(*inner, teardown)
		} else if teardown != nil {
			runTeardown(&err, teardown)
		}
		return err
	}

	err := around(tc, func() error { return bound.sync(tc) })
	runTeardown(&err, teardown)
	return err
}

// runTeardown executes teardown, preserving the body's error over a
// teardown failure.
func runTeardown(err *error, teardown func() error) {
	if teardown == nil {
		return
	}
	terr := future.Recovered(teardown)
	if *err == nil {
		*err = terr
	}
}

// withTeardown defers teardown until the deferred body resolves; the
// body's error wins over a teardown failure.
func withTeardown(f *future.Future, teardown func() error) *future.Future {
	out, resolve := future.New()
	f.OnComplete(func(err error) {
		terr := future.Recovered(teardown)
		if err == nil {
			err = terr
		}
		resolve(err)
	})
	return out
}
