package fixture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/future"
	"github.com/specforge/specforge/types"
)

func invokeAndWait(t *testing.T, b *Binder, bound *Bound) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.Invoke(ctx, "some test", bound, events.NewTestRecorder(nil)).Wait(ctx)
}

func TestBindRoutesByDeclaredArity(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantNoArg bool
		wantAsync bool
		wantErr   bool
	}{
		{name: "plain func", body: func() {}, wantNoArg: true},
		{name: "func returning error", body: func() error { return nil }, wantNoArg: true},
		{name: "async no-arg", body: func() *future.Future { return future.Successful() }, wantNoArg: true, wantAsync: true},
		{name: "one-arg", body: func(*TestContext) {}},
		{name: "one-arg with error", body: func(*TestContext) error { return nil }},
		{name: "async one-arg", body: func(*TestContext) *future.Future { return future.Successful() }, wantAsync: true},
		{name: "unsupported shape", body: func(int) {}, wantErr: true},
		{name: "not a function", body: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bound, err := Bind(tt.body)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNoArg, bound.NoArg)
			assert.Equal(t, tt.wantAsync, bound.Async)
		})
	}
}

func TestInvokeSyncBodies(t *testing.T) {
	b := &Binder{}

	bound, err := Bind(func() error { return errors.New("sync failure") })
	require.NoError(t, err)
	assert.EqualError(t, invokeAndWait(t, b, bound), "sync failure")

	bound, err = Bind(func() {})
	require.NoError(t, err)
	assert.NoError(t, invokeAndWait(t, b, bound))
}

func TestInvokeRecoversPanics(t *testing.T) {
	b := &Binder{}
	bound, err := Bind(func() { panic("assertion blew up") })
	require.NoError(t, err)

	got := invokeAndWait(t, b, bound)
	require.Error(t, got)
	assert.Contains(t, got.Error(), "assertion blew up")
}

func TestInvokePreservesSignals(t *testing.T) {
	b := &Binder{}

	bound, err := Bind(func(tc *TestContext) { tc.Pending("waiting on upstream") })
	require.NoError(t, err)
	got := invokeAndWait(t, b, bound)
	var pending *types.PendingSignal
	require.ErrorAs(t, got, &pending)
	assert.Equal(t, "waiting on upstream", pending.Reason)

	cause := errors.New("environment gone")
	bound, err = Bind(func(tc *TestContext) { tc.Cancel(cause) })
	require.NoError(t, err)
	got = invokeAndWait(t, b, bound)
	var canceled *types.CancelSignal
	require.ErrorAs(t, got, &canceled)
	assert.Equal(t, cause, canceled.Cause)
}

func TestInvokeAsyncBody(t *testing.T) {
	b := &Binder{}
	bound, err := Bind(func() *future.Future {
		return future.Go(func() error {
			time.Sleep(5 * time.Millisecond)
			return errors.New("deferred failure")
		})
	})
	require.NoError(t, err)

	assert.EqualError(t, invokeAndWait(t, b, bound), "deferred failure")
}

func TestOneArgRoutesThroughSetup(t *testing.T) {
	var order []string
	b := &Binder{
		Setup: func(ctx context.Context, name string) (any, func() error, error) {
			order = append(order, "setup")
			return "db-handle", func() error {
				order = append(order, "teardown")
				return nil
			}, nil
		},
	}

	bound, err := Bind(func(tc *TestContext) error {
		order = append(order, "body")
		assert.Equal(t, "db-handle", tc.Fixture())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, invokeAndWait(t, b, bound))
	assert.Equal(t, []string{"setup", "body", "teardown"}, order)
}

func TestNoArgNeverRoutesThroughSetup(t *testing.T) {
	b := &Binder{
		Setup: func(ctx context.Context, name string) (any, func() error, error) {
			t.Fatal("no-arg bodies must not reach the one-arg setup path")
			return nil, nil, nil
		},
	}

	bound, err := Bind(func() {})
	require.NoError(t, err)
	require.NoError(t, invokeAndWait(t, b, bound))
}

func TestAroundOverridesRouteByArity(t *testing.T) {
	var wrapped []string
	b := &Binder{
		AroundNoArg: func(tc *TestContext, invoke func() error) error {
			wrapped = append(wrapped, "noarg:"+tc.Name())
			return invoke()
		},
		AroundOneArg: func(tc *TestContext, invoke func() error) error {
			wrapped = append(wrapped, "onearg:"+tc.Name())
			return invoke()
		},
	}

	noArg, err := Bind(func() {})
	require.NoError(t, err)
	require.NoError(t, invokeAndWait(t, b, noArg))

	oneArg, err := Bind(func(*TestContext) {})
	require.NoError(t, err)
	require.NoError(t, invokeAndWait(t, b, oneArg))

	assert.Equal(t, []string{"noarg:some test", "onearg:some test"}, wrapped)
}

func TestAroundInvokesBodyExactlyOnce(t *testing.T) {
	invocations := 0
	b := &Binder{
		AroundNoArg: func(tc *TestContext, invoke func() error) error {
			return invoke()
		},
	}

	bound, err := Bind(func() { invocations++ })
	require.NoError(t, err)
	require.NoError(t, invokeAndWait(t, b, bound))
	assert.Equal(t, 1, invocations)
}

func TestAsyncTeardownRunsAfterCompletion(t *testing.T) {
	var order []string
	b := &Binder{
		Setup: func(ctx context.Context, name string) (any, func() error, error) {
			return 7, func() error {
				order = append(order, "teardown")
				return nil
			}, nil
		},
	}

	bound, err := Bind(func(tc *TestContext) *future.Future {
		return future.Go(func() error {
			time.Sleep(5 * time.Millisecond)
			order = append(order, "async body")
			return nil
		})
	})
	require.NoError(t, err)

	require.NoError(t, invokeAndWait(t, b, bound))
	assert.Equal(t, []string{"async body", "teardown"}, order)
}

func TestTeardownErrorSurfacesOnlyOnSuccess(t *testing.T) {
	bodyErr := errors.New("body failed")
	b := &Binder{
		Setup: func(ctx context.Context, name string) (any, func() error, error) {
			return nil, func() error { return errors.New("teardown failed") }, nil
		},
	}

	failing, err := Bind(func(*TestContext) error { return bodyErr })
	require.NoError(t, err)
	assert.Equal(t, bodyErr, invokeAndWait(t, b, failing), "body error wins over teardown error")

	passing, err := Bind(func(*TestContext) error { return nil })
	require.NoError(t, err)
	assert.EqualError(t, invokeAndWait(t, b, passing), "teardown failed")
}

func TestSetupErrorFailsTest(t *testing.T) {
	b := &Binder{
		Setup: func(ctx context.Context, name string) (any, func() error, error) {
			return nil, nil, errors.New("no database")
		},
	}

	bound, err := Bind(func(*TestContext) {})
	require.NoError(t, err)

	got := invokeAndWait(t, b, bound)
	require.Error(t, got)
	assert.Contains(t, got.Error(), "fixture setup")
	assert.Contains(t, got.Error(), "no database")
}

func TestDiagnosticsAreBuffered(t *testing.T) {
	rec := events.NewTestRecorder(nil)
	b := &Binder{}
	bound, err := Bind(func(tc *TestContext) {
		tc.Info("saw %d rows", 3)
		tc.Note("a note")
		tc.Alert("an alert")
		tc.Markup("*bold*")
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Invoke(ctx, "diag test", bound, rec).Wait(ctx))

	buffered := rec.Events()
	require.Len(t, buffered, 4)
	assert.Equal(t, events.InfoProvided, buffered[0].Kind)
	assert.Equal(t, "saw 3 rows", buffered[0].Message)
	assert.Equal(t, events.NoteProvided, buffered[1].Kind)
	assert.Equal(t, events.AlertProvided, buffered[2].Kind)
	assert.Equal(t, events.MarkupProvided, buffered[3].Kind)
}
