package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specforge/specforge/types"
)

func TestDispatcherStampsEvents(t *testing.T) {
	rec := NewRecorder()
	d := NewDispatcher(rec, "suite-1", "Engine facts")

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return fixed })

	d.Fire(Event{Kind: RunStarting})
	d.Fire(Event{Kind: RunCompleted})

	got := rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Ordinal)
	assert.Equal(t, uint64(2), got[1].Ordinal)
	assert.Equal(t, "suite-1", got[0].SuiteID)
	assert.Equal(t, "Engine facts", got[0].SuiteName)
	assert.Equal(t, fixed, got[0].Timestamp)
}

func TestBeginEndTestPairsUp(t *testing.T) {
	rec := NewRecorder()
	d := NewDispatcher(rec, "suite-1", "pairing")

	tr := d.BeginTest("does the thing", true)
	tr.Record(InfoProvided, "midway note")
	d.EndTest("does the thing", types.Outcome{Status: types.TestStatusSucceeded}, tr)

	got := rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, TestStarting, got[0].Kind)
	assert.Equal(t, TestSucceeded, got[1].Kind)

	require.Len(t, got[1].RecordedEvents, 1)
	assert.Equal(t, InfoProvided, got[1].RecordedEvents[0].Kind)
	assert.Equal(t, "midway note", got[1].RecordedEvents[0].Message)
	// Buffered diagnostics never surface as top-level events.
	assert.Zero(t, rec.Count(InfoProvided))
}

func TestFireDiagnosticRoutesToCurrentSerialTest(t *testing.T) {
	rec := NewRecorder()
	d := NewDispatcher(rec, "suite-1", "routing")

	d.FireDiagnostic(NoteProvided, "before any test")

	tr := d.BeginTest("running", true)
	d.FireDiagnostic(InfoProvided, "from inside the body")
	d.EndTest("running", types.Outcome{Status: types.TestStatusSucceeded}, tr)

	d.FireDiagnostic(AlertProvided, "after the test")

	assert.Equal(t, 1, rec.Count(NoteProvided))
	assert.Equal(t, 1, rec.Count(AlertProvided))
	assert.Zero(t, rec.Count(InfoProvided), "mid-test info must be buffered, not top-level")

	terminal, ok := rec.TerminalFor("running")
	require.True(t, ok)
	require.Len(t, terminal.RecordedEvents, 1)
	assert.Equal(t, "from inside the body", terminal.RecordedEvents[0].Message)
}

func TestEndTestBuildsThrowable(t *testing.T) {
	rec := NewRecorder()
	d := NewDispatcher(rec, "suite-1", "failures")

	tr := d.BeginTest("fails", true)
	cause := types.NewTestFailedError("expected 2, got 3")
	d.EndTest("fails", types.Outcome{
		Status:   types.TestStatusFailed,
		Err:      cause,
		Location: &types.Location{File: "ignored.go", Line: 1},
	}, tr)

	terminal, ok := rec.TerminalFor("fails")
	require.True(t, ok)
	require.NotNil(t, terminal.Throwable)
	assert.Equal(t, "*types.TestFailedError", terminal.Throwable.ClassName)
	assert.Equal(t, "expected 2, got 3", terminal.Throwable.Message)
	assert.Contains(t, terminal.Throwable.FileName, "dispatch_test.go",
		"assertion site beats registration location")
	assert.Greater(t, terminal.Throwable.LineNumber, 0)
}

func TestDispatcherConcurrentOrdinals(t *testing.T) {
	rec := NewRecorder()
	d := NewDispatcher(rec, "suite-1", "concurrency")

	const emitters = 8
	const perEmitter = 200

	var wg sync.WaitGroup
	for i := 0; i < emitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perEmitter; j++ {
				d.Fire(Event{Kind: InfoProvided, Message: "m"})
			}
		}()
	}
	wg.Wait()

	got := rec.Events()
	require.Len(t, got, emitters*perEmitter)
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Ordinal, "ordinals must be gapless and increasing")
	}
}

func TestTerminalKind(t *testing.T) {
	assert.Equal(t, TestSucceeded, TerminalKind(types.TestStatusSucceeded))
	assert.Equal(t, TestFailed, TerminalKind(types.TestStatusFailed))
	assert.Equal(t, TestPending, TerminalKind(types.TestStatusPending))
	assert.Equal(t, TestCanceled, TerminalKind(types.TestStatusCanceled))
	assert.Equal(t, TestIgnored, TerminalKind(types.TestStatusIgnored))
}

func TestNewThrowableNilError(t *testing.T) {
	assert.Nil(t, NewThrowable(nil, nil))
	th := NewThrowable(errors.New("boom"), nil)
	require.NotNil(t, th)
	assert.Equal(t, "boom", th.Message)
	assert.Empty(t, th.FileName)
}
