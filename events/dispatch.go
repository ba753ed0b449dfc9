package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/specforge/specforge/types"
)

// Dispatcher stamps and serializes event emission for one suite run. All
// events pass through a single mutex so a sink observes a total order with
// strictly increasing ordinals, no matter how many tests run in parallel.
type Dispatcher struct {
	mu      sync.Mutex
	sink    Reporter
	ordinal uint64

	suiteID   string
	suiteName string
	clock     func() time.Time

	// current is the recorder of the test executing under the serial
	// policy; suite-level diagnostics emitted mid-test attach there
	// instead of surfacing as top-level events.
	current atomic.Pointer[TestRecorder]
}

// NewDispatcher creates a dispatcher for one suite run.
func NewDispatcher(sink Reporter, suiteID, suiteName string) *Dispatcher {
	if sink == nil {
		sink = MultiReporter(nil)
	}
	return &Dispatcher{
		sink:      sink,
		suiteID:   suiteID,
		suiteName: suiteName,
		clock:     time.Now,
	}
}

// SetClock overrides the timestamp source, for tests.
func (d *Dispatcher) SetClock(clock func() time.Time) {
	d.clock = clock
}

// Fire stamps the event with suite identity, timestamp and ordinal, then
// hands it to the sink under the dispatcher lock.
func (d *Dispatcher) Fire(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ordinal++
	event.Ordinal = d.ordinal
	event.SuiteID = d.suiteID
	event.SuiteName = d.suiteName
	if event.Timestamp.IsZero() {
		event.Timestamp = d.clock()
	}
	d.sink.OnEvent(event)
}

// FireDiagnostic emits a top-level diagnostic event, unless a serial test
// is currently executing, in which case the message is buffered into that
// test's recorder and attached to its terminal event.
func (d *Dispatcher) FireDiagnostic(kind Kind, message string) {
	if rec := d.current.Load(); rec != nil {
		rec.Record(kind, message)
		return
	}
	d.Fire(Event{Kind: kind, Message: message})
}

// BeginTest emits TestStarting and returns the recorder buffering the
// test's diagnostics. Under the serial policy the recorder also becomes
// the target for suite-level diagnostics until EndTest.
func (d *Dispatcher) BeginTest(name string, serial bool) *TestRecorder {
	rec := NewTestRecorder(d.clock)
	d.Fire(Event{Kind: TestStarting, TestName: name})
	if serial {
		d.current.Store(rec)
	}
	return rec
}

// EndTest emits the terminal (or ignored) event for a test, attaching the
// recorder's buffered diagnostics.
func (d *Dispatcher) EndTest(name string, outcome types.Outcome, rec *TestRecorder) {
	d.current.CompareAndSwap(rec, nil)
	event := Event{
		Kind:     TerminalKind(outcome.Status),
		TestName: name,
		Status:   outcome.Status,
		Duration: outcome.Duration,
		Message:  outcome.Reason,
	}
	if outcome.Err != nil {
		event.Throwable = NewThrowable(outcome.Err, outcome.Location)
	}
	if rec != nil {
		event.RecordedEvents = rec.Events()
	}
	d.Fire(event)
}

// TestRecorder buffers the diagnostics produced inside one test body.
type TestRecorder struct {
	mu     sync.Mutex
	clock  func() time.Time
	events []Event
}

// NewTestRecorder creates an empty recorder.
func NewTestRecorder(clock func() time.Time) *TestRecorder {
	if clock == nil {
		clock = time.Now
	}
	return &TestRecorder{clock: clock}
}

// Record buffers one diagnostic.
func (r *TestRecorder) Record(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		Kind:      kind,
		Message:   message,
		Timestamp: r.clock(),
	})
}

// Events returns the buffered diagnostics in recording order.
func (r *TestRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
