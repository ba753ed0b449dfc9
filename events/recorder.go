package events

import "sync"

// Recorder is an in-memory reporter. The engine's own tests assert against
// it, and the acceptance binary uses it to check event ordering.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnEvent implements Reporter.
func (r *Recorder) OnEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a snapshot of everything received so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the received events of one kind, in arrival order.
func (r *Recorder) OfKind(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// TestNames returns the TestName of every event of the given kind.
func (r *Recorder) TestNames(kind Kind) []string {
	var names []string
	for _, e := range r.OfKind(kind) {
		names = append(names, e.TestName)
	}
	return names
}

// TerminalFor returns the terminal (or ignored) event of the named test.
func (r *Recorder) TerminalFor(testName string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.TestName == testName && (e.Kind.Terminal() || e.Kind == TestIgnored) {
			return e, true
		}
	}
	return Event{}, false
}

// Count returns how many events of the given kind were received.
func (r *Recorder) Count(kind Kind) int {
	return len(r.OfKind(kind))
}
