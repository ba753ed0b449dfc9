// Package events defines the engine's lifecycle event stream: the one wire
// format downstream reporters consume.
package events

import (
	"fmt"
	"time"

	"github.com/specforge/specforge/types"
)

// Kind identifies one lifecycle event type.
type Kind string

const (
	RunStarting  Kind = "RunStarting"
	RunCompleted Kind = "RunCompleted"
	RunAborted   Kind = "RunAborted"

	ScopeOpened Kind = "ScopeOpened"
	ScopeClosed Kind = "ScopeClosed"

	TestStarting  Kind = "TestStarting"
	TestSucceeded Kind = "TestSucceeded"
	TestFailed    Kind = "TestFailed"
	TestPending   Kind = "TestPending"
	TestCanceled  Kind = "TestCanceled"
	TestIgnored   Kind = "TestIgnored"

	InfoProvided   Kind = "InfoProvided"
	NoteProvided   Kind = "NoteProvided"
	AlertProvided  Kind = "AlertProvided"
	MarkupProvided Kind = "MarkupProvided"
)

// Terminal reports whether the kind closes a test's narrative.
func (k Kind) Terminal() bool {
	switch k {
	case TestSucceeded, TestFailed, TestPending, TestCanceled:
		return true
	}
	return false
}

// Diagnostic reports whether the kind carries user-provided commentary.
func (k Kind) Diagnostic() bool {
	switch k {
	case InfoProvided, NoteProvided, AlertProvided, MarkupProvided:
		return true
	}
	return false
}

// TerminalKind maps a test status to its terminal event kind.
func TerminalKind(status types.TestStatus) Kind {
	switch status {
	case types.TestStatusSucceeded:
		return TestSucceeded
	case types.TestStatusFailed:
		return TestFailed
	case types.TestStatusPending:
		return TestPending
	case types.TestStatusCanceled:
		return TestCanceled
	default:
		return TestIgnored
	}
}

// Throwable is the reportable shape of a failure cause.
type Throwable struct {
	ClassName  string
	Message    string
	FileName   string
	LineNumber int
}

// NewThrowable builds a Throwable from an error and the best known source
// location.
func NewThrowable(err error, loc *types.Location) *Throwable {
	if err == nil {
		return nil
	}
	th := &Throwable{
		ClassName: fmt.Sprintf("%T", err),
		Message:   err.Error(),
	}
	if floc, ok := types.FailureLocation(err); ok {
		loc = floc
	}
	if loc != nil {
		th.FileName = loc.File
		th.LineNumber = loc.Line
	}
	return th
}

// Event is one entry of the lifecycle stream.
type Event struct {
	Kind      Kind
	SuiteID   string
	SuiteName string
	TestName  string
	Message   string
	Timestamp time.Time
	Ordinal   uint64
	Status    types.TestStatus // set on terminal and ignored events
	Duration  time.Duration    // set on terminal events
	Throwable *Throwable

	// RecordedEvents carries the diagnostics emitted from inside the test
	// body; they are attached here rather than surfacing as top-level
	// events.
	RecordedEvents []Event
}

// Reporter receives lifecycle events. Implementations must tolerate
// concurrent invocation when tests run in parallel; the dispatcher
// serializes calls, so a single dispatcher's sink never sees two events at
// once.
type Reporter interface {
	OnEvent(event Event)
}

// MultiReporter fans one stream out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) OnEvent(event Event) {
	for _, r := range m {
		r.OnEvent(event)
	}
}
