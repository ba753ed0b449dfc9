package types

import (
	"fmt"
	"runtime"
	"time"
)

// TestStatus represents the possible terminal states of a test execution
type TestStatus string

const (
	TestStatusSucceeded TestStatus = "succeeded"
	TestStatusFailed    TestStatus = "failed"
	TestStatusPending   TestStatus = "pending"
	TestStatusCanceled  TestStatus = "canceled"
	TestStatusIgnored   TestStatus = "ignored"
	// TestStatusAborted is only used at run level, never for a single test.
	TestStatusAborted TestStatus = "aborted"
)

// Location identifies the source position a test or failure originated from.
type Location struct {
	File string
	Line int
}

// CallerLocation captures the file and line of the caller, skipping the
// given number of frames above the caller of CallerLocation itself.
func CallerLocation(skip int) *Location {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return nil
	}
	return &Location{File: file, Line: line}
}

func (l *Location) String() string {
	if l == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Outcome is the terminal classification of one test execution.
// Exactly one Outcome is produced per executed test entry.
type Outcome struct {
	Status   TestStatus
	Err      error         // cause for failed/canceled outcomes
	Reason   string        // optional reason for pending outcomes
	Location *Location     // source position of the failure, or of the registration
	Duration time.Duration // wall time of the body invocation
}

// Succeeded reports whether the outcome counts toward a successful run.
// Pending and canceled tests do not fail a run; failed tests do.
func (o Outcome) Succeeded() bool {
	return o.Status != TestStatusFailed
}

// ClassifyError is the single classification table converting an error
// surfaced by a test body (synchronously or through a deferred result's
// failure channel) into an Outcome. Fatal errors are never absorbed here;
// callers must check IsFatal before classifying.
func ClassifyError(err error, loc *Location) Outcome {
	if err == nil {
		return Outcome{Status: TestStatusSucceeded}
	}
	switch sig := err.(type) {
	case *PendingSignal:
		return Outcome{Status: TestStatusPending, Reason: sig.Reason, Location: loc}
	case *CancelSignal:
		return Outcome{Status: TestStatusCanceled, Err: sig.Cause, Location: loc}
	}
	if ferr, ok := FailureLocation(err); ok {
		loc = ferr
	}
	return Outcome{Status: TestStatusFailed, Err: err, Location: loc}
}
