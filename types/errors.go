package types

import (
	"errors"
	"fmt"
)

// DuplicateNameError is raised at registration time when a test or scope is
// registered under a fully-qualified name that already exists in the suite.
// Ignored and non-ignored registrations share the same namespace.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate test name: %q was registered previously", e.Name)
}

// NullTagError is raised when a tag list contains a null/empty entry.
type NullTagError struct{}

func (e *NullTagError) Error() string {
	return "a test tag was null"
}

// InvalidNestingError is raised at registration time when a scope-opening
// call violates the active style's nesting grammar.
type InvalidNestingError struct {
	Outer string // clause the registration occurred inside
	Inner string // clause that was being opened
}

func (e *InvalidNestingError) Error() string {
	return fmt.Sprintf("%s clauses cannot be nested inside %s clauses", e.Inner, e.Outer)
}

// RegistrationClosedError is raised when a registration call occurs after
// the suite's registration phase has closed, i.e. from inside a running
// test body. It is reported as a failed outcome of the enclosing test, not
// as an escaping panic.
type RegistrationClosedError struct {
	Name string // name the caller attempted to register
}

func (e *RegistrationClosedError) Error() string {
	return fmt.Sprintf("cannot register %q: registration is closed once a test body has started executing", e.Name)
}

// TestFailedError is an assertion failure carrying the source location of
// the failing assertion.
type TestFailedError struct {
	Message  string
	Location *Location
}

func (e *TestFailedError) Error() string {
	return e.Message
}

// NewTestFailedError creates an assertion failure, capturing the caller's
// source location for reporting.
func NewTestFailedError(format string, args ...any) *TestFailedError {
	return &TestFailedError{
		Message:  fmt.Sprintf(format, args...),
		Location: CallerLocation(1),
	}
}

// FailureLocation returns the location attached to an assertion failure,
// if err is or wraps one.
func FailureLocation(err error) (*Location, bool) {
	var tf *TestFailedError
	if errors.As(err, &tf) && tf.Location != nil {
		return tf.Location, true
	}
	return nil, false
}

// PendingSignal is the control-flow value produced by the pending API.
// It converts to a pending outcome at the fixture boundary.
type PendingSignal struct {
	Reason string
}

func (e *PendingSignal) Error() string {
	if e.Reason == "" {
		return "test is pending"
	}
	return fmt.Sprintf("test is pending: %s", e.Reason)
}

// CancelSignal is the control-flow value produced by the cancel API.
// It converts to a canceled outcome at the fixture boundary.
type CancelSignal struct {
	Cause error
}

func (e *CancelSignal) Error() string {
	if e.Cause == nil {
		return "test was canceled"
	}
	return fmt.Sprintf("test was canceled: %v", e.Cause)
}

func (e *CancelSignal) Unwrap() error { return e.Cause }

// FatalError marks an unrecoverable failure. Fatal errors are never
// absorbed into a test outcome: they propagate out of the scheduler and
// abort the whole run.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// NewFatalError wraps err as fatal.
func NewFatalError(err error) *FatalError {
	return &FatalError{Err: err}
}

// IsFatal checks if the error is or wraps a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return err != nil && errors.As(err, &fatal)
}

// IsRegistrationClosed checks if the error is or wraps a RegistrationClosedError.
func IsRegistrationClosed(err error) bool {
	var closed *RegistrationClosedError
	return err != nil && errors.As(err, &closed)
}

// RegistrationError reports whether err belongs to the construction-time
// taxonomy that aborts suite instantiation.
func RegistrationError(err error) bool {
	var (
		dup     *DuplicateNameError
		nullTag *NullTagError
		nesting *InvalidNestingError
	)
	return errors.As(err, &dup) || errors.As(err, &nullTag) || errors.As(err, &nesting)
}
