package framework

import (
	"errors"
	"strings"
)

// ErrHalted indicates the loop is in its terminal halted state.
var ErrHalted = errors.New("halted")

// HaltError is returned when a sketch halts the loop.
type HaltError struct {
	Cause error
}

// Error implements error.
func (e *HaltError) Error() string {
	if e.Cause == nil {
		return ErrHalted.Error()
	}
	return "halted: " + e.Cause.Error()
}

// Unwrap exposes the cause.
func (e *HaltError) Unwrap() error {
	return e.Cause
}

// Is matches ErrHalted.
func (e *HaltError) Is(target error) bool {
	return target == ErrHalted
}

// Halt wraps cause so returning it from a hook halts the loop.
func Halt(cause error) error {
	return &HaltError{Cause: cause}
}

// AggregatedError aggregates multiple errors.
type AggregatedError struct {
	Errors []error
}

// Error implements error
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	msg := make([]string, len(e.Errors)+1)
	msg[0] = "Multiple errors:"
	for n, err := range e.Errors {
		msg[n+1] = err.Error()
	}
	return strings.Join(msg, "\n")
}

// Add adds errors to be aggregated. nil will be skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns aggregated error if any error happened.
// A single error is returned as is.
func (e *AggregatedError) Aggregate() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	}
	return e
}
