package framework

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidPeriod indicates a timer period is not positive.
	ErrInvalidPeriod = errors.New("invalid timer period")
	// ErrInvalidCapacity indicates an executor capacity is not positive.
	ErrInvalidCapacity = errors.New("invalid executor capacity")
	// ErrCapacityExceeded indicates more handles are added than the
	// executor capacity.
	ErrCapacityExceeded = errors.New("executor capacity exceeded")
	// ErrCapacityMismatch indicates the number of registered handles differs
	// from the declared capacity. Such an executor processes no events.
	ErrCapacityMismatch = errors.New("executor capacity mismatch")
)

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
// A single error is returned as-is.
func (e *AggregatedError) Aggregate() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	}
	return e
}

// Is reports whether any aggregated error matches target.
func (e *AggregatedError) Is(target error) bool {
	for _, err := range e.Errors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
