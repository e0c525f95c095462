package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector holding NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/tolerance/system sizes.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidOptions indicates integration options that fail validation.
	ErrInvalidOptions = errors.New("dynamo: invalid integration options")

	// ErrTimes indicates output times that are too few or not strictly increasing.
	ErrTimes = errors.New("dynamo: output times must be strictly increasing with at least two entries")

	// ErrStepLimit indicates an interval exceeded Options.MaxSteps attempts.
	ErrStepLimit = errors.New("dynamo: step attempt limit exceeded")
)

// SimulationError wraps an error with the interval it occurred in.
type SimulationError struct {
	Interval int
	Time     float64
	State    State
	Wrapped  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("interval %d (t=%.6g): %v", e.Interval, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
