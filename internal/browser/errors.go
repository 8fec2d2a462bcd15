package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrInteractionFailure means the search input could not be located
	// through any selector candidate. It ends the run for that site.
	ErrInteractionFailure = errors.New("search input not found")

	// ErrNotFound is returned by Driver.Locate when no candidate matched.
	ErrNotFound = errors.New("no candidate selector matched")

	// ErrWaitTimeout is returned by Driver.WaitFor when the awaited
	// selector did not appear in time.
	ErrWaitTimeout = errors.New("wait timed out")
)

// Step names one stage of the search interaction.
type Step string

// Search steps in execution order.
const (
	StepNavigate Step = "navigate"
	StepLocate   Step = "locate input"
	StepClear    Step = "clear input"
	StepType     Step = "enter value"
	StepSubmit   Step = "submit"
	StepWait     Step = "wait for results"
)

// StepError reports which search step failed.
type StepError struct {
	Step Step
	Err  error
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("search step %q failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
