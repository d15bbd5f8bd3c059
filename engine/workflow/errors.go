package workflow

import (
	"errors"
	"fmt"
	"time"
)

// ErrWorkflowNotFound is returned by Execute for an unregistered name.
var ErrWorkflowNotFound = errors.New("workflow not found")

// StepError wraps the failure that exhausted a step's retry budget.
type StepError struct {
	Workflow string
	Step     int
	Action   string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow %q step %d (%s) failed after %d attempt(s): %v",
		e.Workflow, e.Step, e.Action, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepTimeoutError marks a single attempt that exceeded the step timeout.
// It counts against the retry budget like any other dispatch failure.
type StepTimeoutError struct {
	Step    int
	Action  string
	Timeout time.Duration
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step %d (%s) timed out after %s", e.Step, e.Action, e.Timeout)
}

// ConditionError reports a condition expression that failed to evaluate.
// It fails the step rather than skipping it, so configuration bugs surface.
type ConditionError struct {
	Step int
	Expr string
	Err  error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("step %d condition %q failed to evaluate: %v", e.Step, e.Expr, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}
