package workflow

import (
	"fmt"
	"time"

	"github.com/fieldsync/fieldsync/engine/action"
	"github.com/fieldsync/fieldsync/engine/core"
	"github.com/fieldsync/fieldsync/engine/workflow/schedule"
)

// TriggerType declares how a workflow is expected to start.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
	TriggerEvent     TriggerType = "event"
)

// BackoffKind selects the delay growth function between retry attempts.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// RetryPolicy governs step-level retry. MaxAttempts counts all attempts
// including the first one.
type RetryPolicy struct {
	MaxAttempts  int           `json:"max_attempts"            yaml:"max_attempts"`
	Backoff      BackoffKind   `json:"backoff,omitempty"       yaml:"backoff,omitempty"`
	InitialDelay time.Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `json:"max_delay,omitempty"     yaml:"max_delay,omitempty"`
}

func (p *RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max_attempts must be >= 1, got %d", p.MaxAttempts)
	}
	switch p.Backoff {
	case BackoffFixed, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("retry policy: unknown backoff kind %q", p.Backoff)
	}
	if p.InitialDelay <= 0 {
		return fmt.Errorf("retry policy: initial_delay must be positive")
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("retry policy: max_delay must not be negative")
	}
	return nil
}

// Step is one unit of work bound to an action and a parameter template.
// String leaves in With of the exact form "{{path}}" are substituted from
// the execution context before dispatch.
type Step struct {
	Name      string        `json:"name,omitempty"         yaml:"name,omitempty"`
	Action    string        `json:"action"                 yaml:"action"`
	With      core.Params   `json:"with,omitempty"         yaml:"with,omitempty"`
	Condition string        `json:"condition,omitempty"    yaml:"condition,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"      yaml:"timeout,omitempty"`
	// MaxAttempts overrides the workflow retry policy for this step when > 0.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// Definition is an immutable workflow template. Registering the same name
// again replaces the stored definition and its schedule binding.
type Definition struct {
	Name         string       `json:"name"                    yaml:"name"`
	Description  string       `json:"description,omitempty"   yaml:"description,omitempty"`
	Schedule     string       `json:"schedule,omitempty"      yaml:"schedule,omitempty"`
	Trigger      TriggerType  `json:"trigger,omitempty"       yaml:"trigger,omitempty"`
	Steps        []Step       `json:"steps"                   yaml:"steps"`
	ErrorHandler *Step        `json:"error_handler,omitempty" yaml:"error_handler,omitempty"`
	Retry        *RetryPolicy `json:"retry,omitempty"         yaml:"retry,omitempty"`
}

// Validate checks the definition's structure. When registry is non-nil,
// step actions must already resolve so misconfigured workflows are rejected
// at registration rather than mid-run.
func (d *Definition) Validate(registry *action.Registry) error {
	if d.Name == "" {
		return fmt.Errorf("workflow definition requires a name")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow %q requires at least one step", d.Name)
	}
	switch d.Trigger {
	case "", TriggerManual, TriggerScheduled, TriggerEvent:
	default:
		return fmt.Errorf("workflow %q: unknown trigger kind %q", d.Name, d.Trigger)
	}
	if d.Schedule != "" {
		if _, err := schedule.Parse(d.Schedule); err != nil {
			return fmt.Errorf("workflow %q: invalid schedule %q: %w", d.Name, d.Schedule, err)
		}
	}
	if d.Retry != nil {
		if err := d.Retry.Validate(); err != nil {
			return fmt.Errorf("workflow %q: %w", d.Name, err)
		}
	}
	steps := make([]*Step, 0, len(d.Steps)+1)
	for i := range d.Steps {
		steps = append(steps, &d.Steps[i])
	}
	if d.ErrorHandler != nil {
		steps = append(steps, d.ErrorHandler)
	}
	for i, step := range steps {
		if _, _, err := action.ParseName(step.Action); err != nil {
			return fmt.Errorf("workflow %q step %d: %w", d.Name, i, err)
		}
		if registry != nil && !registry.Has(step.Action) {
			return fmt.Errorf("workflow %q step %d: %w: %s", d.Name, i, action.ErrUnknownAction, step.Action)
		}
		if step.Timeout < 0 {
			return fmt.Errorf("workflow %q step %d: timeout must not be negative", d.Name, i)
		}
		if step.MaxAttempts < 0 {
			return fmt.Errorf("workflow %q step %d: max_attempts must not be negative", d.Name, i)
		}
	}
	return nil
}

// Defaults are the engine-wide fallbacks applied during normalization.
type Defaults struct {
	StepTimeout time.Duration
	Retry       RetryPolicy
	Retention   time.Duration
}

func DefaultDefaults() Defaults {
	return Defaults{
		StepTimeout: 30 * time.Second,
		Retry: RetryPolicy{
			MaxAttempts:  3,
			Backoff:      BackoffExponential,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		Retention: 5 * time.Minute,
	}
}

// normalized returns a copy of the definition with timeouts and retry
// policies filled in from defaults. The stored definition never changes
// after registration.
func (d *Definition) normalized(defaults Defaults) *Definition {
	out := *d
	retry := defaults.Retry
	if d.Retry != nil {
		retry = *d.Retry
	}
	out.Retry = &retry
	out.Steps = make([]Step, len(d.Steps))
	copy(out.Steps, d.Steps)
	for i := range out.Steps {
		normalizeStep(&out.Steps[i], defaults)
	}
	if d.ErrorHandler != nil {
		handler := *d.ErrorHandler
		normalizeStep(&handler, defaults)
		out.ErrorHandler = &handler
	}
	if out.Trigger == "" {
		if out.Schedule != "" {
			out.Trigger = TriggerScheduled
		} else {
			out.Trigger = TriggerManual
		}
	}
	return &out
}

func normalizeStep(step *Step, defaults Defaults) {
	if step.Timeout == 0 {
		step.Timeout = defaults.StepTimeout
	}
}

// policyFor resolves the retry policy governing one step.
func (d *Definition) policyFor(step *Step) RetryPolicy {
	policy := *d.Retry
	if step.MaxAttempts > 0 {
		policy.MaxAttempts = step.MaxAttempts
	}
	return policy
}
