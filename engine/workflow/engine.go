package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fieldsync/fieldsync/engine/action"
	"github.com/fieldsync/fieldsync/engine/core"
	"github.com/fieldsync/fieldsync/engine/workflow/events"
	"github.com/fieldsync/fieldsync/engine/workflow/schedule"
	"github.com/fieldsync/fieldsync/pkg/logger"
)

// Engine registers workflow definitions and drives executions. One long-lived
// instance owns the definition table, the schedule bindings and the retained
// executions; Stop tears all of it down.
type Engine struct {
	registry  *action.Registry
	events    *events.Bus
	sched     *schedule.Scheduler
	evaluator *CELEvaluator
	defaults  Defaults

	mu          sync.RWMutex
	definitions map[string]*Definition

	execMu     sync.RWMutex
	executions map[core.ID]*Execution

	stopOnce sync.Once
	stopCh   chan struct{}
}

type Option func(*Engine)

// WithEvents attaches an externally owned event bus. The engine closes only
// buses it created itself.
func WithEvents(bus *events.Bus) Option {
	return func(e *Engine) {
		e.events = bus
	}
}

// WithDefaults overrides the engine-wide step timeout, retry policy and
// execution retention window.
func WithDefaults(defaults Defaults) Option {
	return func(e *Engine) {
		e.defaults = defaults
	}
}

func New(registry *action.Registry, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("workflow engine requires an action registry")
	}
	evaluator, err := NewCELEvaluator()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		registry:    registry,
		evaluator:   evaluator,
		defaults:    DefaultDefaults(),
		definitions: make(map[string]*Definition),
		executions:  make(map[core.ID]*Execution),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.defaults.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default retry policy: %w", err)
	}
	if e.events == nil {
		e.events = events.NewBus()
	}
	e.sched = schedule.New()
	go e.janitor()
	return e, nil
}

// Events exposes the lifecycle event bus for subscribers.
func (e *Engine) Events() *events.Bus {
	return e.events
}

// Register validates and stores a definition, binding its schedule when one
// is present. Registering an existing name replaces the definition and its
// schedule binding.
func (e *Engine) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("nil workflow definition")
	}
	if err := def.Validate(e.registry); err != nil {
		return err
	}
	normalized := def.normalized(e.defaults)
	e.mu.Lock()
	e.definitions[normalized.Name] = normalized
	e.mu.Unlock()
	if normalized.Schedule != "" {
		name := normalized.Name
		return e.sched.Bind(name, normalized.Schedule, func() {
			e.runScheduled(name)
		})
	}
	e.sched.Unbind(normalized.Name)
	return nil
}

// Unregister drops a definition and cancels its schedule binding.
func (e *Engine) Unregister(name string) {
	e.mu.Lock()
	delete(e.definitions, name)
	e.mu.Unlock()
	e.sched.Unbind(name)
}

// Definition returns the stored (normalized) definition for name.
func (e *Engine) Definition(name string) (*Definition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.definitions[name]
	return def, ok
}

// GetExecution returns a finished execution still inside the retention
// window. Running executions are owned by their goroutine and not visible.
func (e *Engine) GetExecution(id core.ID) (*Execution, bool) {
	e.execMu.RLock()
	defer e.execMu.RUnlock()
	exec, ok := e.executions[id]
	return exec, ok
}

// Stop cancels all schedule bindings, the retention janitor and the event
// bus the engine owns. In-flight executions finish on their own goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.sched.Stop()
		e.events.Close()
	})
}

// Execute runs the named workflow to completion and returns its Execution.
// On failure the returned error is the last attempt's error wrapped in a
// *StepError, so callers can distinguish timeouts from collaborator errors.
func (e *Engine) Execute(ctx context.Context, name string, params core.Params) (*Execution, error) {
	e.mu.RLock()
	def, ok := e.definitions[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
	}
	log := logger.FromContext(ctx).With("workflow", name)
	exec := newExecution(name, len(def.Steps))
	e.events.Publish(events.New(events.WorkflowStarted, events.WorkflowStartedData{
		ExecutionID: exec.ID,
		Workflow:    name,
		Params:      params,
	}))
	log.Info("workflow started", "execution_id", exec.ID)

	for i := range def.Steps {
		step := &def.Steps[i]
		tctx, err := newTemplateContext(params, exec.Results)
		if err != nil {
			return e.failExecution(ctx, def, exec, &StepError{
				Workflow: name, Step: i, Action: step.Action, Attempts: 0, Err: err,
			})
		}
		if step.Condition != "" {
			run, err := e.evaluator.Evaluate(ctx, step.Condition, tctx.conditionData())
			if err != nil {
				condErr := &ConditionError{Step: i, Expr: step.Condition, Err: err}
				return e.failExecution(ctx, def, exec, &StepError{
					Workflow: name, Step: i, Action: step.Action, Attempts: 0, Err: condErr,
				})
			}
			if !run {
				// Skipped step: reserve a nil result slot so positional
				// templates addressing later steps stay stable.
				exec.Results = append(exec.Results, nil)
				exec.CurrentStep = i + 1
				log.Debug("step skipped", "step", i, "condition", step.Condition)
				continue
			}
		}
		resolved := resolveParams(step.With, tctx)
		out, attempts, err := e.runStep(ctx, def, i, step, resolved)
		if err != nil {
			return e.failExecution(ctx, def, exec, &StepError{
				Workflow: name, Step: i, Action: step.Action, Attempts: attempts, Err: err,
			})
		}
		exec.Results = append(exec.Results, out)
		exec.CurrentStep = i + 1
		e.events.Publish(events.New(events.WorkflowProgress, events.WorkflowProgressData{
			ExecutionID: exec.ID,
			Workflow:    name,
			Step:        i,
			TotalSteps:  len(def.Steps),
			Result:      out,
		}))
	}

	exec.complete()
	e.recordExecution(exec)
	e.events.Publish(events.New(events.WorkflowCompleted, events.WorkflowCompletedData{
		ExecutionID: exec.ID,
		Workflow:    name,
		Duration:    exec.Duration(),
		Results:     exec.Results,
	}))
	log.Info("workflow completed", "execution_id", exec.ID, "duration", exec.Duration())
	return exec, nil
}

// runStep dispatches one step with its retry policy. Returns the output, the
// number of attempts made, and the last attempt's error on exhaustion.
func (e *Engine) runStep(
	ctx context.Context,
	def *Definition,
	index int,
	step *Step,
	params core.Params,
) (core.Output, int, error) {
	handler, err := e.registry.Resolve(step.Action)
	if err != nil {
		// An unresolved action is a configuration error; retrying cannot fix it.
		return nil, 0, err
	}
	policy := def.policyFor(step)
	var out core.Output
	var lastErr error
	attempts := 0
	retryErr := retry.Do(ctx, policy.backoff(), func(attemptCtx context.Context) error {
		attempts++
		result, dispatchErr := e.dispatch(attemptCtx, index, step, handler, params)
		if dispatchErr != nil {
			lastErr = dispatchErr
			logger.FromContext(ctx).Warn("step attempt failed",
				"workflow", def.Name, "step", index, "action", step.Action,
				"attempt", attempts, "error", dispatchErr)
			return retry.RetryableError(dispatchErr)
		}
		out = result
		return nil
	})
	if retryErr != nil {
		if lastErr != nil {
			return nil, attempts, lastErr
		}
		return nil, attempts, retryErr
	}
	return out, attempts, nil
}

// dispatch races one handler call against the step timeout. A timed-out
// attempt counts as a failed attempt; the handler goroutine observes the
// canceled context and is expected to return on its own.
func (e *Engine) dispatch(
	ctx context.Context,
	index int,
	step *Step,
	handler action.Handler,
	params core.Params,
) (core.Output, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()
	type outcome struct {
		out core.Output
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := handler(attemptCtx, params)
		done <- outcome{out: out, err: err}
	}()
	select {
	case result := <-done:
		return result.out, result.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &StepTimeoutError{Step: index, Action: step.Action, Timeout: step.Timeout}
	}
}

// failExecution marks the execution failed, runs the error handler
// best-effort, emits workflow.error and returns the original error.
func (e *Engine) failExecution(
	ctx context.Context,
	def *Definition,
	exec *Execution,
	stepErr *StepError,
) (*Execution, error) {
	exec.fail(stepErr)
	e.recordExecution(exec)
	if def.ErrorHandler != nil {
		e.runErrorHandler(ctx, def, exec, stepErr)
	}
	e.events.Publish(events.New(events.WorkflowError, events.WorkflowErrorData{
		ExecutionID: exec.ID,
		Workflow:    def.Name,
		Err:         stepErr,
		Message:     stepErr.Error(),
	}))
	logger.FromContext(ctx).Error("workflow failed",
		"workflow", def.Name, "execution_id", exec.ID, "error", stepErr)
	return exec, stepErr
}

// runErrorHandler runs the workflow's error handler as a single best-effort
// step. Its own failure is logged, never propagated.
func (e *Engine) runErrorHandler(ctx context.Context, def *Definition, exec *Execution, cause error) {
	log := logger.FromContext(ctx).With("workflow", def.Name, "execution_id", exec.ID)
	handlerStep := def.ErrorHandler
	handler, err := e.registry.Resolve(handlerStep.Action)
	if err != nil {
		log.Error("error handler unresolved", "action", handlerStep.Action, "error", err)
		return
	}
	params := handlerStep.With
	if params == nil {
		params = core.Params{}
	}
	tctx, err := newTemplateContext(core.Params{
		"workflow": def.Name,
		"error":    cause.Error(),
	}, exec.Results)
	if err == nil {
		params = resolveParams(params, tctx)
	}
	if _, err := e.dispatch(ctx, exec.CurrentStep, handlerStep, handler, params); err != nil {
		log.Error("error handler failed", "action", handlerStep.Action, "error", err)
	}
}

// runScheduled is the cron firing path: background context, fire-and-forget.
func (e *Engine) runScheduled(name string) {
	select {
	case <-e.stopCh:
		return
	default:
	}
	ctx := context.Background()
	if _, err := e.Execute(ctx, name, nil); err != nil {
		logger.Default().Error("scheduled run failed", "workflow", name, "error", err)
	}
}

func (e *Engine) recordExecution(exec *Execution) {
	e.execMu.Lock()
	defer e.execMu.Unlock()
	e.executions[exec.ID] = exec
}

// janitor discards finished executions past the retention window. Retained
// executions are an inspection convenience, not an audit log.
func (e *Engine) janitor() {
	interval := e.defaults.Retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			cutoff := now.Add(-e.defaults.Retention)
			e.execMu.Lock()
			for id, exec := range e.executions {
				if exec.EndTime.Before(cutoff) {
					delete(e.executions, id)
				}
			}
			e.execMu.Unlock()
		}
	}
}

// backoff translates the policy into a go-retry schedule. MaxAttempts is
// the total attempt count, so the retry budget is MaxAttempts-1.
func (p RetryPolicy) backoff() retry.Backoff {
	var b retry.Backoff
	switch p.Backoff {
	case BackoffFixed:
		b = retry.NewConstant(p.InitialDelay)
	case BackoffLinear:
		delay := p.InitialDelay
		attempt := 0
		b = retry.BackoffFunc(func() (time.Duration, bool) {
			attempt++
			return delay * time.Duration(attempt), false
		})
	default:
		b = retry.NewExponential(p.InitialDelay)
	}
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b) // #nosec G115 -- validated >= 1
}
