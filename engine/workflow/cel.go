package workflow

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCostLimit        = 1000
	defaultProgramCacheSize = 256
)

// CELEvaluator compiles and evaluates step condition expressions against the
// execution context. Expressions see two variables: params (the execution
// input) and results (prior step outputs, skipped steps as null). Compiled
// programs are cached since schedules re-run the same conditions constantly.
type CELEvaluator struct {
	env          *cel.Env
	programCache *lru.Cache[string, cel.Program]
	costLimit    uint64
}

type CELOption func(*CELEvaluator)

// WithCostLimit caps the evaluation cost of a single expression.
func WithCostLimit(limit uint64) CELOption {
	return func(e *CELEvaluator) {
		e.costLimit = limit
	}
}

func NewCELEvaluator(opts ...CELOption) (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("results", cel.ListType(cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	cache, err := lru.New[string, cel.Program](defaultProgramCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program cache: %w", err)
	}
	evaluator := &CELEvaluator{
		env:          env,
		programCache: cache,
		costLimit:    defaultCostLimit,
	}
	for _, opt := range opts {
		opt(evaluator)
	}
	return evaluator, nil
}

// Evaluate runs expr against data and returns its boolean value. A
// non-boolean result is an error, never a silent skip.
func (e *CELEvaluator) Evaluate(ctx context.Context, expr string, data map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.ContextEval(ctx, data)
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression %q did not evaluate to a boolean", expr)
	}
	return result, nil
}

func (e *CELEvaluator) program(expr string) (cel.Program, error) {
	if prg, ok := e.programCache.Get(expr); ok {
		return prg, nil
	}
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", iss.Err())
	}
	prg, err := e.env.Program(ast, cel.CostLimit(e.costLimit))
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}
	e.programCache.Add(expr, prg)
	return prg, nil
}
