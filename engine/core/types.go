package core

import (
	"encoding/json"
	"fmt"
)

type (
	// Params is the input mapping handed to a workflow execution or an
	// action handler. String leaves may be template tokens until resolved.
	Params map[string]any

	// Output is the value a step produced, normalized to a mapping where
	// possible so later steps can address fields by path.
	Output = any
)

// StatusType tracks the lifecycle of an execution.
type StatusType string

const (
	StatusPending   StatusType = "PENDING"
	StatusRunning   StatusType = "RUNNING"
	StatusCompleted StatusType = "COMPLETED"
	StatusFailed    StatusType = "FAILED"
)

func (s StatusType) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DeepCopy returns an independent copy of the params, produced by a JSON
// round trip so nested maps and slices do not alias the original.
func (p Params) DeepCopy() (Params, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to copy params: %w", err)
	}
	var out Params
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to copy params: %w", err)
	}
	return out, nil
}

// AsMap normalizes an arbitrary value into a map[string]any via JSON.
// Returns nil when the value does not encode to an object.
func AsMap(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
