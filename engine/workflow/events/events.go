// Package events carries the engine's observable lifecycle notifications on
// an in-process bus. Dotted event types form the stable contract observers
// key on.
package events

import (
	"time"

	"github.com/fieldsync/fieldsync/engine/core"
)

type Type string

const (
	WorkflowStarted   Type = "workflow.started"
	WorkflowProgress  Type = "workflow.progress"
	WorkflowCompleted Type = "workflow.completed"
	WorkflowError     Type = "workflow.error"
	DuplicateDetected Type = "duplicate.detected"
)

// Event is one lifecycle notification. Data holds the typed payload struct
// matching the event type.
type Event struct {
	Type Type
	Time time.Time
	Data any
}

type WorkflowStartedData struct {
	ExecutionID core.ID     `json:"execution_id"`
	Workflow    string      `json:"workflow"`
	Params      core.Params `json:"params,omitempty"`
}

type WorkflowProgressData struct {
	ExecutionID core.ID     `json:"execution_id"`
	Workflow    string      `json:"workflow"`
	Step        int         `json:"step"`
	TotalSteps  int         `json:"total_steps"`
	Result      core.Output `json:"result,omitempty"`
}

type WorkflowCompletedData struct {
	ExecutionID core.ID       `json:"execution_id"`
	Workflow    string        `json:"workflow"`
	Duration    time.Duration `json:"duration"`
	Results     []core.Output `json:"results"`
}

type WorkflowErrorData struct {
	ExecutionID core.ID `json:"execution_id"`
	Workflow    string  `json:"workflow"`
	Err         error   `json:"-"`
	Message     string  `json:"error"`
}

type DuplicateDetectedData struct {
	Entity     any     `json:"entity"`
	Matches    any     `json:"matches"`
	Confidence float64 `json:"confidence"`
}

// New stamps an event with the current time.
func New(typ Type, data any) Event {
	return Event{Type: typ, Time: time.Now(), Data: data}
}
