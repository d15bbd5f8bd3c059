package workflow

import (
	"time"

	"github.com/fieldsync/fieldsync/engine/core"
)

// Execution is one runtime instance of a workflow run. It is owned by the
// goroutine driving it; the engine publishes it for inspection only after it
// reaches a terminal status. A skipped (condition=false) step reserves a nil
// slot in Results so positional templates stay stable.
type Execution struct {
	ID          core.ID         `json:"id"`
	Workflow    string          `json:"workflow"`
	Status      core.StatusType `json:"status"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time,omitzero"`
	CurrentStep int             `json:"current_step"`
	Results     []core.Output   `json:"results"`
	Err         error           `json:"-"`
}

func newExecution(name string, stepCount int) *Execution {
	return &Execution{
		ID:        core.MustNewID(),
		Workflow:  name,
		Status:    core.StatusRunning,
		StartTime: time.Now(),
		Results:   make([]core.Output, 0, stepCount),
	}
}

func (e *Execution) complete() {
	e.Status = core.StatusCompleted
	e.EndTime = time.Now()
}

func (e *Execution) fail(err error) {
	e.Status = core.StatusFailed
	e.EndTime = time.Now()
	e.Err = err
}

// Duration is the wall time of the run; zero until terminal.
func (e *Execution) Duration() time.Duration {
	if e.EndTime.IsZero() {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}
