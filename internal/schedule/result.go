package schedule

import (
	"time"

	"github.com/planloom/loom/internal/types"
)

// StepStatus is the terminal state of one step within a run.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepOutcome is the recorded result of one executed step.
type StepOutcome struct {
	StepID      string         `json:"step_id"`
	Status      StepStatus     `json:"status"`
	Summary     string         `json:"summary,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Duration    time.Duration  `json:"duration"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// StepError pairs a failed step with its error text.
type StepError struct {
	StepID string `json:"step_id"`
	Error  string `json:"error"`
}

// RunResult aggregates one execution of a compiled schedule. Success means
// no step errored; there is no partial-success status — a single step error
// fails the whole run.
type RunResult struct {
	PlanID         types.ID                `json:"plan_id"`
	Success        bool                    `json:"success"`
	Results        map[string]*StepOutcome `json:"results"`
	Errors         []StepError             `json:"errors,omitempty"`
	ExecutionOrder []string                `json:"execution_order"`
	TotalDuration  time.Duration           `json:"total_duration"`
}
