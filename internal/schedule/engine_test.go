package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloom/loom/internal/executor"
	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/types"
)

func agentStep(id string, deps ...string) plan.Step {
	return plan.Step{
		ID:            id,
		Type:          plan.StepTypeResearch,
		Description:   "work on " + id,
		Query:         "query " + id,
		DependencyIDs: deps,
		Executor:      plan.ExecutorBinding{Kind: plan.ExecutorKindAgent, Ref: "researcher"},
	}
}

func testPlan(steps ...plan.Step) *plan.Plan {
	p := &plan.Plan{
		GoalSummary: "test run",
		Steps:       steps,
	}
	p.Normalize()
	return p
}

// collectRun streams a schedule to completion and returns all events plus
// the final result.
func collectRun(t *testing.T, s *Schedule) ([]Event, *RunResult) {
	t.Helper()

	events, results := s.Stream(context.Background(), nil)

	var collected []Event
	for ev := range events {
		collected = append(collected, ev)
	}
	result := <-results
	require.NotNil(t, result)
	return collected, result
}

func eventIndex(events []Event, eventType EventType, stepID string) int {
	for i, ev := range events {
		if ev.Type != eventType {
			continue
		}
		if stepID == "" || ev.Payload["step_id"] == stepID {
			return i
		}
	}
	return -1
}

func countEvents(events []Event, eventType EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func TestCompileErrors(t *testing.T) {
	t.Run("nil plan", func(t *testing.T) {
		_, err := Compile(nil, WithMockExecutors(0))
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.PLAN_INVALID))
	})

	t.Run("empty plan", func(t *testing.T) {
		_, err := Compile(testPlan(), WithMockExecutors(0))
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.PLAN_INVALID))
	})

	t.Run("missing registry", func(t *testing.T) {
		_, err := Compile(testPlan(agentStep("S1")))
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.EXECUTOR_NOT_FOUND))
	})
}

func TestRunSingleStep(t *testing.T) {
	p := testPlan(agentStep("S1"))
	s, err := Compile(p, WithMockExecutors(0))
	require.NoError(t, err)

	events, result := collectRun(t, s)

	assert.True(t, result.Success)
	assert.Equal(t, p.ID, result.PlanID)
	assert.Equal(t, []string{"S1"}, result.ExecutionOrder)
	assert.Empty(t, result.Errors)

	require.Contains(t, result.Results, "S1")
	outcome := result.Results["S1"]
	assert.Equal(t, StepStatusCompleted, outcome.Status)
	assert.Equal(t, "mock researcher completed research step S1", outcome.Summary)
	assert.False(t, outcome.StartedAt.IsZero())
	assert.False(t, outcome.CompletedAt.IsZero())

	// plan-start, step-start, step-complete, progress, plan-complete.
	require.Len(t, events, 5)
	assert.Equal(t, EventPlanStart, events[0].Type)
	assert.Equal(t, EventStepStart, events[1].Type)
	assert.Equal(t, EventStepComplete, events[2].Type)
	assert.Equal(t, EventProgress, events[3].Type)
	assert.Equal(t, EventPlanComplete, events[4].Type)

	assert.Equal(t, true, events[4].Payload["success"])
	assert.Equal(t, 1, events[4].Payload["steps_completed"])
	assert.Equal(t, 0, events[4].Payload["steps_failed"])
}

func TestRunDiamond(t *testing.T) {
	p := testPlan(
		agentStep("S1"),
		agentStep("S2", "S1"),
		agentStep("S3", "S1"),
		agentStep("S4", "S2", "S3"),
	)
	s, err := Compile(p, WithMockExecutors(0))
	require.NoError(t, err)

	events, result := collectRun(t, s)

	assert.True(t, result.Success)
	assert.Len(t, result.Results, 4)
	for _, id := range []string{"S1", "S2", "S3", "S4"} {
		require.Contains(t, result.Results, id)
		assert.Equal(t, StepStatusCompleted, result.Results[id].Status)
	}

	// S4 starts only after both dependencies finished.
	s4Start := eventIndex(events, EventStepStart, "S4")
	require.GreaterOrEqual(t, s4Start, 0)
	assert.Less(t, eventIndex(events, EventStepComplete, "S2"), s4Start)
	assert.Less(t, eventIndex(events, EventStepComplete, "S3"), s4Start)

	// Two depth increases in a three-depth plan.
	assert.Equal(t, 2, countEvents(events, EventDepthTransition))
	assert.Equal(t, 3, countEvents(events, EventProgress))
}

func TestRunFailFast(t *testing.T) {
	failing := agentStep("S2", "S1")
	failing.Description = "work on S2 " + executor.ForceErrorTag

	p := testPlan(
		agentStep("S1"),
		failing,
		agentStep("S3", "S2"),
	)
	s, err := Compile(p, WithMockExecutors(0))
	require.NoError(t, err)

	events, result := collectRun(t, s)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "S2", result.Errors[0].StepID)

	assert.Equal(t, StepStatusCompleted, result.Results["S1"].Status)
	assert.Equal(t, StepStatusFailed, result.Results["S2"].Status)
	assert.NotContains(t, result.Results, "S3", "steps after the failure must not run")

	assert.Equal(t, 1, countEvents(events, EventStepError))
	assert.Equal(t, -1, eventIndex(events, EventStepStart, "S3"))
	assert.Equal(t, false, events[len(events)-1].Payload["success"])
}

func TestRunFailingSiblingLetsOthersFinish(t *testing.T) {
	failing := agentStep("S2", "S1")
	failing.Description = "work on S2 " + executor.ForceErrorTag

	p := testPlan(
		agentStep("S1"),
		failing,
		agentStep("S3", "S1"),
		agentStep("S4", "S2", "S3"),
	)
	s, err := Compile(p, WithMockExecutors(0))
	require.NoError(t, err)

	_, result := collectRun(t, s)

	assert.False(t, result.Success)

	// S3 was in flight at the same depth as the failure and still completes.
	require.Contains(t, result.Results, "S3")
	assert.Equal(t, StepStatusCompleted, result.Results["S3"].Status)

	// The next depth never starts.
	assert.NotContains(t, result.Results, "S4")
}

func TestRunReturnsResultAndErrorOnFailure(t *testing.T) {
	failing := agentStep("S1")
	failing.Description = executor.ForceErrorTag

	s, err := Compile(testPlan(failing), WithMockExecutors(0))
	require.NoError(t, err)

	result, err := s.Run(context.Background(), nil)

	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.SCHEDULE_ABORTED))
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestRunMixedConcurrencyStage(t *testing.T) {
	optOut := false
	solo := agentStep("S3", "S1")
	solo.Concurrent = &optOut

	p := testPlan(
		agentStep("S1"),
		agentStep("S2", "S1"),
		solo,
		agentStep("S4", "S1"),
	)
	s, err := Compile(p, WithMockExecutors(0))
	require.NoError(t, err)

	events, result := collectRun(t, s)

	assert.True(t, result.Success)
	assert.Len(t, result.Results, 4)

	// The opted-out step still runs exactly once, with no failures.
	assert.Equal(t, 0, countEvents(events, EventStepError))
	s3Starts := 0
	for _, ev := range events {
		if ev.Type == EventStepStart && ev.Payload["step_id"] == "S3" {
			s3Starts++
		}
	}
	assert.Equal(t, 1, s3Starts)
}

func TestRunHumanExecutorFails(t *testing.T) {
	human := plan.Step{
		ID:          "S1",
		Type:        plan.StepTypeResearch,
		Description: "ask an expert",
		Executor:    plan.ExecutorBinding{Kind: plan.ExecutorKindHuman, Instructions: "interview the on-call engineer"},
	}

	s, err := Compile(testPlan(human), WithMockExecutors(0))
	require.NoError(t, err)

	result, err := s.Run(context.Background(), nil)

	require.Error(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "interview the on-call engineer")
}

func TestRunInputReachesExecutor(t *testing.T) {
	recorder := &recordingRegistry{}
	s, err := Compile(testPlan(agentStep("S1")), WithRegistry(recorder))
	require.NoError(t, err)

	_, err = s.Run(context.Background(), map[string]any{"dataset": "prod-traffic"})
	require.NoError(t, err)

	require.Len(t, recorder.invocations, 1)
	assert.Equal(t, "prod-traffic", recorder.invocations[0].Input["dataset"])
	assert.Contains(t, recorder.invocations[0].Prompt, "work on S1")
}

// recordingRegistry captures every invocation it receives.
type recordingRegistry struct {
	invocations []executor.Invocation
}

func (r *recordingRegistry) Resolve(ref string) (executor.Capability, bool) {
	return r, true
}

func (r *recordingRegistry) Refs() []string { return []string{} }

func (r *recordingRegistry) CanHandle(t plan.StepType) bool { return true }

func (r *recordingRegistry) Invoke(ctx context.Context, inv executor.Invocation) (executor.Output, error) {
	r.invocations = append(r.invocations, inv)
	return executor.Output{Summary: "recorded " + inv.StepID}, nil
}
