package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/types"
)

// runState is the engine's only mutable shared state: the results and
// errors accumulator. Step units never write to each other's state.
type runState struct {
	mu        sync.Mutex
	results   map[string]*StepOutcome
	errors    []StepError
	completed int
}

func (rs *runState) recordOutcome(out *StepOutcome) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.results[out.StepID] = out
	if out.Status == StepStatusCompleted {
		rs.completed++
	}
}

func (rs *runState) recordError(stepID string, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.errors = append(rs.errors, StepError{StepID: stepID, Error: err.Error()})
}

func (rs *runState) failed() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.errors) > 0
}

// Run executes the schedule stage by stage. Steps within a parallel substage
// run concurrently with a full join barrier before anything else at that
// depth; a step error lets in-flight siblings finish but prevents any
// subsequent substage from starting (fail-fast, no automatic retry).
//
// The RunResult is returned in both outcomes; on failure the error is also
// returned so callers observing only the error see the failed status.
func (s *Schedule) Run(ctx context.Context, input map[string]any) (*RunResult, error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "schedule.run",
			trace.WithAttributes(
				attribute.String("plan.id", s.plan.ID.String()),
				attribute.Int("plan.step_count", len(s.plan.Steps)),
				attribute.Int("plan.critical_path_length", s.analysis.CriticalPath.Length),
			),
		)
		defer span.End()
	}

	s.logger.InfoContext(ctx, "starting schedule run",
		"plan_id", s.plan.ID,
		"steps", len(s.plan.Steps),
		"stages", len(s.stages),
	)

	startTime := time.Now()
	state := &runState{results: make(map[string]*StepOutcome, len(s.plan.Steps))}

	groupStepIDs := make([][]string, 0, len(s.analysis.ParallelGroups))
	for _, g := range s.analysis.ParallelGroups {
		groupStepIDs = append(groupStepIDs, g.StepIDs)
	}

	s.emitter.Emit(NewEvent(EventPlanStart, map[string]any{
		"plan_id":              s.plan.ID.String(),
		"goal_summary":         s.plan.GoalSummary,
		"total_steps":          len(s.plan.Steps),
		"critical_path_length": s.analysis.CriticalPath.Length,
		"entry_points":         s.analysis.EntryPoints,
		"parallel_groups":      groupStepIDs,
	}))

	totalDepths := len(s.stages)
	prevDepth := -1

	for _, st := range s.stages {
		if state.failed() {
			break
		}

		if prevDepth >= 0 && st.depth != prevDepth {
			s.emitter.Emit(NewEvent(EventDepthTransition, map[string]any{
				"from_depth": prevDepth,
				"to_depth":   st.depth,
				"completed":  state.completed,
				"starting":   len(st.parallel) + len(st.sequential),
			}))
		}
		prevDepth = st.depth

		s.runParallel(ctx, st.parallel, st.depth, input, state)

		if !state.failed() {
			s.runSequential(ctx, st.sequential, st.depth, input, state)
		}

		s.emitter.Emit(NewEvent(EventProgress, map[string]any{
			"completed_steps": state.completed,
			"total_steps":     len(s.plan.Steps),
			"current_depth":   st.depth,
			"total_depths":    totalDepths,
		}))
	}

	totalDuration := time.Since(startTime)
	success := !state.failed()

	s.emitter.Emit(NewEvent(EventPlanComplete, map[string]any{
		"plan_id":           s.plan.ID.String(),
		"success":           success,
		"total_duration_ms": totalDuration.Milliseconds(),
		"steps_completed":   state.completed,
		"steps_failed":      len(state.errors),
	}))

	result := &RunResult{
		PlanID:         s.plan.ID,
		Success:        success,
		Results:        state.results,
		Errors:         state.errors,
		ExecutionOrder: s.analysis.TopologicalOrder,
		TotalDuration:  totalDuration,
	}

	if !success {
		first := state.errors[0]
		err := types.NewError(types.SCHEDULE_ABORTED,
			fmt.Sprintf("step %q failed: %s", first.StepID, first.Error))
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		s.logger.ErrorContext(ctx, "schedule run failed",
			"plan_id", s.plan.ID,
			"failed_step", first.StepID,
			"duration", totalDuration,
		)
		return result, err
	}

	s.logger.InfoContext(ctx, "schedule run completed",
		"plan_id", s.plan.ID,
		"duration", totalDuration,
	)
	return result, nil
}

// Stream executes the schedule in the background and returns the lifecycle
// event sequence plus a single-value result channel. The event channel
// closes when the run finishes; the result is delivered afterwards.
func (s *Schedule) Stream(ctx context.Context, input map[string]any) (<-chan Event, <-chan *RunResult) {
	sub, cancel := s.emitter.Subscribe()
	events := make(chan Event, cap(sub))
	results := make(chan *RunResult, 1)

	go func() {
		defer close(results)
		result, _ := s.Run(ctx, input)
		cancel()
		results <- result
	}()

	go func() {
		defer close(events)
		for ev := range sub {
			events <- ev
		}
	}()

	return events, results
}

// runParallel dispatches the concurrency-eligible steps of one depth and
// joins them all before returning. No global cap is imposed; callers wanting
// one bound it inside the executor registry.
func (s *Schedule) runParallel(ctx context.Context, steps []*plan.Step, depth int, input map[string]any, state *runState) {
	if len(steps) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, step := range steps {
		wg.Add(1)
		go func(st *plan.Step) {
			defer wg.Done()
			s.runUnit(ctx, st, depth, input, state)
		}(step)
	}
	wg.Wait()
}

// runSequential runs the remaining steps of one depth in declaration order,
// stopping at the first failure.
func (s *Schedule) runSequential(ctx context.Context, steps []*plan.Step, depth int, input map[string]any, state *runState) {
	for _, step := range steps {
		if err := s.runUnit(ctx, step, depth, input, state); err != nil {
			return
		}
	}
}

// runUnit executes one schedulable unit: emit step-start, dispatch to the
// bound executor, then emit step-complete or step-error and record the
// outcome. Errors are recorded and returned, never swallowed.
func (s *Schedule) runUnit(ctx context.Context, step *plan.Step, depth int, input map[string]any, state *runState) error {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "schedule.step",
			trace.WithAttributes(
				attribute.String("step.id", step.ID),
				attribute.String("step.type", string(step.Type)),
				attribute.Int("step.depth", depth),
			),
		)
		defer span.End()
	}

	s.emitter.Emit(NewEvent(EventStepStart, map[string]any{
		"step_id":        step.ID,
		"step_type":      string(step.Type),
		"description":    step.Description,
		"depth":          depth,
		"executor":       string(step.Executor.Kind) + ":" + step.Executor.Ref,
		"dependency_ids": step.DependencyIDs,
	}))

	startedAt := time.Now()
	output, err := s.dispatch(ctx, step, input)
	duration := time.Since(startedAt)

	if err != nil {
		s.emitter.Emit(NewEvent(EventStepError, map[string]any{
			"step_id":     step.ID,
			"step_type":   string(step.Type),
			"error":       err.Error(),
			"duration_ms": duration.Milliseconds(),
		}))
		state.recordError(step.ID, err)
		state.recordOutcome(&StepOutcome{
			StepID:      step.ID,
			Status:      StepStatusFailed,
			Duration:    duration,
			StartedAt:   startedAt,
			CompletedAt: time.Now(),
		})
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		s.logger.ErrorContext(ctx, "step failed",
			"step_id", step.ID,
			"step_type", step.Type,
			"error", err,
		)
		return err
	}

	s.emitter.Emit(NewEvent(EventStepComplete, map[string]any{
		"step_id":        step.ID,
		"step_type":      string(step.Type),
		"duration_ms":    duration.Milliseconds(),
		"output_summary": output.Summary,
	}))
	state.recordOutcome(&StepOutcome{
		StepID:      step.ID,
		Status:      StepStatusCompleted,
		Summary:     output.Summary,
		Data:        output.Data,
		Duration:    duration,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	})

	s.logger.DebugContext(ctx, "step completed",
		"step_id", step.ID,
		"step_type", step.Type,
		"duration", duration,
	)
	return nil
}
