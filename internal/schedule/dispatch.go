package schedule

import (
	"context"
	"fmt"

	"github.com/planloom/loom/internal/executor"
	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/types"
)

// dispatch routes one step to its bound executor. Agent bindings resolve
// through the registry; the resolve and capability checks here back up the
// validator, which should have caught both failure modes already. Tool,
// workflow, and human bindings are not executable in this engine and fail
// with explicit named errors.
func (s *Schedule) dispatch(ctx context.Context, step *plan.Step, input map[string]any) (executor.Output, error) {
	switch step.Executor.Kind {
	case plan.ExecutorKindAgent:
		return s.dispatchAgent(ctx, step, input)

	case plan.ExecutorKindTool:
		return executor.Output{}, types.NewError(types.EXECUTOR_NOT_IMPLEMENTED,
			fmt.Sprintf("tool executors are not implemented: step %q is bound to tool %q", step.ID, step.Executor.Ref))

	case plan.ExecutorKindWorkflow:
		return executor.Output{}, types.NewError(types.EXECUTOR_NOT_IMPLEMENTED,
			fmt.Sprintf("workflow executors are not implemented: step %q is bound to workflow %q", step.ID, step.Executor.Ref))

	case plan.ExecutorKindHuman:
		msg := fmt.Sprintf("human executors are not implemented: step %q requires a human", step.ID)
		if step.Executor.Instructions != "" {
			msg = fmt.Sprintf("%s (instructions: %s)", msg, step.Executor.Instructions)
		}
		return executor.Output{}, types.NewError(types.EXECUTOR_NOT_IMPLEMENTED, msg)

	default:
		return executor.Output{}, types.NewError(types.EXECUTOR_NOT_IMPLEMENTED,
			fmt.Sprintf("unknown executor kind %q on step %q", step.Executor.Kind, step.ID))
	}
}

func (s *Schedule) dispatchAgent(ctx context.Context, step *plan.Step, input map[string]any) (executor.Output, error) {
	capability, ok := s.registry.Resolve(step.Executor.Ref)
	if !ok {
		return executor.Output{}, types.NewError(types.EXECUTOR_NOT_FOUND,
			fmt.Sprintf("agent %q bound to step %q is not in the executor registry", step.Executor.Ref, step.ID))
	}

	if !capability.CanHandle(step.Type) {
		return executor.Output{}, types.NewError(types.EXECUTOR_CANNOT_HANDLE,
			fmt.Sprintf("agent %q cannot handle %s steps (step %q)", step.Executor.Ref, step.Type, step.ID))
	}

	inv := executor.Invocation{
		StepID:   step.ID,
		StepType: step.Type,
		Prompt:   buildStepPrompt(s.plan, step),
		Input:    input,
	}

	output, err := capability.Invoke(ctx, inv)
	if err != nil {
		return executor.Output{}, types.WrapError(types.STEP_EXECUTION_FAILED,
			fmt.Sprintf("agent %q failed on step %q", step.Executor.Ref, step.ID), err)
	}

	return output, nil
}
