package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planloom/loom/internal/executor"
	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/schedule"
)

var runCmd = &cobra.Command{
	Use:   "run PLAN_FILE",
	Short: "Execute a plan with mock executors",
	Long: `Validate a plan, compile it into an executable schedule, and run it with
the deterministic mock executor registry, streaming lifecycle events to
stdout as they happen.

Steps at the same dependency depth run concurrently unless a step sets
concurrent: false. A step failure lets in-flight siblings finish but stops
the run before the next stage.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}

	registry := executor.NewMockRegistry(
		executor.WithDelay(time.Duration(cfg.Execution.MockDelayMS) * time.Millisecond))

	validator := plan.NewValidator(
		plan.WithCapabilityResolver(executor.CapabilityResolver(registry)))
	if err := validator.AssertValid(p); err != nil {
		return err
	}

	sched, err := schedule.Compile(p,
		schedule.WithRegistry(registry),
	)
	if err != nil {
		return err
	}

	events, results := sched.Stream(ctx, nil)

	for ev := range events {
		printEvent(cmd, ev)
	}

	result := <-results
	printRunResult(cmd, result)

	if !result.Success {
		return fmt.Errorf("run failed: %d step(s) errored", len(result.Errors))
	}
	return nil
}

func printEvent(cmd *cobra.Command, ev schedule.Event) {
	out := cmd.OutOrStdout()
	ts := ev.Timestamp.Format("15:04:05.000")

	switch ev.Type {
	case schedule.EventPlanStart:
		color.New(color.FgCyan, color.Bold).Fprintf(out, "[%s] plan started", ts)
		fmt.Fprintf(out, "  steps=%v critical_path=%v\n",
			ev.Payload["total_steps"], ev.Payload["critical_path_length"])
	case schedule.EventStepStart:
		fmt.Fprintf(out, "[%s]   → %s (%s)\n", ts, ev.Payload["step_id"], ev.Payload["step_type"])
	case schedule.EventStepComplete:
		color.New(color.FgGreen).Fprintf(out, "[%s]   ✓ %s", ts, ev.Payload["step_id"])
		fmt.Fprintf(out, "  %vms\n", ev.Payload["duration_ms"])
	case schedule.EventStepError:
		color.New(color.FgRed).Fprintf(out, "[%s]   ✗ %s", ts, ev.Payload["step_id"])
		fmt.Fprintf(out, "  %v\n", ev.Payload["error"])
	case schedule.EventDepthTransition:
		fmt.Fprintf(out, "[%s] depth %v -> %v\n", ts, ev.Payload["from_depth"], ev.Payload["to_depth"])
	case schedule.EventProgress:
		fmt.Fprintf(out, "[%s] progress %v/%v steps\n",
			ts, ev.Payload["completed_steps"], ev.Payload["total_steps"])
	case schedule.EventPlanComplete:
		color.New(color.FgCyan, color.Bold).Fprintf(out, "[%s] plan complete", ts)
		fmt.Fprintf(out, "  success=%v\n", ev.Payload["success"])
	}
}

func printRunResult(cmd *cobra.Command, result *schedule.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	if result.Success {
		color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ run succeeded")
	} else {
		color.New(color.FgRed, color.Bold).Fprintf(out, "✗ run failed")
	}
	fmt.Fprintf(out, " in %v (%d/%d steps completed)\n",
		result.TotalDuration.Round(time.Millisecond),
		completedCount(result), len(result.ExecutionOrder))

	for _, stepErr := range result.Errors {
		fmt.Fprintf(out, "  %s: %s\n", stepErr.StepID, stepErr.Error)
	}
}

func completedCount(result *schedule.RunResult) int {
	n := 0
	for _, outcome := range result.Results {
		if outcome.Status == schedule.StepStatusCompleted {
			n++
		}
	}
	return n
}
