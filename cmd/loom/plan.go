package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planloom/loom/internal/llm"
	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/revision"
)

var planContextFlag string

var planCmd = &cobra.Command{
	Use:   "plan GOAL",
	Short: "Generate a validated plan for a goal",
	Long: `Generate a plan for the given goal using the configured LLM provider,
then drive the revision loop: validate the candidate, feed every violation
back to the generator, and regenerate until the plan is valid or the
configured attempt limit runs out.

The resulting plan is printed as YAML. When the loop exhausts its attempts
without converging, the last candidate and its remaining errors are printed
and the command exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planContextFlag, "context", "", "Additional context for the generator")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	goal := args[0]

	client, err := llm.NewClient(llm.ProviderType(cfg.LLM.Provider), cfg.LLM.Model, cfg.LLM.APIKeyEnv)
	if err != nil {
		return err
	}

	loop := revision.NewLoop(
		plan.NewLLMGenerator(client),
		revision.WithMaxAttempts(cfg.Revision.MaxAttempts),
	)

	outcome, err := loop.Run(ctx, goal, planContextFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	data, err := plan.Encode(outcome.Plan)
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(data))

	if !outcome.Valid {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(),
			"\nplan still invalid after %d attempt(s):\n", outcome.Attempts)
		for _, e := range outcome.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  [%s] %s\n", e.Code, e.Message)
			if e.Details != nil && len(e.Details.Cycle) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "    cycle: %s\n", strings.Join(e.Details.Cycle, " -> "))
			}
		}
		return fmt.Errorf("plan generation did not converge")
	}

	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(),
		"valid plan generated in %d attempt(s)\n", outcome.Attempts)
	return nil
}
