package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planloom/loom/internal/plan"
)

var validateOutput string

var validateCmd = &cobra.Command{
	Use:   "validate PLAN_FILE",
	Short: "Validate a plan document",
	Long: `Validate a plan document against all structural and rigor checks.

Every violated invariant is reported, not just the first: duplicate ids,
dangling step/hypothesis/requirement references, missing preregistered
commitments on confirmatory experiments, missing evaluation targets on
evaluative synthesis steps, and dependency cycles.

Exits non-zero when the plan is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateOutput, "output", "text", "Output format: text, json")
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}

	result := plan.NewValidator().Validate(p)

	switch validateOutput {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	case "text":
		printValidationResult(cmd, result)
	default:
		return fmt.Errorf("invalid output format %q (must be text or json)", validateOutput)
	}

	if !result.Valid {
		return fmt.Errorf("plan failed validation with %d error(s)", len(result.Errors))
	}
	return nil
}

func printValidationResult(cmd *cobra.Command, result plan.ValidationResult) {
	out := cmd.OutOrStdout()

	if result.Valid {
		color.New(color.FgGreen).Fprintf(out, "✓ %s\n", result.Summary)
		return
	}

	color.New(color.FgRed).Fprintf(out, "✗ %s\n\n", result.Summary)
	for i, e := range result.Errors {
		color.New(color.FgYellow).Fprintf(out, "%d. [%s]", i+1, e.Code)
		fmt.Fprintf(out, " %s\n", e.Message)
		if e.Details != nil && len(e.Details.Cycle) > 0 {
			fmt.Fprintf(out, "   cycle: %s\n", strings.Join(e.Details.Cycle, " -> "))
		}
	}
}
