package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planloom/loom/internal/plan"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze PLAN_FILE",
	Short: "Derive the execution topology of a plan",
	Long: `Validate a plan and print its derived execution topology: topological
order, parallel groups by depth, the critical path, and entry and exit
points. The plan must pass validation first; topology is undefined on a
cyclic graph.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "text", "Output format: text, json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}

	if err := plan.NewValidator().AssertValid(p); err != nil {
		return err
	}

	analysis := plan.Analyze(p)

	switch analyzeOutput {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(analysis)
	case "text":
		printAnalysis(cmd, p, analysis)
		return nil
	default:
		return fmt.Errorf("invalid output format %q (must be text or json)", analyzeOutput)
	}
}

func printAnalysis(cmd *cobra.Command, p *plan.Plan, analysis *plan.TopologyAnalysis) {
	out := cmd.OutOrStdout()

	color.New(color.FgCyan, color.Bold).Fprintf(out, "Plan: %s\n", p.GoalSummary)
	fmt.Fprintf(out, "Steps: %d\n\n", len(p.Steps))

	fmt.Fprintf(out, "Topological order: %s\n\n", strings.Join(analysis.TopologicalOrder, " -> "))

	fmt.Fprintln(out, "Parallel groups:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  DEPTH\tSTEPS\tCONCURRENT")
	for _, group := range analysis.ParallelGroups {
		fmt.Fprintf(tw, "  %d\t%s\t%s\n",
			group.Depth,
			strings.Join(group.StepIDs, ", "),
			strings.Join(group.ConcurrentStepIDs, ", "))
	}
	tw.Flush()
	fmt.Fprintln(out)

	color.New(color.FgYellow).Fprintf(out, "Critical path (%d steps): ", analysis.CriticalPath.Length)
	fmt.Fprintln(out, strings.Join(analysis.CriticalPath.StepIDs, " -> "))

	fmt.Fprintf(out, "Entry points: %s\n", strings.Join(analysis.EntryPoints, ", "))
	fmt.Fprintf(out, "Exit points:  %s\n", strings.Join(analysis.ExitPoints, ", "))
}
