package schedule

import (
	"fmt"
	"strings"

	"github.com/planloom/loom/internal/plan"
)

// buildStepPrompt renders the instruction text handed to an agent executor.
// The shared fields come first, then the type-specific section, then the
// statements of any referenced hypotheses so the agent sees what the step is
// meant to test.
func buildStepPrompt(p *plan.Plan, step *plan.Step) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Step %s (%s)\n\n", step.ID, step.Type))
	sb.WriteString(step.Description)
	sb.WriteString("\n")

	switch step.Type {
	case plan.StepTypeResearch:
		if step.Query != "" {
			sb.WriteString(fmt.Sprintf("\nQuery: %s\n", step.Query))
		}
		if step.StoppingRule != "" {
			sb.WriteString(fmt.Sprintf("Stop when: %s\n", step.StoppingRule))
		}

	case plan.StepTypeSynthesize:
		sb.WriteString(fmt.Sprintf("\nSynthesis mode: %s\n", step.SynthesisMode))
		if len(step.EvaluateAgainst) > 0 {
			sb.WriteString("Evaluate against:\n")
			for _, criterion := range step.EvaluateAgainst {
				sb.WriteString(fmt.Sprintf("- %s\n", criterion))
			}
		}

	case plan.StepTypeExperiment:
		sb.WriteString(fmt.Sprintf("\nExperiment mode: %s\n", step.ExperimentMode))
		if step.Procedure != "" {
			sb.WriteString(fmt.Sprintf("Procedure: %s\n", step.Procedure))
		}
		writeList(&sb, "Expected outcomes", step.ExpectedOutcomes)
		writeList(&sb, "Success criteria", step.SuccessCriteria)
		writeList(&sb, "Preregistered commitments", step.PreregisteredCommitments)

	case plan.StepTypeDevelop:
		if step.Specification != "" {
			sb.WriteString(fmt.Sprintf("\nSpecification: %s\n", step.Specification))
		}
		writeList(&sb, "Deliverables", step.Deliverables)
	}

	if len(step.RequirementIDs) > 0 {
		sb.WriteString("\n# Requirements addressed\n")
		for _, reqID := range step.RequirementIDs {
			if r := p.GetRequirement(reqID); r != nil {
				sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", r.ID, r.Priority, r.Description))
			}
		}
	}

	if len(step.HypothesisIDs) > 0 {
		sb.WriteString("\n# Hypotheses under test\n")
		for _, hypID := range step.HypothesisIDs {
			if h := p.GetHypothesis(hypID); h != nil {
				sb.WriteString(fmt.Sprintf("- %s: %s\n", h.ID, h.Statement))
			}
		}
	}

	if step.EvalCriteria != nil {
		sb.WriteString(fmt.Sprintf("\nSuccess condition: %s\n", step.EvalCriteria.SuccessCondition))
		if step.EvalCriteria.FailureCondition != "" {
			sb.WriteString(fmt.Sprintf("Failure condition: %s\n", step.EvalCriteria.FailureCondition))
		}
	}

	return sb.String()
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(label)
	sb.WriteString(":\n")
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
}
