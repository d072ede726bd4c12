package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planloom/loom/internal/plan"
)

func TestBuildStepPrompt(t *testing.T) {
	p := &plan.Plan{
		GoalSummary: "test",
		Requirements: []plan.Requirement{
			{ID: "R1", Description: "measurable latency improvement", Priority: plan.PriorityMust},
		},
		Hypotheses: []plan.Hypothesis{
			{ID: "H1", Statement: "caching cuts latency"},
		},
	}

	t.Run("research", func(t *testing.T) {
		step := &plan.Step{
			ID:           "S1",
			Type:         plan.StepTypeResearch,
			Description:  "survey baselines",
			Query:        "p99 latency",
			StoppingRule: "two consistent sources",
		}

		prompt := buildStepPrompt(p, step)

		assert.Contains(t, prompt, "# Step S1 (research)")
		assert.Contains(t, prompt, "survey baselines")
		assert.Contains(t, prompt, "Query: p99 latency")
		assert.Contains(t, prompt, "Stop when: two consistent sources")
	})

	t.Run("confirmatory experiment with hypotheses", func(t *testing.T) {
		step := &plan.Step{
			ID:                       "S2",
			Type:                     plan.StepTypeExperiment,
			Description:              "load test",
			ExperimentMode:           plan.ExperimentConfirmatory,
			HypothesisIDs:            []string{"H1"},
			Procedure:                "replay traffic",
			PreregisteredCommitments: []string{"no windowing"},
			RequirementIDs:           []string{"R1"},
			EvalCriteria:             &plan.EvalCriteria{SuccessCondition: "p99 drops 30%"},
		}

		prompt := buildStepPrompt(p, step)

		assert.Contains(t, prompt, "Experiment mode: confirmatory")
		assert.Contains(t, prompt, "R1 (must): measurable latency improvement")
		assert.Contains(t, prompt, "Procedure: replay traffic")
		assert.Contains(t, prompt, "Preregistered commitments:\n- no windowing")
		assert.Contains(t, prompt, "H1: caching cuts latency")
		assert.Contains(t, prompt, "Success condition: p99 drops 30%")
	})

	t.Run("unknown hypothesis reference is skipped", func(t *testing.T) {
		step := &plan.Step{
			ID:            "S3",
			Type:          plan.StepTypeDevelop,
			Description:   "build the cache",
			Specification: "read-through",
			Deliverables:  []string{"cache module"},
			HypothesisIDs: []string{"H9"},
		}

		prompt := buildStepPrompt(p, step)

		assert.Contains(t, prompt, "Specification: read-through")
		assert.Contains(t, prompt, "- cache module")
		assert.NotContains(t, prompt, "H9:")
	})
}
