package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// researchStep builds a minimal agent-bound research step.
func researchStep(id string, deps ...string) Step {
	return Step{
		ID:            id,
		Type:          StepTypeResearch,
		Description:   "research " + id,
		Query:         "query for " + id,
		DependencyIDs: deps,
		Executor:      ExecutorBinding{Kind: ExecutorKindAgent, Ref: "researcher"},
	}
}

func validPlan() *Plan {
	p := &Plan{
		GoalSummary: "test goal",
		Requirements: []Requirement{
			{ID: "R1", Description: "requirement one", Priority: PriorityMust},
		},
		Hypotheses: []Hypothesis{
			{ID: "H1", Statement: "hypothesis one"},
		},
		Steps: []Step{
			researchStep("S1"),
			researchStep("S2", "S1"),
		},
	}
	p.Normalize()
	return p
}

func TestValidateValidPlan(t *testing.T) {
	result := NewValidator().Validate(validPlan())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Contains(t, result.Summary, "is valid")
}

func TestValidateEmptyPlan(t *testing.T) {
	p := &Plan{GoalSummary: "no steps"}
	result := NewValidator().Validate(p)

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeEmptyPlan, result.Errors[0].Code)
}

func TestValidateDuplicateIDs(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *Plan)
		wantCode ValidationCode
		wantID   string
	}{
		{
			name: "duplicate step id",
			mutate: func(p *Plan) {
				p.Steps = append(p.Steps, researchStep("S1"))
			},
			wantCode: CodeDuplicateStepID,
			wantID:   "S1",
		},
		{
			name: "duplicate hypothesis id",
			mutate: func(p *Plan) {
				p.Hypotheses = append(p.Hypotheses, Hypothesis{ID: "H1", Statement: "again"})
			},
			wantCode: CodeDuplicateHypothesisID,
			wantID:   "H1",
		},
		{
			name: "duplicate requirement id",
			mutate: func(p *Plan) {
				p.Requirements = append(p.Requirements, Requirement{ID: "R1", Description: "again", Priority: PriorityCould})
			},
			wantCode: CodeDuplicateRequirementID,
			wantID:   "R1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlan()
			tt.mutate(p)

			result := NewValidator().Validate(p)

			require.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.wantCode, result.Errors[0].Code)
			assert.Equal(t, tt.wantID, result.Errors[0].Context["duplicate_id"])
		})
	}
}

func TestValidateDanglingReferences(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *Plan)
		wantCode ValidationCode
		wantRef  string
	}{
		{
			name: "dependency on missing step",
			mutate: func(p *Plan) {
				p.Steps[1].DependencyIDs = []string{"S99"}
			},
			wantCode: CodeInvalidStepReference,
			wantRef:  "S99",
		},
		{
			name: "missing hypothesis reference",
			mutate: func(p *Plan) {
				p.Steps[0].HypothesisIDs = []string{"H99"}
			},
			wantCode: CodeInvalidHypothesisReference,
			wantRef:  "H99",
		},
		{
			name: "missing requirement reference",
			mutate: func(p *Plan) {
				p.Steps[0].RequirementIDs = []string{"R99"}
			},
			wantCode: CodeInvalidRequirementReference,
			wantRef:  "R99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlan()
			tt.mutate(p)

			result := NewValidator().Validate(p)

			require.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.wantCode, result.Errors[0].Code)
			assert.Equal(t, tt.wantRef, result.Errors[0].Context["reference"])
		})
	}
}

func TestValidateRigorRequirements(t *testing.T) {
	t.Run("confirmatory experiment without commitments", func(t *testing.T) {
		p := validPlan()
		p.Steps = append(p.Steps, Step{
			ID:             "S3",
			Type:           StepTypeExperiment,
			Description:    "confirmatory test",
			ExperimentMode: ExperimentConfirmatory,
			HypothesisIDs:  []string{"H1"},
			Executor:       ExecutorBinding{Kind: ExecutorKindAgent, Ref: "experimenter"},
		})

		result := NewValidator().Validate(p)

		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, CodeMissingPreregisteredCommitments, result.Errors[0].Code)
		assert.Equal(t, "S3", result.Errors[0].Context["step_id"])
	})

	t.Run("confirmatory experiment with commitments passes", func(t *testing.T) {
		p := validPlan()
		p.Steps = append(p.Steps, Step{
			ID:                       "S3",
			Type:                     StepTypeExperiment,
			Description:              "confirmatory test",
			ExperimentMode:           ExperimentConfirmatory,
			PreregisteredCommitments: []string{"measure over the full window"},
			Executor:                 ExecutorBinding{Kind: ExecutorKindAgent, Ref: "experimenter"},
		})

		assert.True(t, NewValidator().Validate(p).Valid)
	})

	t.Run("exploratory experiment needs no commitments", func(t *testing.T) {
		p := validPlan()
		p.Steps = append(p.Steps, Step{
			ID:             "S3",
			Type:           StepTypeExperiment,
			Description:    "exploratory probe",
			ExperimentMode: ExperimentExploratory,
			Executor:       ExecutorBinding{Kind: ExecutorKindAgent, Ref: "experimenter"},
		})

		assert.True(t, NewValidator().Validate(p).Valid)
	})

	t.Run("evaluative synthesis without targets", func(t *testing.T) {
		p := validPlan()
		p.Steps = append(p.Steps, Step{
			ID:            "S3",
			Type:          StepTypeSynthesize,
			Description:   "judge the evidence",
			SynthesisMode: SynthesisEvaluative,
			Executor:      ExecutorBinding{Kind: ExecutorKindAgent, Ref: "synthesizer"},
		})

		result := NewValidator().Validate(p)

		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, CodeMissingEvaluateAgainst, result.Errors[0].Code)
	})

	t.Run("integrative synthesis needs no targets", func(t *testing.T) {
		p := validPlan()
		p.Steps = append(p.Steps, Step{
			ID:            "S3",
			Type:          StepTypeSynthesize,
			Description:   "combine the evidence",
			SynthesisMode: SynthesisIntegrative,
			Executor:      ExecutorBinding{Kind: ExecutorKindAgent, Ref: "synthesizer"},
		})

		assert.True(t, NewValidator().Validate(p).Valid)
	})
}

func TestValidateCycles(t *testing.T) {
	t.Run("self loop", func(t *testing.T) {
		p := &Plan{
			GoalSummary: "self loop",
			Steps:       []Step{researchStep("S1", "S1")},
		}

		result := NewValidator().Validate(p)

		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, CodeCycleDetected, result.Errors[0].Code)
		require.NotNil(t, result.Errors[0].Details)
		assert.Equal(t, []string{"S1", "S1"}, result.Errors[0].Details.Cycle)
	})

	t.Run("two step cycle", func(t *testing.T) {
		p := &Plan{
			GoalSummary: "two cycle",
			Steps: []Step{
				researchStep("S1", "S2"),
				researchStep("S2", "S1"),
			},
		}

		result := NewValidator().Validate(p)

		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		cycle := result.Errors[0].Details.Cycle
		require.Len(t, cycle, 3)
		assert.Equal(t, cycle[0], cycle[len(cycle)-1])
		assert.ElementsMatch(t, []string{"S1", "S2"}, cycle[:2])
	})

	t.Run("three step cycle behind a valid prefix", func(t *testing.T) {
		p := &Plan{
			GoalSummary: "long cycle",
			Steps: []Step{
				researchStep("S0"),
				researchStep("S1", "S0", "S3"),
				researchStep("S2", "S1"),
				researchStep("S3", "S2"),
			},
		}

		result := NewValidator().Validate(p)

		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		cycle := result.Errors[0].Details.Cycle
		require.Len(t, cycle, 4)
		assert.Equal(t, cycle[0], cycle[len(cycle)-1])
		assert.ElementsMatch(t, []string{"S1", "S2", "S3"}, cycle[:3])
		assert.NotContains(t, cycle, "S0")
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		p := &Plan{
			GoalSummary: "diamond",
			Steps: []Step{
				researchStep("S1"),
				researchStep("S2", "S1"),
				researchStep("S3", "S1"),
				researchStep("S4", "S2", "S3"),
			},
		}

		assert.True(t, NewValidator().Validate(p).Valid)
	})
}

func TestValidateReportsAllErrors(t *testing.T) {
	// One plan, three independent violations: a duplicate step id, a dangling
	// dependency, and a cycle.
	p := &Plan{
		GoalSummary: "many problems",
		Steps: []Step{
			researchStep("S1", "S2"),
			researchStep("S2", "S1"),
			researchStep("S2", "S99"),
		},
	}

	result := NewValidator().Validate(p)

	require.False(t, result.Valid)

	codes := make([]ValidationCode, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, CodeDuplicateStepID)
	assert.Contains(t, codes, CodeInvalidStepReference)
	assert.Contains(t, codes, CodeCycleDetected)
}

type fakeCapability struct {
	handles map[StepType]bool
}

func (c fakeCapability) CanHandle(t StepType) bool {
	return c.handles[t]
}

func TestValidateExecutorChecks(t *testing.T) {
	registry := map[string]fakeCapability{
		"researcher": {handles: map[StepType]bool{StepTypeResearch: true}},
	}
	resolve := func(ref string) (ExecutorCapability, bool) {
		c, ok := registry[ref]
		return c, ok
	}

	t.Run("unknown agent ref", func(t *testing.T) {
		p := validPlan()
		p.Steps[0].Executor.Ref = "nobody"

		result := NewValidator(WithCapabilityResolver(resolve)).Validate(p)

		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, CodeInvalidExecutorReference, result.Errors[0].Code)
		assert.Equal(t, "nobody", result.Errors[0].Context["executor_ref"])
	})

	t.Run("agent cannot handle step type", func(t *testing.T) {
		p := validPlan()
		p.Steps[1].Type = StepTypeDevelop
		p.Steps[1].Query = ""
		p.Steps[1].Specification = "build it"

		result := NewValidator(WithCapabilityResolver(resolve)).Validate(p)

		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, CodeExecutorCannotHandleStep, result.Errors[0].Code)
	})

	t.Run("non-agent bindings skip registry checks", func(t *testing.T) {
		p := validPlan()
		p.Steps[1].Executor = ExecutorBinding{Kind: ExecutorKindHuman, Instructions: "review the findings"}

		assert.True(t, NewValidator(WithCapabilityResolver(resolve)).Validate(p).Valid)
	})

	t.Run("no resolver skips executor checks entirely", func(t *testing.T) {
		p := validPlan()
		p.Steps[0].Executor.Ref = "nobody"

		assert.True(t, NewValidator().Validate(p).Valid)
	})
}

func TestAssertValid(t *testing.T) {
	t.Run("valid plan returns nil", func(t *testing.T) {
		assert.NoError(t, NewValidator().AssertValid(validPlan()))
	})

	t.Run("invalid plan aggregates every error", func(t *testing.T) {
		p := validPlan()
		p.Steps = append(p.Steps, researchStep("S1"))
		p.Steps[1].DependencyIDs = []string{"S99"}

		err := NewValidator().AssertValid(p)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "DUPLICATE_STEP_ID")
		assert.Contains(t, err.Error(), "INVALID_STEP_REFERENCE")
	})
}
