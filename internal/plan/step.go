package plan

// StepType discriminates the step tagged union. Shared fields live on Step;
// type-specific fields are populated according to the Type tag.
type StepType string

const (
	StepTypeResearch   StepType = "research"
	StepTypeSynthesize StepType = "synthesize"
	StepTypeExperiment StepType = "experiment"
	StepTypeDevelop    StepType = "develop"
)

// StepTypes lists every valid step type.
func StepTypes() []StepType {
	return []StepType{StepTypeResearch, StepTypeSynthesize, StepTypeExperiment, StepTypeDevelop}
}

// SynthesisMode selects how a synthesize step treats its inputs.
type SynthesisMode string

const (
	// SynthesisIntegrative combines sources into a unified account.
	SynthesisIntegrative SynthesisMode = "integrative"

	// SynthesisEvaluative judges sources against explicit criteria.
	// Evaluative steps must carry a non-empty EvaluateAgainst list.
	SynthesisEvaluative SynthesisMode = "evaluative"
)

// ExperimentMode selects the rigor regime of an experiment step.
type ExperimentMode string

const (
	// ExperimentExploratory permits open-ended investigation.
	ExperimentExploratory ExperimentMode = "exploratory"

	// ExperimentConfirmatory tests preregistered commitments. Confirmatory
	// steps must carry a non-empty PreregisteredCommitments list.
	ExperimentConfirmatory ExperimentMode = "confirmatory"
)

// ExecutorKind identifies the class of performer bound to a step.
type ExecutorKind string

const (
	ExecutorKindAgent    ExecutorKind = "agent"
	ExecutorKindTool     ExecutorKind = "tool"
	ExecutorKindWorkflow ExecutorKind = "workflow"
	ExecutorKindHuman    ExecutorKind = "human"
)

// ExecutorBinding names the performer of a step. Only agent bindings are
// resolved against a capability registry; tool, workflow, and human bindings
// may be supplied dynamically by the caller and are accepted without
// existence checks at validation time.
type ExecutorBinding struct {
	Kind ExecutorKind `json:"kind" yaml:"kind"`
	Ref  string       `json:"ref,omitempty" yaml:"ref,omitempty"`

	// Instructions are free text for human-kind bindings.
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// DataContract documents a named input or output of a step. Contracts are
// documentation for plan readers; the engine does not route data between
// steps based on them.
type DataContract struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// EvalCriteria states how to judge a step's outcome.
type EvalCriteria struct {
	SuccessCondition string `json:"success_condition" yaml:"success_condition"`
	FailureCondition string `json:"failure_condition,omitempty" yaml:"failure_condition,omitempty"`
}

// Step is a single unit of work in a plan. It is a tagged union over Type:
// the common fields apply to every step, and each type populates its own
// extra fields (research: Query/StoppingRule; synthesize: SynthesisMode/
// EvaluateAgainst; experiment: ExperimentMode/HypothesisIDs/Procedure/
// ExpectedOutcomes/SuccessCriteria/PreregisteredCommitments; develop:
// Specification/Deliverables).
type Step struct {
	ID          string   `json:"id" yaml:"id"`
	Type        StepType `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`

	// DependencyIDs lists step ids that must complete before this step.
	DependencyIDs []string `json:"dependency_ids,omitempty" yaml:"dependency_ids,omitempty"`

	// Concurrent declares eligibility to run alongside siblings at the same
	// depth. Nil means eligible; only an explicit false opts out.
	Concurrent *bool `json:"concurrent,omitempty" yaml:"concurrent,omitempty"`

	// RequirementIDs reference the requirements this step addresses.
	RequirementIDs []string `json:"requirement_ids,omitempty" yaml:"requirement_ids,omitempty"`

	// Inputs and Outputs document the step's data contracts.
	Inputs  []DataContract `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs []DataContract `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	EvalCriteria *EvalCriteria   `json:"eval_criteria,omitempty" yaml:"eval_criteria,omitempty"`
	Executor     ExecutorBinding `json:"executor" yaml:"executor"`

	// Research step fields
	Query        string `json:"query,omitempty" yaml:"query,omitempty"`
	StoppingRule string `json:"stopping_rule,omitempty" yaml:"stopping_rule,omitempty"`

	// Synthesize step fields
	SynthesisMode   SynthesisMode `json:"synthesis_mode,omitempty" yaml:"synthesis_mode,omitempty"`
	EvaluateAgainst []string      `json:"evaluate_against,omitempty" yaml:"evaluate_against,omitempty"`

	// Experiment step fields
	ExperimentMode           ExperimentMode `json:"experiment_mode,omitempty" yaml:"experiment_mode,omitempty"`
	HypothesisIDs            []string       `json:"hypothesis_ids,omitempty" yaml:"hypothesis_ids,omitempty"`
	Procedure                string         `json:"procedure,omitempty" yaml:"procedure,omitempty"`
	ExpectedOutcomes         []string       `json:"expected_outcomes,omitempty" yaml:"expected_outcomes,omitempty"`
	SuccessCriteria          []string       `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
	PreregisteredCommitments []string       `json:"preregistered_commitments,omitempty" yaml:"preregistered_commitments,omitempty"`

	// Develop step fields
	Specification string   `json:"specification,omitempty" yaml:"specification,omitempty"`
	Deliverables  []string `json:"deliverables,omitempty" yaml:"deliverables,omitempty"`
}

// IsConcurrent reports whether the step may run alongside same-depth
// siblings. Unset defaults to true.
func (s *Step) IsConcurrent() bool {
	return s.Concurrent == nil || *s.Concurrent
}
