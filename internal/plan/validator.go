package plan

import (
	"fmt"
	"strings"

	"github.com/planloom/loom/internal/types"
)

// ValidationCode is the closed enumeration of validation error codes.
type ValidationCode string

const (
	CodeEmptyPlan                       ValidationCode = "EMPTY_PLAN"
	CodeDuplicateStepID                 ValidationCode = "DUPLICATE_STEP_ID"
	CodeDuplicateHypothesisID           ValidationCode = "DUPLICATE_HYPOTHESIS_ID"
	CodeDuplicateRequirementID          ValidationCode = "DUPLICATE_REQUIREMENT_ID"
	CodeInvalidStepReference            ValidationCode = "INVALID_STEP_REFERENCE"
	CodeInvalidHypothesisReference      ValidationCode = "INVALID_HYPOTHESIS_REFERENCE"
	CodeInvalidRequirementReference     ValidationCode = "INVALID_REQUIREMENT_REFERENCE"
	CodeInvalidExecutorReference        ValidationCode = "INVALID_EXECUTOR_REFERENCE"
	CodeExecutorCannotHandleStep        ValidationCode = "EXECUTOR_CANNOT_HANDLE_STEP"
	CodeMissingPreregisteredCommitments ValidationCode = "MISSING_PREREGISTERED_COMMITMENTS"
	CodeMissingEvaluateAgainst          ValidationCode = "MISSING_EVALUATE_AGAINST"
	CodeCycleDetected                   ValidationCode = "CYCLE_DETECTED"
)

// ValidationDetails carries structured detail for errors that need more than
// a context map. Cycle is an ordered list of step ids beginning and ending
// at the same id.
type ValidationDetails struct {
	Cycle []string `json:"cycle,omitempty"`
}

// ValidationError is one violated invariant. A plan can violate several
// invariants at once; Validate reports all of them.
type ValidationError struct {
	Code    ValidationCode     `json:"code"`
	Message string             `json:"message"`
	Context map[string]any     `json:"context,omitempty"`
	Details *ValidationDetails `json:"details,omitempty"`
}

// String renders the error as "[CODE] message".
func (e ValidationError) String() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ValidationResult is the outcome of validating a plan. It is data, not an
// error: an invalid plan is expected input to the revision loop.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Summary string            `json:"summary"`
}

// ExecutorCapability is the slice of the executor registry surface the
// validator needs: whether a resolved executor can handle a step type.
type ExecutorCapability interface {
	CanHandle(t StepType) bool
}

// CapabilityResolver resolves an agent executor ref to its capability.
// The second return value reports whether the ref exists.
type CapabilityResolver func(ref string) (ExecutorCapability, bool)

// Validator performs deterministic structural and rigor checks on a plan.
// It is stateless apart from its optional capability resolver, never mutates
// the plan, and never fails with an error for malformed-but-well-typed input.
type Validator struct {
	resolve CapabilityResolver
}

// ValidatorOption is a functional option for configuring a Validator.
type ValidatorOption func(*Validator)

// WithCapabilityResolver wires the agent capability registry into the
// validator. Without it, executor reference and capability checks are
// skipped (tool, workflow, and human bindings are never checked).
func WithCapabilityResolver(r CapabilityResolver) ValidatorOption {
	return func(v *Validator) {
		v.resolve = r
	}
}

// NewValidator creates a Validator with the given options.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every check and concatenates all errors. Checks are
// independent: a plan with a duplicate id AND a cycle reports both.
func (v *Validator) Validate(p *Plan) ValidationResult {
	var errs []ValidationError

	errs = append(errs, v.checkNonEmpty(p)...)
	errs = append(errs, v.checkDuplicateStepIDs(p)...)
	errs = append(errs, v.checkDuplicateHypothesisIDs(p)...)
	errs = append(errs, v.checkDuplicateRequirementIDs(p)...)
	errs = append(errs, v.checkStepReferences(p)...)
	errs = append(errs, v.checkHypothesisReferences(p)...)
	errs = append(errs, v.checkRequirementReferences(p)...)
	errs = append(errs, v.checkExecutors(p)...)
	errs = append(errs, v.checkPreregisteredCommitments(p)...)
	errs = append(errs, v.checkEvaluateAgainst(p)...)
	errs = append(errs, v.checkCycles(p)...)

	result := ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
	if result.Valid {
		result.Summary = fmt.Sprintf("plan %s is valid (%d steps)", p.ID, len(p.Steps))
	} else {
		result.Summary = fmt.Sprintf("plan %s failed validation with %d error(s)", p.ID, len(errs))
	}
	return result
}

// AssertValid validates the plan and returns a single aggregated error
// listing every "[CODE] message" line when the plan is invalid. Intended for
// fail-fast call sites that cannot act on a structured result.
func (v *Validator) AssertValid(p *Plan) error {
	result := v.Validate(p)
	if result.Valid {
		return nil
	}

	lines := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		lines = append(lines, e.String())
	}
	return types.NewError(types.PLAN_INVALID, strings.Join(lines, "; "))
}

func (v *Validator) checkNonEmpty(p *Plan) []ValidationError {
	if len(p.Steps) > 0 {
		return nil
	}
	return []ValidationError{{
		Code:    CodeEmptyPlan,
		Message: "plan must contain at least one step",
	}}
}

func (v *Validator) checkDuplicateStepIDs(p *Plan) []ValidationError {
	return checkDuplicates(stepIDs(p), CodeDuplicateStepID, "step")
}

func (v *Validator) checkDuplicateHypothesisIDs(p *Plan) []ValidationError {
	ids := make([]string, 0, len(p.Hypotheses))
	for _, h := range p.Hypotheses {
		ids = append(ids, h.ID)
	}
	return checkDuplicates(ids, CodeDuplicateHypothesisID, "hypothesis")
}

func (v *Validator) checkDuplicateRequirementIDs(p *Plan) []ValidationError {
	ids := make([]string, 0, len(p.Requirements))
	for _, r := range p.Requirements {
		ids = append(ids, r.ID)
	}
	return checkDuplicates(ids, CodeDuplicateRequirementID, "requirement")
}

// checkDuplicates reports one error per repeated id, on its second and
// subsequent occurrences.
func checkDuplicates(ids []string, code ValidationCode, kind string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			errs = append(errs, ValidationError{
				Code:    code,
				Message: fmt.Sprintf("duplicate %s id %q", kind, id),
				Context: map[string]any{"duplicate_id": id},
			})
			continue
		}
		seen[id] = true
	}
	return errs
}

func (v *Validator) checkStepReferences(p *Plan) []ValidationError {
	known := stepIDSet(p)
	var errs []ValidationError
	for i := range p.Steps {
		step := &p.Steps[i]
		for _, depID := range step.DependencyIDs {
			if !known[depID] {
				errs = append(errs, ValidationError{
					Code:    CodeInvalidStepReference,
					Message: fmt.Sprintf("step %q depends on %q which does not exist in the plan", step.ID, depID),
					Context: map[string]any{"step_id": step.ID, "reference": depID},
				})
			}
		}
	}
	return errs
}

func (v *Validator) checkHypothesisReferences(p *Plan) []ValidationError {
	known := make(map[string]bool, len(p.Hypotheses))
	for _, h := range p.Hypotheses {
		known[h.ID] = true
	}

	var errs []ValidationError
	for i := range p.Steps {
		step := &p.Steps[i]
		for _, hypID := range step.HypothesisIDs {
			if !known[hypID] {
				errs = append(errs, ValidationError{
					Code:    CodeInvalidHypothesisReference,
					Message: fmt.Sprintf("step %q references hypothesis %q which does not exist in the plan", step.ID, hypID),
					Context: map[string]any{"step_id": step.ID, "reference": hypID},
				})
			}
		}
	}
	return errs
}

func (v *Validator) checkRequirementReferences(p *Plan) []ValidationError {
	known := make(map[string]bool, len(p.Requirements))
	for _, r := range p.Requirements {
		known[r.ID] = true
	}

	var errs []ValidationError
	for i := range p.Steps {
		step := &p.Steps[i]
		for _, reqID := range step.RequirementIDs {
			if !known[reqID] {
				errs = append(errs, ValidationError{
					Code:    CodeInvalidRequirementReference,
					Message: fmt.Sprintf("step %q references requirement %q which does not exist in the plan", step.ID, reqID),
					Context: map[string]any{"step_id": step.ID, "reference": reqID},
				})
			}
		}
	}
	return errs
}

// checkExecutors verifies agent bindings against the capability registry:
// the ref must resolve and the resolved executor must handle the step type.
// Tool, workflow, and human bindings are accepted without existence checks.
func (v *Validator) checkExecutors(p *Plan) []ValidationError {
	if v.resolve == nil {
		return nil
	}

	var errs []ValidationError
	for i := range p.Steps {
		step := &p.Steps[i]
		if step.Executor.Kind != ExecutorKindAgent {
			continue
		}

		capability, ok := v.resolve(step.Executor.Ref)
		if !ok {
			errs = append(errs, ValidationError{
				Code:    CodeInvalidExecutorReference,
				Message: fmt.Sprintf("step %q is bound to agent %q which is not in the executor registry", step.ID, step.Executor.Ref),
				Context: map[string]any{"step_id": step.ID, "executor_ref": step.Executor.Ref},
			})
			continue
		}

		if !capability.CanHandle(step.Type) {
			errs = append(errs, ValidationError{
				Code:    CodeExecutorCannotHandleStep,
				Message: fmt.Sprintf("agent %q cannot handle %s steps (step %q)", step.Executor.Ref, step.Type, step.ID),
				Context: map[string]any{"step_id": step.ID, "executor_ref": step.Executor.Ref, "step_type": string(step.Type)},
			})
		}
	}
	return errs
}

func (v *Validator) checkPreregisteredCommitments(p *Plan) []ValidationError {
	var errs []ValidationError
	for i := range p.Steps {
		step := &p.Steps[i]
		if step.Type != StepTypeExperiment || step.ExperimentMode != ExperimentConfirmatory {
			continue
		}
		if len(step.PreregisteredCommitments) == 0 {
			errs = append(errs, ValidationError{
				Code:    CodeMissingPreregisteredCommitments,
				Message: fmt.Sprintf("confirmatory experiment step %q must declare preregistered commitments", step.ID),
				Context: map[string]any{"step_id": step.ID},
			})
		}
	}
	return errs
}

func (v *Validator) checkEvaluateAgainst(p *Plan) []ValidationError {
	var errs []ValidationError
	for i := range p.Steps {
		step := &p.Steps[i]
		if step.Type != StepTypeSynthesize || step.SynthesisMode != SynthesisEvaluative {
			continue
		}
		if len(step.EvaluateAgainst) == 0 {
			errs = append(errs, ValidationError{
				Code:    CodeMissingEvaluateAgainst,
				Message: fmt.Sprintf("evaluative synthesize step %q must declare what to evaluate against", step.ID),
				Context: map[string]any{"step_id": step.ID},
			})
		}
	}
	return errs
}

// Node colors for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGray         // on the current search stack
	colorBlack        // finished
)

// dfsFrame is one entry on the explicit DFS stack: a node and the index of
// the next neighbor to visit.
type dfsFrame struct {
	id   string
	next int
}

// checkCycles runs a three-color depth-first search over the dependency
// graph using an explicit stack, so large plans cannot exhaust the call
// stack. Only the first cycle found is reported; plans with several
// independent cycles need multiple validate/fix rounds.
func (v *Validator) checkCycles(p *Plan) []ValidationError {
	if len(p.Steps) == 0 {
		return nil
	}

	// Edges run from a dependency to its dependents, in declaration order.
	adjacency := make(map[string][]string, len(p.Steps))
	known := stepIDSet(p)
	for i := range p.Steps {
		step := &p.Steps[i]
		for _, depID := range step.DependencyIDs {
			// Dangling references are reported by checkStepReferences.
			if known[depID] {
				adjacency[depID] = append(adjacency[depID], step.ID)
			}
		}
	}

	color := make(map[string]int, len(p.Steps))
	pred := make(map[string]string, len(p.Steps))

	for _, seed := range stepIDs(p) {
		if color[seed] != colorWhite {
			continue
		}

		stack := []dfsFrame{{id: seed}}
		color[seed] = colorGray

		for len(stack) > 0 {
			frame := &stack[len(stack)-1]
			neighbors := adjacency[frame.id]

			if frame.next >= len(neighbors) {
				color[frame.id] = colorBlack
				stack = stack[:len(stack)-1]
				continue
			}

			neighbor := neighbors[frame.next]
			frame.next++

			switch color[neighbor] {
			case colorWhite:
				color[neighbor] = colorGray
				pred[neighbor] = frame.id
				stack = append(stack, dfsFrame{id: neighbor})
			case colorGray:
				cycle := reconstructCycle(pred, frame.id, neighbor)
				return []ValidationError{{
					Code:    CodeCycleDetected,
					Message: fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")),
					Details: &ValidationDetails{Cycle: cycle},
				}}
			}
			// Black neighbors are already fully explored.
		}
	}

	return nil
}

// reconstructCycle walks recorded predecessors from the current node back to
// the gray target, reverses the path, and closes the loop so the returned
// list begins and ends at the same step id.
func reconstructCycle(pred map[string]string, from, target string) []string {
	path := []string{from}
	for cur := from; cur != target; {
		cur = pred[cur]
		path = append(path, cur)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return append(path, target)
}

func stepIDs(p *Plan) []string {
	ids := make([]string, 0, len(p.Steps))
	for i := range p.Steps {
		ids = append(ids, p.Steps[i].ID)
	}
	return ids
}

func stepIDSet(p *Plan) map[string]bool {
	set := make(map[string]bool, len(p.Steps))
	for i := range p.Steps {
		set[p.Steps[i].ID] = true
	}
	return set
}
