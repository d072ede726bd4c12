package plan

import (
	"time"

	"github.com/planloom/loom/internal/types"
)

// AimType is a coarse classification of what a plan is trying to achieve.
// It is carried for reporting purposes only and is never load-bearing.
type AimType string

const (
	AimDescribe  AimType = "describe"
	AimExplain   AimType = "explain"
	AimPredict   AimType = "predict"
	AimIntervene AimType = "intervene"
)

// Priority expresses how binding a requirement is.
type Priority string

const (
	PriorityMust   Priority = "must"
	PriorityShould Priority = "should"
	PriorityCould  Priority = "could"
)

// HypothesisStatus tracks the evidential state of a hypothesis.
type HypothesisStatus string

const (
	HypothesisUntested     HypothesisStatus = "untested"
	HypothesisTesting      HypothesisStatus = "testing"
	HypothesisSupported    HypothesisStatus = "supported"
	HypothesisRefuted      HypothesisStatus = "refuted"
	HypothesisInconclusive HypothesisStatus = "inconclusive"
)

// Requirement is a success condition the plan must address.
// IDs are unique within a plan and referenced by steps via RequirementIDs.
type Requirement struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
}

// Hypothesis is a falsifiable statement the plan sets out to test.
// IDs are unique within a plan and referenced by experiment steps.
type Hypothesis struct {
	ID          string           `json:"id" yaml:"id"`
	Statement   string           `json:"statement" yaml:"statement"`
	Assumptions []string         `json:"assumptions,omitempty" yaml:"assumptions,omitempty"`
	TestableVia string           `json:"testable_via,omitempty" yaml:"testable_via,omitempty"`
	Status      HypothesisStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// UnknownUnknown records a potential surprise together with the signal
// that would reveal it during execution.
type UnknownUnknown struct {
	PotentialSurprise string `json:"potential_surprise" yaml:"potential_surprise"`
	DetectionSignal   string `json:"detection_signal" yaml:"detection_signal"`
}

// UnknownsMap is an epistemic inventory attached to a plan. It is carried
// through validation and execution untouched; no field is required to be
// non-empty.
type UnknownsMap struct {
	KnownKnowns     []string         `json:"known_knowns,omitempty" yaml:"known_knowns,omitempty"`
	KnownUnknowns   []string         `json:"known_unknowns,omitempty" yaml:"known_unknowns,omitempty"`
	UnknownUnknowns []UnknownUnknown `json:"unknown_unknowns,omitempty" yaml:"unknown_unknowns,omitempty"`
	CommunityCheck  string           `json:"community_check,omitempty" yaml:"community_check,omitempty"`
}

// Plan is a decomposition of a high-level goal into a DAG of typed steps.
// A plan is produced whole by a generator, consumed read-only by the
// validator, analyzer, and compiler, and replaced (never mutated) by the
// revision loop. Derived structures are always freshly allocated.
type Plan struct {
	// ID identifies this plan instance. Assigned by the generator or the
	// engine when absent.
	ID types.ID `json:"id" yaml:"id"`

	// GoalSummary is the generator's restatement of the goal being planned.
	GoalSummary string `json:"goal_summary" yaml:"goal_summary"`

	// AimType is an optional weak classification of the plan's intent.
	AimType AimType `json:"aim_type,omitempty" yaml:"aim_type,omitempty"`

	// Requirements the plan claims to address.
	Requirements []Requirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`

	// Hypotheses the plan sets out to test.
	Hypotheses []Hypothesis `json:"hypotheses,omitempty" yaml:"hypotheses,omitempty"`

	// Steps form the dependency DAG. Edges are declared per-step via
	// DependencyIDs.
	Steps []Step `json:"steps" yaml:"steps"`

	// Unknowns is the plan's epistemic inventory.
	Unknowns UnknownsMap `json:"unknowns,omitempty" yaml:"unknowns,omitempty"`

	// EstimatedComplexity is an optional generator-supplied signal
	// (e.g. "low", "medium", "high").
	EstimatedComplexity string `json:"estimated_complexity,omitempty" yaml:"estimated_complexity,omitempty"`

	// CreatedAt is when the plan was produced.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// GetStep retrieves a step by id. Returns nil if not present.
func (p *Plan) GetStep(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// GetHypothesis retrieves a hypothesis by id. Returns nil if not present.
func (p *Plan) GetHypothesis(id string) *Hypothesis {
	for i := range p.Hypotheses {
		if p.Hypotheses[i].ID == id {
			return &p.Hypotheses[i]
		}
	}
	return nil
}

// GetRequirement retrieves a requirement by id. Returns nil if not present.
func (p *Plan) GetRequirement(id string) *Requirement {
	for i := range p.Requirements {
		if p.Requirements[i].ID == id {
			return &p.Requirements[i]
		}
	}
	return nil
}

// Normalize fills in defaulted fields: a plan ID when absent and the
// untested status on hypotheses that carry none. It is called by decoders
// and generators, never by the validator.
func (p *Plan) Normalize() {
	if p.ID.IsZero() {
		p.ID = types.NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	for i := range p.Hypotheses {
		if p.Hypotheses[i].Status == "" {
			p.Hypotheses[i].Status = HypothesisUntested
		}
	}
}
