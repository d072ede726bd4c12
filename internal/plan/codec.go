// Plan documents can be written in human-readable YAML (or JSON, which YAML
// subsumes) and decoded into Plan structures.
//
// # YAML structure example
//
//	goal_summary: Establish whether caching improves p99 latency
//	aim_type: explain
//	requirements:
//	  - id: R1
//	    description: Measurable latency improvement
//	    priority: must
//	hypotheses:
//	  - id: H1
//	    statement: A read-through cache cuts p99 latency by 30%
//	    testable_via: load test against a cached deployment
//	steps:
//	  - id: S1
//	    type: research
//	    description: Survey existing latency measurements
//	    query: p99 latency baseline
//	    stopping_rule: two consistent sources
//	    executor: {kind: agent, ref: researcher}
//	  - id: S2
//	    type: experiment
//	    description: Load test the cached deployment
//	    experiment_mode: confirmatory
//	    hypothesis_ids: [H1]
//	    procedure: replay production traffic for one hour
//	    preregistered_commitments:
//	      - p99 measured over the full hour, no windowing
//	    dependency_ids: [S1]
//	    executor: {kind: agent, ref: experimenter}
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/planloom/loom/internal/types"
)

// Decode parses a plan document from YAML or JSON bytes and normalizes
// defaulted fields. Structural validity is NOT checked; pass the result to a
// Validator.
func Decode(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, types.WrapError(types.PLAN_DECODE_FAILED, "failed to decode plan document", err)
	}

	p.Normalize()
	return &p, nil
}

// Load reads and decodes a plan document from a file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.PLAN_DECODE_FAILED, fmt.Sprintf("failed to read plan file %s", path), err)
	}
	return Decode(data)
}

// Encode renders a plan as YAML.
func Encode(p *Plan) ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, types.WrapError(types.PLAN_DECODE_FAILED, "failed to encode plan document", err)
	}
	return data, nil
}
