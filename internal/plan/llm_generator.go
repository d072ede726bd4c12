package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/planloom/loom/internal/llm"
	"github.com/planloom/loom/internal/types"
)

// LLMGenerator produces plans by prompting a language model with the step
// schema and rigor rules, then parsing its JSON response. Parse failures are
// retried a bounded number of times with corrective feedback appended to the
// user prompt; the retry count is threaded through the call, never stored in
// package state.
type LLMGenerator struct {
	client     llm.Client
	logger     *slog.Logger
	maxRetries int
}

// LLMGeneratorOption is a functional option for configuring an LLMGenerator.
type LLMGeneratorOption func(*LLMGenerator)

// WithGeneratorLogger sets the structured logger used during generation.
func WithGeneratorLogger(logger *slog.Logger) LLMGeneratorOption {
	return func(g *LLMGenerator) {
		g.logger = logger
	}
}

// WithParseRetries sets the maximum number of parse-error retries.
func WithParseRetries(n int) LLMGeneratorOption {
	return func(g *LLMGenerator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// NewLLMGenerator creates an LLM-backed plan generator.
// Defaults: slog.Default() logger, 2 parse retries.
func NewLLMGenerator(client llm.Client, opts ...LLMGeneratorOption) *LLMGenerator {
	gen := &LLMGenerator{
		client:     client,
		logger:     slog.Default(),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(gen)
	}
	return gen
}

// Generate implements Generator. The response is parsed, normalized
// (plan id, hypothesis statuses), and returned without validation.
func (g *LLMGenerator) Generate(ctx context.Context, goal, planContext string) (*Plan, error) {
	if goal == "" {
		return nil, types.NewError(types.PLAN_GENERATION_FAILED, "goal cannot be empty")
	}

	system := buildSystemPrompt()
	user := buildUserPrompt(goal, planContext)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		response, err := g.client.Complete(ctx, system, user)
		if err != nil {
			return nil, types.WrapError(types.PLAN_GENERATION_FAILED, "plan completion failed", err)
		}

		p, err := parseGeneratedPlan(response)
		if err != nil {
			lastErr = err
			g.logger.WarnContext(ctx, "generated plan could not be parsed",
				"attempt", attempt+1,
				"error", err,
			)
			user = fmt.Sprintf("%s\n\nYour previous response could not be parsed: %v. Respond again with ONLY a valid JSON object following the schema exactly.", user, err)
			continue
		}

		p.GoalSummary = firstNonEmpty(p.GoalSummary, goal)
		p.Normalize()
		return p, nil
	}

	return nil, types.WrapError(types.PLAN_PARSE_FAILED,
		fmt.Sprintf("failed to parse generated plan after %d attempts", g.maxRetries+1), lastErr)
}

// buildSystemPrompt describes the plan schema and the rigor rules the
// validator will enforce, so well-behaved models produce valid plans on the
// first try.
func buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a research planning assistant. Decompose the given goal into a ")
	sb.WriteString("directed acyclic graph of typed steps and respond with a single JSON object.\n\n")

	sb.WriteString("# Output schema\n\n")
	sb.WriteString("```json\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"goal_summary\": \"one-sentence restatement of the goal\",\n")
	sb.WriteString("  \"aim_type\": \"describe|explain|predict|intervene\",\n")
	sb.WriteString("  \"requirements\": [{\"id\": \"R1\", \"description\": \"...\", \"priority\": \"must|should|could\"}],\n")
	sb.WriteString("  \"hypotheses\": [{\"id\": \"H1\", \"statement\": \"...\", \"assumptions\": [], \"testable_via\": \"...\"}],\n")
	sb.WriteString("  \"unknowns\": {\"known_knowns\": [], \"known_unknowns\": [], \"unknown_unknowns\": [{\"potential_surprise\": \"...\", \"detection_signal\": \"...\"}], \"community_check\": \"...\"},\n")
	sb.WriteString("  \"steps\": [\n")
	sb.WriteString("    {\n")
	sb.WriteString("      \"id\": \"S1\",\n")
	sb.WriteString("      \"type\": \"research|synthesize|experiment|develop\",\n")
	sb.WriteString("      \"description\": \"what this step does\",\n")
	sb.WriteString("      \"dependency_ids\": [],\n")
	sb.WriteString("      \"requirement_ids\": [],\n")
	sb.WriteString("      \"executor\": {\"kind\": \"agent\", \"ref\": \"researcher\"}\n")
	sb.WriteString("    }\n")
	sb.WriteString("  ]\n")
	sb.WriteString("}\n")
	sb.WriteString("```\n\n")

	sb.WriteString("# Step types\n\n")
	sb.WriteString("- research: add \"query\" and \"stopping_rule\".\n")
	sb.WriteString("- synthesize: add \"synthesis_mode\" (integrative|evaluative); evaluative steps MUST list \"evaluate_against\".\n")
	sb.WriteString("- experiment: add \"experiment_mode\" (exploratory|confirmatory), \"hypothesis_ids\", \"procedure\", \"expected_outcomes\", \"success_criteria\"; confirmatory steps MUST list \"preregistered_commitments\".\n")
	sb.WriteString("- develop: add \"specification\" and \"deliverables\".\n\n")

	sb.WriteString("# Rules\n\n")
	sb.WriteString("- Step, hypothesis, and requirement ids must each be unique.\n")
	sb.WriteString("- Every dependency_ids, hypothesis_ids, and requirement_ids entry must reference an existing id.\n")
	sb.WriteString("- The dependency graph must be acyclic.\n")
	sb.WriteString("- Every plan needs at least one step.\n")
	sb.WriteString("- Prefer independent steps so work can run in parallel.\n")

	return sb.String()
}

// buildUserPrompt carries the goal and any accumulated context, including
// revision feedback from previous validation failures.
func buildUserPrompt(goal, planContext string) string {
	var sb strings.Builder

	sb.WriteString("# Goal\n\n")
	sb.WriteString(goal)
	sb.WriteString("\n")

	if planContext != "" {
		sb.WriteString("\n# Context\n\n")
		sb.WriteString(planContext)
		sb.WriteString("\n")
	}

	sb.WriteString("\nRespond ONLY with the JSON object, no surrounding prose.")
	return sb.String()
}

// parseGeneratedPlan extracts JSON from the model response (markdown-aware)
// and decodes it into a Plan.
func parseGeneratedPlan(response string) (*Plan, error) {
	extracted, err := llm.ExtractJSON(response)
	if err != nil {
		return nil, fmt.Errorf("failed to extract JSON from response: %w", err)
	}

	var p Plan
	if err := json.Unmarshal([]byte(extracted), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan JSON: %w", err)
	}

	return &p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
