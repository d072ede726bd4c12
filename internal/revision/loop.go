// Package revision drives the generate, validate, feedback, regenerate cycle
// that turns validation failures into corrective guidance for the plan
// generator, bounded by a maximum attempt count.
package revision

import (
	"context"
	"log/slog"

	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/types"
)

// Outcome is the terminal state of one revision loop run. The loop is a
// fixed-point iteration with no convergence guarantee: the plan may still be
// invalid when attempts are exhausted, so callers must check Valid rather
// than assume success.
type Outcome struct {
	Plan     *plan.Plan             `json:"plan"`
	Valid    bool                   `json:"valid"`
	Attempts int                    `json:"attempts"`
	Errors   []plan.ValidationError `json:"errors,omitempty"`
}

// Loop coordinates the external generator and the validator. All iteration
// state lives in the loop body and the returned Outcome; nothing is stored
// on the Loop between runs.
type Loop struct {
	generator   plan.Generator
	validator   *plan.Validator
	maxAttempts int
	logger      *slog.Logger
}

// LoopOption is a functional option for configuring a Loop.
type LoopOption func(*Loop)

// WithMaxAttempts bounds the number of generation attempts (including the
// initial one). Values below one are ignored.
func WithMaxAttempts(n int) LoopOption {
	return func(l *Loop) {
		if n >= 1 {
			l.maxAttempts = n
		}
	}
}

// WithValidator sets the validator used on every candidate plan.
func WithValidator(v *plan.Validator) LoopOption {
	return func(l *Loop) {
		l.validator = v
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a revision loop around the given generator.
// Defaults: 3 attempts, a registry-less validator, slog.Default().
func NewLoop(generator plan.Generator, opts ...LoopOption) *Loop {
	l := &Loop{
		generator:   generator,
		validator:   plan.NewValidator(),
		maxAttempts: 3,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run seeds a plan from the generator, validates it, and while invalid and
// attempts remain, appends feedback covering EVERY validation error to the
// original context and regenerates. The original context is preserved so a
// regenerated plan never loses prior guidance.
func (l *Loop) Run(ctx context.Context, goal, planContext string) (*Outcome, error) {
	candidate, err := l.generator.Generate(ctx, goal, planContext)
	if err != nil {
		return nil, types.WrapError(types.PLAN_GENERATION_FAILED, "initial plan generation failed", err)
	}

	result := l.validator.Validate(candidate)
	attempts := 1

	l.logger.InfoContext(ctx, "candidate plan validated",
		"attempt", attempts,
		"valid", result.Valid,
		"errors", len(result.Errors),
	)

	for !result.Valid && attempts < l.maxAttempts {
		feedback := BuildFeedback(result.Errors)
		combined := combineContext(planContext, feedback)

		candidate, err = l.generator.Generate(ctx, goal, combined)
		if err != nil {
			return nil, types.WrapError(types.PLAN_GENERATION_FAILED, "plan regeneration failed", err)
		}

		result = l.validator.Validate(candidate)
		attempts++

		l.logger.InfoContext(ctx, "candidate plan validated",
			"attempt", attempts,
			"valid", result.Valid,
			"errors", len(result.Errors),
		)
	}

	return &Outcome{
		Plan:     candidate,
		Valid:    result.Valid,
		Attempts: attempts,
		Errors:   result.Errors,
	}, nil
}

// combineContext appends revision feedback to the caller's original context.
func combineContext(original, feedback string) string {
	if original == "" {
		return feedback
	}
	return original + "\n\n" + feedback
}
