package plan

import "context"

// Generator produces a candidate plan for a goal. Implementations may call a
// language model or any other producer; the returned plan must be
// structurally well-typed but is NOT assumed valid. Callers run the result
// through a Validator (usually inside the revision loop).
type Generator interface {
	// Generate creates a plan for the goal. The context string carries any
	// guidance for the generator, including revision feedback accumulated by
	// the revision loop.
	Generate(ctx context.Context, goal, planContext string) (*Plan, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, goal, planContext string) (*Plan, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, goal, planContext string) (*Plan, error) {
	return f(ctx, goal, planContext)
}
