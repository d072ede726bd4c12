// Package schedule compiles a validated plan into an executable schedule and
// runs it: one schedulable unit per step, arranged into per-depth stages
// that follow the plan's parallel groups, with lifecycle events streamed to
// subscribers and fail-fast semantics on step errors.
package schedule

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/planloom/loom/internal/executor"
	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/types"
)

// stage is the unit pipeline for one depth: the concurrency-eligible steps
// run in parallel first, joined before the remainder runs sequentially, all
// before the next depth begins.
type stage struct {
	depth      int
	parallel   []*plan.Step
	sequential []*plan.Step
}

// Schedule is a compiled, executable plan. Compile once, then Run or Stream;
// runs may be repeated but not overlapped, since the engine emits to a
// shared event stream.
type Schedule struct {
	plan     *plan.Plan
	analysis *plan.TopologyAnalysis
	stages   []stage
	registry executor.Registry
	emitter  *EventEmitter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// CompileOption is a functional option for Compile.
type CompileOption func(*compileConfig)

type compileConfig struct {
	registry    executor.Registry
	analysis    *plan.TopologyAnalysis
	logger      *slog.Logger
	tracer      trace.Tracer
	emitterSize int
}

// WithRegistry sets the executor registry used to resolve agent bindings.
func WithRegistry(r executor.Registry) CompileOption {
	return func(c *compileConfig) {
		c.registry = r
	}
}

// WithMockExecutors compiles the schedule against the deterministic mock
// registry with the given artificial delay, for testing without invoking
// real executors.
func WithMockExecutors(delay time.Duration) CompileOption {
	return func(c *compileConfig) {
		c.registry = executor.NewMockRegistry(executor.WithDelay(delay))
	}
}

// WithAnalysis supplies a precomputed topology analysis so the compiler does
// not recompute it.
func WithAnalysis(a *plan.TopologyAnalysis) CompileOption {
	return func(c *compileConfig) {
		c.analysis = a
	}
}

// WithLogger sets the structured logger used during execution.
func WithLogger(logger *slog.Logger) CompileOption {
	return func(c *compileConfig) {
		c.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer used during execution.
func WithTracer(tracer trace.Tracer) CompileOption {
	return func(c *compileConfig) {
		c.tracer = tracer
	}
}

// WithEmitterBuffer sets the per-subscriber event buffer size.
func WithEmitterBuffer(n int) CompileOption {
	return func(c *compileConfig) {
		c.emitterSize = n
	}
}

// Compile builds an executable schedule from a plan. The plan must already
// have passed validation; Compile assumes an acyclic graph with resolvable
// references. Stage assembly follows the parallel groups: a single-step
// group becomes a sequential stage; a multi-step group runs its
// concurrency-eligible subset in parallel and the remainder sequentially.
func Compile(p *plan.Plan, opts ...CompileOption) (*Schedule, error) {
	if p == nil {
		return nil, types.NewError(types.PLAN_INVALID, "plan cannot be nil")
	}
	if len(p.Steps) == 0 {
		return nil, types.NewError(types.PLAN_INVALID, "plan has no steps to schedule")
	}

	cfg := &compileConfig{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.registry == nil {
		return nil, types.NewError(types.EXECUTOR_NOT_FOUND, "compile requires an executor registry")
	}

	analysis := cfg.analysis
	if analysis == nil {
		analysis = plan.Analyze(p)
	}

	if cfg.emitterSize == 0 {
		// Room for every step's start + terminal event plus the plan-level
		// and per-stage events, so a draining subscriber never loses events.
		cfg.emitterSize = 3*len(p.Steps) + 3*len(analysis.ParallelGroups) + 4
	}

	s := &Schedule{
		plan:     p,
		analysis: analysis,
		registry: cfg.registry,
		emitter:  NewEventEmitter(cfg.emitterSize),
		logger:   cfg.logger,
		tracer:   cfg.tracer,
	}

	for _, group := range analysis.ParallelGroups {
		st := stage{depth: group.Depth}

		if len(group.StepIDs) == 1 {
			st.sequential = append(st.sequential, p.GetStep(group.StepIDs[0]))
		} else {
			concurrent := make(map[string]bool, len(group.ConcurrentStepIDs))
			for _, id := range group.ConcurrentStepIDs {
				concurrent[id] = true
			}
			for _, id := range group.StepIDs {
				step := p.GetStep(id)
				if concurrent[id] {
					st.parallel = append(st.parallel, step)
				} else {
					st.sequential = append(st.sequential, step)
				}
			}
		}

		s.stages = append(s.stages, st)
	}

	return s, nil
}

// Analysis returns the topology analysis the schedule was compiled against.
func (s *Schedule) Analysis() *plan.TopologyAnalysis {
	return s.analysis
}

// Subscribe returns a lifecycle event channel and its cleanup function.
// Subscribe before calling Run to observe the full event sequence.
func (s *Schedule) Subscribe() (<-chan Event, func()) {
	return s.emitter.Subscribe()
}
