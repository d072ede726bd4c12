package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/planloom/loom/internal/plan"
	"github.com/planloom/loom/internal/types"
)

// ForceErrorTag, when present in a step's prompt or description, makes the
// mock capability fail. Used to exercise fail-fast paths in tests.
const ForceErrorTag = "[force-error]"

// MockRegistry is a deterministic stand-in for a real executor registry:
// every ref resolves to a capability that handles all step types, echoes a
// summary derived from the invocation, and optionally sleeps for a fixed
// artificial delay so timing-sensitive tests have something to measure.
type MockRegistry struct {
	delay time.Duration
}

// MockOption is a functional option for configuring a MockRegistry.
type MockOption func(*MockRegistry)

// WithDelay sets the artificial per-invocation delay.
func WithDelay(d time.Duration) MockOption {
	return func(m *MockRegistry) {
		if d > 0 {
			m.delay = d
		}
	}
}

// NewMockRegistry creates a MockRegistry with no delay by default.
func NewMockRegistry(opts ...MockOption) *MockRegistry {
	m := &MockRegistry{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve implements Registry. Every ref resolves.
func (m *MockRegistry) Resolve(ref string) (Capability, bool) {
	return &mockCapability{ref: ref, delay: m.delay}, true
}

// Refs implements Registry. The mock has no fixed ref set.
func (m *MockRegistry) Refs() []string {
	return []string{}
}

type mockCapability struct {
	ref   string
	delay time.Duration
}

// CanHandle reports true for every step type.
func (c *mockCapability) CanHandle(t plan.StepType) bool {
	return true
}

// Invoke sleeps for the configured delay, fails when the prompt carries the
// force-error tag, and otherwise echoes a deterministic summary.
func (c *mockCapability) Invoke(ctx context.Context, inv Invocation) (Output, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return Output{}, ctx.Err()
		}
	}

	if strings.Contains(inv.Prompt, ForceErrorTag) {
		return Output{}, types.NewError(types.STEP_EXECUTION_FAILED,
			fmt.Sprintf("mock executor %q forced an error for step %q", c.ref, inv.StepID))
	}

	return Output{
		Summary: fmt.Sprintf("mock %s completed %s step %s", c.ref, inv.StepType, inv.StepID),
		Data: map[string]any{
			"executor": c.ref,
			"step_id":  inv.StepID,
		},
	}, nil
}
