// Package executor defines the capability registry that binds agent
// executor refs to callable capabilities, plus a deterministic mock registry
// for tests and dry runs.
package executor

import (
	"context"
	"sort"
	"sync"

	"github.com/planloom/loom/internal/plan"
)

// Invocation is everything a capability receives for one step dispatch.
type Invocation struct {
	StepID   string         `json:"step_id"`
	StepType plan.StepType  `json:"step_type"`
	Prompt   string         `json:"prompt"`
	Input    map[string]any `json:"input,omitempty"`
}

// Output is what a capability returns for a successful invocation.
type Output struct {
	Summary string         `json:"summary"`
	Data    map[string]any `json:"data,omitempty"`
}

// Capability is one registered executor: it declares which step types it
// can handle and performs the work. Implementations bound their own
// concurrency; the engine imposes no global cap.
type Capability interface {
	// CanHandle reports whether this executor can perform steps of type t.
	CanHandle(t plan.StepType) bool

	// Invoke performs the step work. Blocking; honors ctx cancellation.
	Invoke(ctx context.Context, inv Invocation) (Output, error)
}

// Registry resolves agent executor refs to capabilities.
type Registry interface {
	// Resolve returns the capability registered under ref, if any.
	Resolve(ref string) (Capability, bool)

	// Refs returns all registered refs, sorted.
	Refs() []string
}

// MapRegistry is a plain map-backed Registry. Safe for concurrent reads
// after registration is complete; Register is guarded for convenience.
type MapRegistry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
}

// NewMapRegistry creates an empty MapRegistry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{
		capabilities: make(map[string]Capability),
	}
}

// Register binds ref to the capability, replacing any previous binding.
func (r *MapRegistry) Register(ref string, c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[ref] = c
}

// Resolve implements Registry.
func (r *MapRegistry) Resolve(ref string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[ref]
	return c, ok
}

// Refs implements Registry.
func (r *MapRegistry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]string, 0, len(r.capabilities))
	for ref := range r.capabilities {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// CapabilityResolver adapts a Registry to the validator's resolver shape.
func CapabilityResolver(r Registry) plan.CapabilityResolver {
	return func(ref string) (plan.ExecutorCapability, bool) {
		c, ok := r.Resolve(ref)
		if !ok {
			return nil, false
		}
		return c, true
	}
}
