package registry

import (
	"context"
	"sync"

	"github.com/cyberelf/ranch/a2a"
	"golang.org/x/sync/errgroup"
)

// Entry is what the agent registry stores per id: the live Agent handle
// plus its last-known profile, kept for capability indexing without a
// network round-trip on every lookup.
type Entry struct {
	Agent   a2a.Agent
	Profile a2a.AgentProfile
}

// AgentRegistry is the in-process mapping from agent id to agent handle
// named in the component table (§2), built on the generic BaseRegistry
// the way the teacher's agent.AgentRegistry wraps pkg/registry.BaseRegistry.
type AgentRegistry struct {
	base *BaseRegistry[Entry]
}

// NewAgentRegistry constructs an empty AgentRegistry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{base: NewBaseRegistry[Entry]()}
}

// RegisterAgent registers agent under id with its profile, fetched via
// Profile up front so capability indexing doesn't block later lookups.
// It enforces the uniqueness invariant of §3.5 (a duplicate id fails).
func (r *AgentRegistry) RegisterAgent(ctx context.Context, id string, agent a2a.Agent) error {
	profile, err := agent.Profile(ctx)
	if err != nil {
		return a2a.WrapError(a2a.ErrInternal, err, "fetching profile for agent %q", id)
	}
	if err := r.base.Register(id, Entry{Agent: agent, Profile: profile}); err != nil {
		if _, ok := err.(*DuplicateError); ok {
			return a2a.NewError(a2a.ErrValidation, "agent id already registered: %s", id)
		}
		return a2a.NewError(a2a.ErrValidation, "%v", err)
	}
	return nil
}

// Get returns the Agent handle registered under id.
func (r *AgentRegistry) Get(id string) (a2a.Agent, bool) {
	e, ok := r.base.Get(id)
	if !ok {
		return nil, false
	}
	return e.Agent, true
}

// Profile returns the last-known profile registered under id, without
// making a network call.
func (r *AgentRegistry) Profile(id string) (a2a.AgentProfile, bool) {
	e, ok := r.base.Get(id)
	if !ok {
		return a2a.AgentProfile{}, false
	}
	return e.Profile, true
}

// RefreshProfile re-fetches and caches the profile for id.
func (r *AgentRegistry) RefreshProfile(ctx context.Context, id string) error {
	e, ok := r.base.Get(id)
	if !ok {
		return a2a.AgentNotFoundError(id)
	}
	profile, err := e.Agent.Profile(ctx)
	if err != nil {
		return a2a.WrapError(a2a.ErrInternal, err, "refreshing profile for agent %q", id)
	}
	e.Profile = profile
	r.base.Remove(id)
	return r.base.Register(id, e)
}

// IDs returns every registered agent id.
func (r *AgentRegistry) IDs() []string { return r.base.List() }

// Count returns the number of registered agents.
func (r *AgentRegistry) Count() int { return r.base.Count() }

// Remove deregisters id, reporting whether it was present.
func (r *AgentRegistry) Remove(id string) bool { return r.base.Remove(id) }

// Entries returns a snapshot of id → Entry for every registered agent,
// used by the Router and Team to build peer-card lists without holding
// the registry's internal lock while doing so.
func (r *AgentRegistry) Entries() map[string]Entry {
	out := make(map[string]Entry, r.base.Count())
	for _, id := range r.base.List() {
		if e, ok := r.base.Get(id); ok {
			out[id] = e
		}
	}
	return out
}

// HealthFanOut calls HealthCheck on every registered agent concurrently,
// one goroutine per agent joined with errgroup (no concurrency limit is
// set), and returns a per-agent result map. Unreachable
// agents are reported false; HealthFanOut itself never fails (§4.9).
func (r *AgentRegistry) HealthFanOut(ctx context.Context) map[string]bool {
	ids := r.base.List()
	results := make(map[string]bool, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		e, ok := r.base.Get(id)
		if !ok {
			continue
		}
		agent := e.Agent
		g.Go(func() error {
			healthy := agent.HealthCheck(gctx)
			mu.Lock()
			results[id] = healthy
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // HealthCheck never returns an error; Wait cannot fail here.
	return results
}
