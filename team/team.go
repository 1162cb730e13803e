// Package team implements the Team-as-Agent adapter of §4.6: a registry
// plus a Router, presented as a single a2a.Agent so that a team can be
// addressed, nested, and served exactly like a leaf agent.
package team

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyberelf/ranch/a2a"
	"github.com/cyberelf/ranch/observability"
	"github.com/cyberelf/ranch/registry"
	"github.com/cyberelf/ranch/router"
)

// Config configures a Team.
type Config struct {
	ID             string
	Name           string
	Description    string
	DefaultAgentID string
	MaxHops        int // forwarded to router.Config; defaults to router.DefaultMaxRoutingHops
	Logger         *slog.Logger
	Metrics        *Metrics // optional; nil disables metrics (§4.6.1)
}

// Team presents a member registry and a per-call Router as a single
// a2a.Agent.
type Team struct {
	id             string
	name           string
	description    string
	defaultAgentID string
	maxHops        int
	registry       *registry.AgentRegistry
	logger         *slog.Logger
	metrics        *Metrics
}

// New constructs an empty Team. Members are added with RegisterMember.
func New(cfg Config) *Team {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger("team")
	}
	return &Team{
		id:             cfg.ID,
		name:           cfg.Name,
		description:    cfg.Description,
		defaultAgentID: cfg.DefaultAgentID,
		maxHops:        cfg.MaxHops,
		registry:       registry.NewAgentRegistry(),
		logger:         logger,
		metrics:        cfg.Metrics,
	}
}

// RegisterMember adds member under id, enforcing both the registry's
// uniqueness invariant and the static nested-team cycle check of §4.6:
// if member is itself a team (nested, directly or transitively) that
// already contains t, registration is rejected with CycleDetected.
func (t *Team) RegisterMember(ctx context.Context, id string, member a2a.Agent) error {
	if nested := collectNestedTeamIDs(member); contains(nested, t.id) {
		return &a2a.Error{Kind: a2a.ErrCycleDetected, Message: fmt.Sprintf("registering %q would create a team cycle through %q", id, t.id)}
	}
	return t.registry.RegisterAgent(ctx, id, member)
}

// collectNestedTeamIDs walks m's nested-team graph (if m is a *Team)
// and returns every team id reachable from m, including m's own id.
// Non-team agents contribute nothing.
func collectNestedTeamIDs(m a2a.Agent) []string {
	inner, ok := m.(*Team)
	if !ok {
		return nil
	}
	ids := []string{inner.id}
	for _, entry := range inner.registry.Entries() {
		ids = append(ids, collectNestedTeamIDs(entry.Agent)...)
	}
	return ids
}

func contains(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// visitedKey is the context key used for the dynamic nested-team cycle
// check of §4.6: a set of team ids already entered during the current
// route, threaded through context so the check survives crossing the
// Agent interface boundary (the outer Router only ever sees a plain
// a2a.Agent, never knows it is a *Team).
type visitedKey struct{}

func withVisited(ctx context.Context, id string) context.Context {
	visited, _ := ctx.Value(visitedKey{}).(map[string]bool)
	next := make(map[string]bool, len(visited)+1)
	for k := range visited {
		next[k] = true
	}
	next[id] = true
	return context.WithValue(ctx, visitedKey{}, next)
}

func hasVisited(ctx context.Context, id string) bool {
	visited, _ := ctx.Value(visitedKey{}).(map[string]bool)
	return visited[id]
}

// Profile implements the internal Agent contract (§4.4): it aggregates
// member capabilities and the client-routing extension, never failing
// even when a member is unreachable — that member's contribution is
// simply omitted and a warning logged (§4.6).
func (t *Team) Profile(ctx context.Context) (a2a.AgentProfile, error) {
	// By convention (a2a.AgentCapability's doc comment) a supported
	// extension is represented as a capability whose Name is the
	// extension URI; this is what AgentProfile.HasExtension checks.
	capSeen := map[string]a2a.AgentCapability{
		a2a.ClientRoutingExtensionURI: {Name: a2a.ClientRoutingExtensionURI, Description: "dynamic client-side routing"},
	}

	for id, entry := range t.registry.Entries() {
		profile, err := entry.Agent.Profile(ctx)
		if err != nil {
			t.logger.Warn("team: member unreachable, omitting from aggregated profile", observability.AttrTeamID, t.id, "member", id, "error", err)
			continue
		}
		for _, c := range profile.Capabilities {
			capSeen[c.Name] = c
		}
	}

	caps := make([]a2a.AgentCapability, 0, len(capSeen))
	for _, c := range capSeen {
		caps = append(caps, c)
	}

	return a2a.AgentProfile{
		ID:           t.id,
		Name:         t.name,
		Description:  t.description,
		Capabilities: caps,
		Metadata: map[string]any{
			"type":         "team",
			"member_count": t.registry.Count(),
		},
	}, nil
}

// Process implements the internal Agent contract: it constructs a
// fresh, private Router over the team's registry for this call alone
// (§5: per-request state is not shared across concurrent invocations)
// and drives it to completion, rejecting re-entry into an
// already-visited team (the dynamic half of §4.6's cycle check).
func (t *Team) Process(ctx context.Context, m a2a.Message) (a2a.Message, error) {
	if hasVisited(ctx, t.id) {
		return a2a.Message{}, &a2a.Error{Kind: a2a.ErrCycleDetected, Message: fmt.Sprintf("team %q re-entered within the same route", t.id)}
	}
	ctx = withVisited(ctx, t.id)

	start := time.Now()
	r := router.New(router.Config{
		DefaultAgentID: t.defaultAgentID,
		MaxHops:        t.maxHops,
		Registry:       t.registry,
		Logger:         t.logger,
	})
	resp, err := r.Route(ctx, m)

	t.metrics.observeHops(t.id, r.HopCount())
	t.metrics.observeDuration(t.id, time.Since(start))
	if err != nil {
		t.metrics.observeRoutingError(t.id, errorKind(err))
	}
	return resp, err
}

func errorKind(err error) string {
	if aerr, ok := err.(*a2a.Error); ok {
		return string(aerr.Kind)
	}
	return "unknown"
}

// HealthCheck returns true iff Profile succeeds (it always does) and
// every member reports healthy (§4.6).
func (t *Team) HealthCheck(ctx context.Context) bool {
	if _, err := t.Profile(ctx); err != nil {
		return false
	}
	for _, healthy := range t.registry.HealthFanOut(ctx) {
		if !healthy {
			return false
		}
	}
	return true
}

var _ a2a.Agent = (*Team)(nil)
