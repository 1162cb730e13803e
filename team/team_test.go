package team

import (
	"context"
	"testing"

	"github.com/cyberelf/ranch/a2a"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct {
	profile a2a.AgentProfile
	reply   a2a.Message
	err     error
	healthy bool
}

func (s *stubAgent) Profile(ctx context.Context) (a2a.AgentProfile, error) {
	if s.err != nil {
		return a2a.AgentProfile{}, s.err
	}
	return s.profile, nil
}

func (s *stubAgent) Process(ctx context.Context, m a2a.Message) (a2a.Message, error) {
	return s.reply, nil
}

func (s *stubAgent) HealthCheck(ctx context.Context) bool { return s.healthy }

func TestTeamProfileAggregatesCapabilitiesAndOmitsUnreachable(t *testing.T) {
	ok := &stubAgent{profile: a2a.AgentProfile{
		ID:           "worker",
		Capabilities: []a2a.AgentCapability{{Name: "search"}},
	}, healthy: true}
	// broken registers successfully (its profile is reachable at
	// registration time) but goes unreachable by the time Profile is
	// aggregated, simulating a member that drops offline later.
	broken := &stubAgent{profile: a2a.AgentProfile{ID: "broken"}, healthy: true}

	tm := New(Config{ID: "team-1", Name: "Team One", DefaultAgentID: "worker"})
	require.NoError(t, tm.RegisterMember(context.Background(), "worker", ok))
	require.NoError(t, tm.RegisterMember(context.Background(), "broken", broken))
	broken.err = assert.AnError

	profile, err := tm.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "team-1", profile.ID)
	assert.True(t, profile.HasExtension(a2a.ClientRoutingExtensionURI))
	var names []string
	for _, c := range profile.Capabilities {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"search", a2a.ClientRoutingExtensionURI}, names)
	assert.Equal(t, "team", profile.Metadata["type"])
	assert.Equal(t, 2, profile.Metadata["member_count"])
}

func TestTeamProcessRoutesToDefaultMember(t *testing.T) {
	worker := &stubAgent{
		profile: a2a.AgentProfile{ID: "worker"},
		reply:   a2a.NewAgentText("r1", "done"),
	}
	tm := New(Config{ID: "team-1", DefaultAgentID: "worker"})
	require.NoError(t, tm.RegisterMember(context.Background(), "worker", worker))

	out, err := tm.Process(context.Background(), a2a.NewUserText("u1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "done", out.Text())
}

func TestTeamHealthCheckReflectsMembers(t *testing.T) {
	healthy := &stubAgent{profile: a2a.AgentProfile{ID: "h"}, healthy: true}
	unhealthy := &stubAgent{profile: a2a.AgentProfile{ID: "u"}, healthy: false}

	tm := New(Config{ID: "team-1", DefaultAgentID: "h"})
	require.NoError(t, tm.RegisterMember(context.Background(), "h", healthy))
	assert.True(t, tm.HealthCheck(context.Background()))

	require.NoError(t, tm.RegisterMember(context.Background(), "u", unhealthy))
	assert.False(t, tm.HealthCheck(context.Background()))
}

func TestRegisterMemberRejectsStaticCycle(t *testing.T) {
	inner := New(Config{ID: "inner", DefaultAgentID: "leaf"})
	leaf := &stubAgent{profile: a2a.AgentProfile{ID: "leaf"}, healthy: true}
	require.NoError(t, inner.RegisterMember(context.Background(), "leaf", leaf))

	outer := New(Config{ID: "outer", DefaultAgentID: "inner"})
	require.NoError(t, outer.RegisterMember(context.Background(), "inner", inner))

	// Registering outer back into inner would close a cycle.
	err := inner.RegisterMember(context.Background(), "outer", outer)
	require.Error(t, err)
	var aerr *a2a.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, a2a.ErrCycleDetected, aerr.Kind)
}

func TestTeamProcessRejectsDynamicReentry(t *testing.T) {
	selfReferential := New(Config{ID: "loop", DefaultAgentID: "self"})
	// Use a router.Config-free shortcut: manufacture a context that has
	// already visited "loop" to simulate an outer team re-entering it.
	ctx := withVisited(context.Background(), "loop")

	_, err := selfReferential.Process(ctx, a2a.NewUserText("u1", "hi"))
	require.Error(t, err)
	var aerr *a2a.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, a2a.ErrCycleDetected, aerr.Kind)
}

func TestMetricsNilSafeWithoutRegistry(t *testing.T) {
	assert.Nil(t, NewMetrics(nil))

	worker := &stubAgent{profile: a2a.AgentProfile{ID: "worker"}, reply: a2a.NewAgentText("r1", "ok")}
	tm := New(Config{ID: "team-1", DefaultAgentID: "worker", Metrics: nil})
	require.NoError(t, tm.RegisterMember(context.Background(), "worker", worker))
	_, err := tm.Process(context.Background(), a2a.NewUserText("u1", "hi"))
	require.NoError(t, err)
}

func TestMetricsRecordsHopsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	worker := &stubAgent{profile: a2a.AgentProfile{ID: "worker"}, reply: a2a.NewAgentText("r1", "ok")}
	tm := New(Config{ID: "team-1", DefaultAgentID: "worker", Metrics: m})
	require.NoError(t, tm.RegisterMember(context.Background(), "worker", worker))

	_, err := tm.Process(context.Background(), a2a.NewUserText("u1", "hi"))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
