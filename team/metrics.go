package team

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the optional Prometheus instrumentation of §4.6.1.
// Every method is nil-receiver-safe, following the teacher's own
// pkg/observability.Metrics convention, so a Team constructed without
// metrics configured stays fully usable with no special-casing at call
// sites.
type Metrics struct {
	hops         *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	routingError *prometheus.CounterVec
}

// NewMetrics registers the team metric families on reg and returns a
// Metrics ready to pass into team.Config. Passing a nil reg disables
// metrics entirely (NewMetrics itself returns nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		hops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranch_team_hops_total",
			Help: "Total number of routing hops executed per team.",
		}, []string{"team_id"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ranch_team_process_duration_seconds",
			Help:    "Duration of a team's Process call, in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"team_id"}),
		routingError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranch_team_routing_errors_total",
			Help: "Total number of routing errors per team, by error kind.",
		}, []string{"team_id", "kind"}),
	}
	reg.MustRegister(m.hops, m.duration, m.routingError)
	return m
}

func (m *Metrics) observeHops(teamID string, hops int) {
	if m == nil {
		return
	}
	m.hops.WithLabelValues(teamID).Add(float64(hops))
}

func (m *Metrics) observeDuration(teamID string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(teamID).Observe(d.Seconds())
}

func (m *Metrics) observeRoutingError(teamID, kind string) {
	if m == nil {
		return
	}
	m.routingError.WithLabelValues(teamID, kind).Inc()
}
