package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gabble_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gabble_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AuthEvents counts authentication outcomes by operation and result.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gabble_auth_events_total",
		Help: "Total authentication events by operation and outcome",
	}, []string{"operation", "outcome"})

	// ReactionTransitions counts reaction changes by target state.
	ReactionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gabble_reaction_transitions_total",
		Help: "Total reaction changes by target state",
	}, []string{"state"})

	// PostsCreated counts created posts by kind (root or reply).
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gabble_posts_created_total",
		Help: "Total number of posts created",
	}, []string{"kind"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordAuth increments the auth outcome counter.
func RecordAuth(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	AuthEvents.WithLabelValues(operation, outcome).Inc()
}
