// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)

	CheckIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindtrack_checkins_total",
			Help: "Check-ins written, by resulting day state",
		},
		[]string{"state"},
	)
	XPAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindtrack_xp_awarded_total",
			Help: "XP appended to the ledger, by source",
		},
		[]string{"source"},
	)
	AchievementsUnlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mindtrack_achievements_unlocked_total",
		Help: "Achievements newly unlocked",
	})
	MirrorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mindtrack_remote_mirror_failures_total",
		Help: "Check-in writes the remote mirror failed to accept",
	})
	StatsFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mindtrack_stats_fallbacks_total",
		Help: "Statistics requests answered with the empty summary",
	})
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequests, HTTPDuration, AuthRejections,
			CheckIns, XPAwarded, AchievementsUnlocked, MirrorFailures, StatsFallbacks,
		)
	})
}
