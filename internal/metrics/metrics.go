// Package metrics exposes the Prometheus collectors used across the portal.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	stageTransitions  *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	sessionFailures   *prometheus.CounterVec
	activeSessions    prometheus.Gauge
	backendDuration   *prometheus.HistogramVec
	generationResults *prometheus.CounterVec
)

func ensure() {
	once.Do(func() {
		stageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam_portal",
			Subsystem: "session",
			Name:      "stage_transitions_total",
			Help:      "Exam session stage transitions",
		}, []string{"from", "to"})

		submissions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam_portal",
			Subsystem: "session",
			Name:      "submissions_total",
			Help:      "Exam submissions by trigger (manual or timer) and outcome",
		}, []string{"trigger", "outcome"})

		sessionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam_portal",
			Subsystem: "session",
			Name:      "failures_total",
			Help:      "Sessions that entered the FAILED stage, by failure kind",
		}, []string{"kind"})

		activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "exam_portal",
			Subsystem: "session",
			Name:      "active",
			Help:      "Live exam sessions held by the registry",
		})

		backendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exam_portal",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the REST backend",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"operation", "outcome"})

		generationResults = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam_portal",
			Subsystem: "generator",
			Name:      "jobs_total",
			Help:      "AI question generation jobs by outcome",
		}, []string{"outcome"})
	})
}

func StageTransition(from, to string) {
	ensure()
	stageTransitions.WithLabelValues(from, to).Inc()
}

func Submission(trigger, outcome string) {
	ensure()
	submissions.WithLabelValues(trigger, outcome).Inc()
}

func SessionFailure(kind string) {
	ensure()
	sessionFailures.WithLabelValues(kind).Inc()
}

func SessionOpened() {
	ensure()
	activeSessions.Inc()
}

func SessionClosed() {
	ensure()
	activeSessions.Dec()
}

// ObserveBackend records one backend round trip.
func ObserveBackend(operation string, seconds float64, err error) {
	ensure()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backendDuration.WithLabelValues(operation, outcome).Observe(seconds)
}

func GenerationJob(outcome string) {
	ensure()
	generationResults.WithLabelValues(outcome).Inc()
}
