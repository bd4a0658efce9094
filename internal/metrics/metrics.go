// Package metrics exposes Prometheus instrumentation for artifact
// registration and run execution.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	artifactsRegistered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bootsweep",
			Subsystem: "artifacts",
			Name:      "registered_total",
			Help:      "Artifacts registered, by kind.",
		},
		[]string{"kind"},
	)
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bootsweep",
			Subsystem: "runs",
			Name:      "completed_total",
			Help:      "Runs that reported a result, by status.",
		},
		[]string{"status"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bootsweep",
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Wall-clock run duration in seconds.",
			// Boot runs take minutes to hours.
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
		[]string{"status"},
	)
	runsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bootsweep",
			Subsystem: "runs",
			Name:      "in_flight",
			Help:      "Runs currently executing.",
		},
	)
	runsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bootsweep",
			Subsystem: "runs",
			Name:      "queued",
			Help:      "Runs waiting for a worker.",
		},
	)
)

// Register registers all collectors with the default registry. It is safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(artifactsRegistered, runsTotal, runDuration, runsInFlight, runsQueued)
	})
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

func RecordArtifact(kind string) {
	Register()
	artifactsRegistered.WithLabelValues(kind).Inc()
}

func RunsQueued(n int) {
	Register()
	runsQueued.Add(float64(n))
}

func RunStarted() {
	Register()
	runsQueued.Dec()
	runsInFlight.Inc()
}

// RunFinished records a completed run. started reports whether RunStarted was
// called for it; skipped runs only leave the queue.
func RunFinished(status string, duration time.Duration, started bool) {
	Register()
	if started {
		runsInFlight.Dec()
	} else {
		runsQueued.Dec()
	}
	runsTotal.WithLabelValues(status).Inc()
	runDuration.WithLabelValues(status).Observe(duration.Seconds())
}
