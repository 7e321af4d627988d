// Package telemetry exposes Prometheus counters for the job lifecycle.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsCreated   = prometheus.NewCounter(prometheus.CounterOpts{Name: "itinerary_jobs_created_total", Help: "Jobs accepted and persisted"})
	JobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "itinerary_jobs_completed_total", Help: "Jobs whose generation succeeded"})
	JobsFailed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "itinerary_jobs_failed_total", Help: "Jobs whose generation failed"})
	PatchFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "itinerary_terminal_patch_failures_total", Help: "Best-effort terminal updates that could not be written"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsCreated,
			JobsCompleted,
			JobsFailed,
			PatchFailures,
		)
	})
	return promhttp.Handler()
}
