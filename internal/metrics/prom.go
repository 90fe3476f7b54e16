package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups the Prometheus collectors cmd/editserver exposes on
// /metrics. It is fed alongside the EMF Recorder in emf.go, in both the
// standalone and the Lambda mode of that server.
type Registry struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Stage    *prometheus.CounterVec
}

// NewRegistry registers the collectors against reg (pass
// prometheus.DefaultRegisterer in production, a fresh registry in
// tests).
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editcompositor",
			Name:      "requests_total",
			Help:      "Total edit requests by endpoint and outcome.",
		}, []string{"endpoint", "tag"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "editcompositor",
			Name:      "request_duration_seconds",
			Help:      "Request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Stage: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editcompositor",
			Name:      "stage_errors_total",
			Help:      "Pipeline errors by stage and tag.",
		}, []string{"stage", "tag"}),
	}
}

// ObserveRequest records one completed request's outcome and latency.
func (r *Registry) ObserveRequest(endpoint, tag string, start time.Time) {
	r.Requests.WithLabelValues(endpoint, tag).Inc()
	r.Duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// ObserveStageError records a pipeline failure tagged by stage and
// error category.
func (r *Registry) ObserveStageError(stage, tag string) {
	r.Stage.WithLabelValues(stage, tag).Inc()
}
