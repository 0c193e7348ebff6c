// package metrics exposes Prometheus metrics for the HTTP server and the playlist pipeline.
//
// Every method is safe to call on a nil [*Collector], so components can be built without metrics in tests
// and terminal front-ends.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	runs          *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	tracks        *prometheus.CounterVec
	annotations   *prometheus.CounterVec
	sseClients    prometheus.Gauge
}

// NewCollector creates a collector with its own registry, so tests can build as many as they need.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Playlist generation runs by final state",
		}, []string{"outcome"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_failures_total",
			Help:      "Pipeline failures by stage",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"stage"}),
		tracks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_tracks_total",
			Help:      "Track candidates by catalog lookup result",
		}, []string{"result"}),
		annotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotations_total",
			Help:      "Annotation requests by outcome",
		}, []string{"outcome"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected event stream clients",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.runs,
		c.stageFailures,
		c.stageDuration,
		c.tracks,
		c.annotations,
		c.sseClients,
	)
	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the exposition format for the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RunFinished records the terminal state of a pipeline run.
func (c *Collector) RunFinished(outcome string) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(outcome).Inc()
}

// StageFailed records a failure attributed to stage.
func (c *Collector) StageFailed(stage string) {
	if c == nil {
		return
	}
	c.stageFailures.WithLabelValues(stage).Inc()
}

// ObserveStage records how long a stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// TracksResolved records the outcome of a catalog search fan-out.
func (c *Collector) TracksResolved(found, missing int) {
	if c == nil {
		return
	}
	c.tracks.WithLabelValues("found").Add(float64(found))
	c.tracks.WithLabelValues("missing").Add(float64(missing))
}

// AnnotationFinished records an annotation outcome such as "ok", "timeout", "error" or "fallback".
func (c *Collector) AnnotationFinished(outcome string) {
	if c == nil {
		return
	}
	c.annotations.WithLabelValues(outcome).Inc()
}

// SetSSEClients reports the number of connected event stream clients.
func (c *Collector) SetSSEClients(n int) {
	if c == nil {
		return
	}
	c.sseClients.Set(float64(n))
}
