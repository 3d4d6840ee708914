package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the service
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge
	Transitions    *prometheus.CounterVec
	GraphLoads     *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Generic operation metrics fed through Recorder
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of live mapping sessions",
			},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session transitions by name and whether they applied",
			},
			[]string{"transition", "applied"},
		),
		GraphLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_loads_total",
				Help:      "Blueprint graph loads by result",
			},
			[]string{"result"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_cache_hits_total",
				Help:      "Total number of graph cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_cache_misses_total",
				Help:      "Total number of graph cache misses",
			},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Operation counters reported by the application layer",
			},
			[]string{"metric", "label"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Operation durations reported by the application layer",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric", "label"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SessionsActive,
		c.Transitions,
		c.GraphLoads,
		c.CacheHits,
		c.CacheMisses,
		c.Operations,
		c.OperationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Increment implements Recorder
func (c *Collector) Increment(metric, label string) {
	c.Operations.WithLabelValues(metric, label).Inc()
}

// StartTimer implements Recorder
func (c *Collector) StartTimer(metric, label string) func() {
	start := time.Now()
	return func() {
		c.OperationDuration.WithLabelValues(metric, label).Observe(time.Since(start).Seconds())
	}
}

// ObserveTransition counts one session transition
func (c *Collector) ObserveTransition(name string, applied bool) {
	result := "false"
	if applied {
		result = "true"
	}
	c.Transitions.WithLabelValues(name, result).Inc()
}

// ObserveGraphLoad counts one graph load ("ok", "error" or "cached")
func (c *Collector) ObserveGraphLoad(result string) {
	c.GraphLoads.WithLabelValues(result).Inc()
	switch result {
	case "cached":
		c.CacheHits.Inc()
	default:
		c.CacheMisses.Inc()
	}
}

// SessionOpened increments the live session gauge
func (c *Collector) SessionOpened() { c.SessionsActive.Inc() }

// SessionClosed decrements the live session gauge
func (c *Collector) SessionClosed() { c.SessionsActive.Dec() }

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
