// Package metrics exposes editor activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the editor. A nil *Collector
// is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Graph metrics
	Mutations *prometheus.CounterVec
	Nodes     prometheus.Gauge
	Edges     prometheus.Gauge

	// Persistence metrics
	Autosaves        *prometheus.CounterVec
	AutosaveDuration prometheus.Histogram
}

// NewCollector creates a collector on its own registry
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
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_mutations_total",
				Help:      "Total number of graph mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		Nodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_nodes",
				Help:      "Number of nodes in the graph",
			},
		),
		Edges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_edges",
				Help:      "Number of edges in the graph",
			},
		),
		Autosaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosaves_total",
				Help:      "Total number of autosave attempts by result",
			},
			[]string{"result"},
		),
		AutosaveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "autosave_duration_seconds",
				Help:      "Autosave duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.Nodes,
		c.Edges,
		c.Autosaves,
		c.AutosaveDuration,
	)

	return c
}

// RecordMutation counts one graph operation
func (c *Collector) RecordMutation(op string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Mutations.WithLabelValues(op, result).Inc()
}

// SetGraphSize updates the node and edge gauges
func (c *Collector) SetGraphSize(nodes, edges int) {
	if c == nil {
		return
	}
	c.Nodes.Set(float64(nodes))
	c.Edges.Set(float64(edges))
}

// RecordAutosave counts one save attempt and its duration
func (c *Collector) RecordAutosave(duration time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Autosaves.WithLabelValues(result).Inc()
	c.AutosaveDuration.Observe(duration.Seconds())
}

// RecordHTTP counts one served request
func (c *Collector) RecordHTTP(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
