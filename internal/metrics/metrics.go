// Package metrics exposes Prometheus collectors for the tracking pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	cyclesTotal      *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	deliveriesTotal  *prometheus.CounterVec
	renderTotal      *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	firingsSkipped   prometheus.Counter
	scheduledTargets prometheus.Gauge
	contentChanges   prometheus.Counter
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resourcewatch_cycles_total",
			Help: "Check cycles run, labeled by outcome.",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "resourcewatch_cycle_duration_seconds",
			Help:    "Histogram of check cycle durations.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300},
		}),
		deliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resourcewatch_deliveries_total",
			Help: "Resources handed to the delivery sink, labeled by type and status.",
		}, []string{"type", "status"}),
		renderTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resourcewatch_renders_total",
			Help: "Document render runs, labeled by outcome.",
		}, []string{"outcome"}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "resourcewatch_render_duration_seconds",
			Help:    "Histogram of render durations including the wait for the render slot.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}),
		firingsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "resourcewatch_firings_skipped_total",
			Help: "Firings dropped because the per-target concurrency cap was reached.",
		}),
		scheduledTargets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "resourcewatch_scheduled_targets",
			Help: "Number of targets with an installed timer.",
		}),
		contentChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "resourcewatch_content_changes_total",
			Help: "Content changes detected across all targets.",
		}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records one finished check cycle.
func (c *Collector) ObserveCycle(outcome string, duration time.Duration) {
	c.cyclesTotal.WithLabelValues(outcome).Inc()
	c.cycleDuration.Observe(duration.Seconds())
}

// ObserveDelivery counts one delivery attempt.
func (c *Collector) ObserveDelivery(resourceType string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.deliveriesTotal.WithLabelValues(resourceType, status).Inc()
}

// ObserveRender records a render run.
func (c *Collector) ObserveRender(outcome string, duration time.Duration) {
	c.renderTotal.WithLabelValues(outcome).Inc()
	c.renderDuration.Observe(duration.Seconds())
}

func (c *Collector) IncSkippedFiring() {
	c.firingsSkipped.Inc()
}

func (c *Collector) SetScheduledTargets(n int) {
	c.scheduledTargets.Set(float64(n))
}

func (c *Collector) IncContentChange() {
	c.contentChanges.Inc()
}
