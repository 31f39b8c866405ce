// Package metrics collects and exposes Prometheus metrics for the editor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records editor activity in Prometheus metrics.
type Collector struct {
	writes          *prometheus.CounterVec
	writeLatency    *prometheus.HistogramVec
	snapshots       *prometheus.CounterVec
	generations     *prometheus.CounterVec
	droppedGenerate prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagesmith_writes_total",
			Help: "Durable writes by record kind, operation and outcome.",
		}, []string{"kind", "op", "outcome"}),
		writeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pagesmith_write_latency_seconds",
			Help:    "Latency of durable writes in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagesmith_snapshot_entities_total",
			Help: "Entities seen in subscription snapshots, by whether they were applied or deferred.",
		}, []string{"kind", "result"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagesmith_generations_total",
			Help: "Generation requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		droppedGenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesmith_generated_components_dropped_total",
			Help: "Generated components dropped during ingestion.",
		}),
	}

	reg.MustRegister(
		c.writes,
		c.writeLatency,
		c.snapshots,
		c.generations,
		c.droppedGenerate,
	)

	return c
}

// RecordWrite records one durable write.
func (c *Collector) RecordWrite(kind, op string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.writes.WithLabelValues(kind, op, outcome).Inc()
	c.writeLatency.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordSnapshot records how many entities of a snapshot were applied or deferred.
func (c *Collector) RecordSnapshot(kind string, applied, deferred int) {
	c.snapshots.WithLabelValues(kind, "applied").Add(float64(applied))
	c.snapshots.WithLabelValues(kind, "deferred").Add(float64(deferred))
}

// RecordGeneration records a generation request and its dropped components.
func (c *Collector) RecordGeneration(operation string, accepted bool, dropped int) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	c.generations.WithLabelValues(operation, outcome).Inc()
	c.droppedGenerate.Add(float64(dropped))
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
