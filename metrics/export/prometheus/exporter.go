// Package prometheus exposes engine counters as a Prometheus collector.
//
// The collector reads a metrics snapshot on every scrape, so it never holds
// references into engine internals and never needs its own goroutine.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry — callers mount the Handler
//     or register the Collector themselves.
//   - Mutate engine state.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcore "github.com/keelworks/authcore"
	"github.com/keelworks/authcore/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Collector renders engine counters on each scrape. Implements
// [prometheus.Collector].
type Collector struct {
	source       metricsSource
	descs        map[authcore.MetricID]*prometheus.Desc
	auditDropped *prometheus.Desc
}

// NewCollector creates a collector reading from the given engine.
func NewCollector(engine *authcore.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource creates a collector from any snapshot source.
func NewCollectorFromSource(source metricsSource) *Collector {
	descs := make(map[authcore.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs))
	for _, def := range internaldefs.CounterDefs {
		descs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return &Collector{
		source:       source,
		descs:        descs,
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range internaldefs.CounterDefs {
		ch <- c.descs[def.ID]
	}
	ch <- c.auditDropped
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	for _, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(
			c.descs[def.ID],
			prometheus.CounterValue,
			float64(snapshot.Counters[def.ID]),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		c.auditDropped,
		prometheus.CounterValue,
		float64(c.source.AuditDropped()),
	)
}

// Handler returns an http.Handler serving this collector from a private
// registry.
func (c *Collector) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(c)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
