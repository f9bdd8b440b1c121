// Package metrics exposes Prometheus metrics for streaming and ingestion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xiaot623/newsstream/internal/domain"
)

const metricsNamespace = "newsstream"

// Collector is a prometheus.Collector that collects metrics about stream
// sessions and the ingestion pipeline.
type Collector struct {
	activeSessions      prometheus.Gauge
	sessions            *prometheus.CounterVec
	sessionEvents       *prometheus.CounterVec
	ingestArticles      *prometheus.CounterVec
	upstreamFetchErrors prometheus.Counter
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_sessions",
				Help:      "The number of stream sessions currently running.",
			},
		),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sessions_total",
				Help:      "The number of finished stream sessions by final state.",
			}, []string{"outcome"},
		),
		sessionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "session_events_total",
				Help:      "The number of events delivered to stream clients.",
			}, []string{"type"},
		),
		ingestArticles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "ingest_articles_total",
				Help:      "The number of upstream articles processed by outcome.",
			}, []string{"result"},
		),
		upstreamFetchErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "upstream_fetch_errors_total",
				Help:      "The number of failed upstream fetches.",
			},
		),
	}
}

// SessionStarted records a session entering INIT.
func (c *Collector) SessionStarted() {
	c.activeSessions.Inc()
}

// SessionEnded records a session leaving with the given final state.
func (c *Collector) SessionEnded(state domain.SessionState) {
	c.activeSessions.Dec()
	c.sessions.WithLabelValues(string(state)).Inc()
}

// EventSent records one event delivered to a client.
func (c *Collector) EventSent(eventType string) {
	c.sessionEvents.WithLabelValues(eventType).Inc()
}

// Ingested records the outcome counts of an ingestion batch.
func (c *Collector) Ingested(report domain.IngestReport) {
	c.ingestArticles.WithLabelValues(string(domain.IngestResultSaved)).Add(float64(report.Saved))
	c.ingestArticles.WithLabelValues(string(domain.IngestResultDuplicate)).Add(float64(report.Duplicates))
	c.ingestArticles.WithLabelValues(string(domain.IngestResultFailed)).Add(float64(report.Failed))
}

// UpstreamFetchFailed records a failed upstream call.
func (c *Collector) UpstreamFetchFailed() {
	c.upstreamFetchErrors.Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.activeSessions.Describe(ch)
	c.sessions.Describe(ch)
	c.sessionEvents.Describe(ch)
	c.ingestArticles.Describe(ch)
	c.upstreamFetchErrors.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.activeSessions.Collect(ch)
	c.sessions.Collect(ch)
	c.sessionEvents.Collect(ch)
	c.ingestArticles.Collect(ch)
	c.upstreamFetchErrors.Collect(ch)
}
