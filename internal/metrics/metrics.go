// Package metrics exposes engine counters and timings for Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shareboard"

// Metrics holds the engine's collectors.
type Metrics struct {
	registry *prometheus.Registry

	snapshotsApplied *prometheus.CounterVec
	indexRebuilds    *prometheus.CounterVec
	rebuildDuration  prometheus.Histogram
	pagesResolved    *prometheus.CounterVec
	hydrations       *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	subscriptions    prometheus.Gauge
	ingestRequests   *prometheus.CounterVec
	coverFetches     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		snapshotsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshots_applied_total",
			Help:      "Full collection snapshots applied to the client cache",
		}, []string{"collection"}),
		indexRebuilds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Derived index rebuilds by trigger",
		}, []string{"trigger"}),
		rebuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rebuild_duration_seconds",
			Help:      "Time spent recomputing every derived index",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		pagesResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "pages_resolved_total",
			Help:      "Pages resolved by view and data-sourcing strategy",
		}, []string{"view", "strategy"}),
		hydrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "hydrations_total",
			Help:      "Point reads issued to hydrate missing records",
		}, []string{"result"}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mutation",
			Name:      "operations_total",
			Help:      "Mutations by kind and outcome",
		}, []string{"kind", "outcome"}),
		subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Live remote subscriptions",
		}),
		ingestRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Ingestion function calls by outcome",
		}, []string{"outcome"}),
		coverFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cover",
			Name:      "placeholders_total",
			Help:      "Cover placeholder lookups by result",
		}, []string{"result"}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SnapshotApplied counts a snapshot for collection.
func (m *Metrics) SnapshotApplied(collection string) {
	if m == nil {
		return
	}
	m.snapshotsApplied.WithLabelValues(collection).Inc()
}

// IndexRebuilt records one rebuild.
func (m *Metrics) IndexRebuilt(trigger string, took time.Duration) {
	if m == nil {
		return
	}
	m.indexRebuilds.WithLabelValues(trigger).Inc()
	m.rebuildDuration.Observe(took.Seconds())
}

// PageResolved counts a resolved page.
func (m *Metrics) PageResolved(view, strategy string) {
	if m == nil {
		return
	}
	m.pagesResolved.WithLabelValues(view, strategy).Inc()
}

// Hydrated counts one point read: result is "found", "missing" or "error".
func (m *Metrics) Hydrated(result string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(result).Inc()
}

// Mutation counts a mutation outcome.
func (m *Metrics) Mutation(kind, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind, outcome).Inc()
}

// SubscriptionOpened increments the live subscription gauge.
func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

// SubscriptionClosed decrements the live subscription gauge.
func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

// Ingest counts an ingestion call.
func (m *Metrics) Ingest(outcome string) {
	if m == nil {
		return
	}
	m.ingestRequests.WithLabelValues(outcome).Inc()
}

// CoverPlaceholder counts a placeholder lookup: hit, computed, or error.
func (m *Metrics) CoverPlaceholder(result string) {
	if m == nil {
		return
	}
	m.coverFetches.WithLabelValues(result).Inc()
}
