package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.SnapshotApplied("works")
	m.SnapshotApplied("works")
	m.Mutation("vote", "committed")
	m.IndexRebuilt("snapshot", 2*time.Millisecond)
	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed()

	body := scrape(t, m)
	assert.Contains(t, body, `shareboard_cache_snapshots_applied_total{collection="works"} 2`)
	assert.Contains(t, body, `shareboard_mutation_operations_total{kind="vote",outcome="committed"} 1`)
	assert.Contains(t, body, "shareboard_subscription_active 1")
	assert.Contains(t, body, "shareboard_index_rebuild_duration_seconds_count 1")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SnapshotApplied("works")
		m.IndexRebuilt("filters", time.Millisecond)
		m.PageResolved("new", "fetched")
		m.Hydrated("found")
		m.Mutation("favorite", "reverted")
		m.SubscriptionOpened()
		m.SubscriptionClosed()
		m.Ingest("ok")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.PageResolved("ranking", "cache")

	assert.True(t, strings.Contains(scrape(t, m), `shareboard_view_pages_resolved_total{strategy="cache",view="ranking"} 1`))
}
