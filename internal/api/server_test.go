package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/engine"
	"github.com/shareboard/shareboard/internal/http/response"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/settings"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/store"
	"github.com/shareboard/shareboard/internal/store/sqlite"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// testServer wraps the API server for handler testing.
type testServer struct {
	*Server
	api   humatest.TestAPI
	store *store.Store
}

// setupTestServer creates a server over a fresh document store and preferences database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	docs, err := store.New(filepath.Join(dir, "docs"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	prefDB, err := sqlite.Open(filepath.Join(dir, "preferences.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = prefDB.Close() })

	prefs, err := settings.NewService(prefDB, settings.DevicePC, nil)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	sseManager := sse.NewManager(logger)

	e, err := engine.New(context.Background(), docs, prefs, sseManager, metrics.New(), engine.Options{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	s := NewServer(e, sseManager, Options{MutationsPerSecond: 1000}, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		store:  docs,
	}
}

// start begins streaming data into the engine.
func (ts *testServer) start(t *testing.T) {
	t.Helper()
	require.NoError(t, ts.engine.Start(context.Background()))
}

// decodeEnvelope reads the envelope and decodes its data into T.
func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) (response.Envelope, T) {
	t.Helper()

	var env response.Envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())

	var data T
	if env.Data != nil {
		raw, err := json.Marshal(env.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &data))
	}
	return env, data
}
