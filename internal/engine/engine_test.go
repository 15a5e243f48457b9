package engine_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/engine"
	"github.com/shareboard/shareboard/internal/search"
	"github.com/shareboard/shareboard/internal/settings"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/store"
	"github.com/shareboard/shareboard/internal/store/sqlite"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fixture struct {
	store  *store.Store
	engine *engine.Engine
	events *sse.Recorder
}

func setup(t *testing.T) *fixture {
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

	rec := &sse.Recorder{}
	e, err := engine.New(context.Background(), docs, prefs, rec, nil, engine.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	return &fixture{store: docs, engine: e, events: rec}
}

func TestNew_AppliesStoredPreferences(t *testing.T) {
	f := setup(t)

	assert.NotEmpty(t, f.engine.State.ClientID())
	assert.Equal(t, 10, f.engine.State.PageSize(domain.CategoryAdmin))
	assert.Equal(t, 40, f.engine.State.PageSize(domain.CategoryUser))
}

func TestPreferenceChangeRedrawsGrids(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Settings.SetPageSize(ctx, domain.CategoryUser, 20))
	assert.Equal(t, 20, f.engine.State.PageSize(domain.CategoryUser))

	f.events.Reset()
	require.NoError(t, f.engine.Settings.SetMosaic(ctx, true))

	assert.Len(t, f.events.OfType(sse.EventIndexRebuilt), 1)
	dirty := f.events.OfType(sse.EventViewDirty)
	require.Len(t, dirty, 1)
	data, ok := dirty[0].Data.(sse.ViewDirtyEventData)
	require.True(t, ok)
	assert.Len(t, data.Views, len(domain.AllViews))
}

func TestStart_FeedsCacheAndSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "tags/t1", domain.Tag{Name: "ファンタジー", Category: "genre"}))

	require.NoError(t, f.engine.Start(ctx))

	require.Eventually(t, func() bool {
		hits, err := f.engine.Search.Tags(ctx, search.TagQuery{Text: "ファンタ"})
		return err == nil && len(hits) == 1
	}, waitFor, tick)
}

func TestSignInAndOut(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.engine.Start(context.Background()))

	f.engine.SignIn(&domain.User{UID: "u1", DisplayName: "Aki"})
	assert.Equal(t, "u1", f.engine.Subscriptions.UserID())
	assert.True(t, f.engine.State.SignedIn())

	f.engine.SignOut()
	assert.Empty(t, f.engine.Subscriptions.UserID())
	assert.False(t, f.engine.State.SignedIn())

	// Signing out twice is harmless.
	f.engine.SignOut()
}

func TestClose_IsIdempotent(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.engine.Close())
	require.NoError(t, f.engine.Close())
}
