package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/store/sqlite"
)

func setupTestService(t *testing.T, device DeviceClass) (*Service, *sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preferences.db")
	st, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, device, nil)
	require.NoError(t, err)
	return svc, st, path
}

func TestLoad_DefaultsAndClientID(t *testing.T) {
	svc, st, _ := setupTestService(t, DevicePC)
	ctx := context.Background()

	p, err := svc.Load(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, p.ClientID)
	assert.True(t, p.GridHeightFixed)
	assert.True(t, p.AutoScroll)
	assert.False(t, p.Mosaic)
	assert.Equal(t, 10, p.PageSizes[domain.CategoryAdmin])
	assert.Equal(t, 40, p.PageSizes[domain.CategoryUser])

	// The client id is stable across loads.
	again, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ClientID, again.ClientID)

	stored, err := st.Get(ctx, "clientId")
	require.NoError(t, err)
	assert.Equal(t, p.ClientID, stored.Value)
}

func TestLoad_FallsBackToFirstOfferedSize(t *testing.T) {
	svc, st, _ := setupTestService(t, DeviceMobile)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "pageSizeFavorites", "40"))

	p, err := svc.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 10, p.PageSizes[domain.CategoryFavorites], "40 is not offered on mobile")
	assert.Equal(t, 10, p.PageSizes[domain.CategoryAdmin])
	assert.Equal(t, 10, p.PageSizes[domain.CategoryUser], "default 40 is not offered on mobile")
}

func TestSetters_PersistAndNotify(t *testing.T) {
	svc, st, _ := setupTestService(t, DevicePC)
	ctx := context.Background()
	_, err := svc.Load(ctx)
	require.NoError(t, err)

	var seen []Preferences
	svc.OnChange(func(p Preferences) { seen = append(seen, p) })

	require.NoError(t, svc.SetPageSize(ctx, domain.CategoryUser, 20))
	require.NoError(t, svc.SetMosaic(ctx, true))
	require.NoError(t, svc.SetCollapsed(ctx, SectionAdmin, true))
	require.NoError(t, svc.SetAutoScroll(ctx, false))
	require.NoError(t, svc.SetGridHeightFixed(ctx, false))

	assert.ErrorIs(t, svc.SetPageSize(ctx, domain.CategoryUser, 16), domainerrors.ErrValidation)
	assert.ErrorIs(t, svc.SetCollapsed(ctx, "sidebar", true), domainerrors.ErrValidation)

	require.Len(t, seen, 5)
	assert.Equal(t, 20, seen[0].PageSizes[domain.CategoryUser])

	// A fresh service over the same database sees the saved values.
	other, err := NewService(st, DevicePC, nil)
	require.NoError(t, err)
	p, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, p.PageSizes[domain.CategoryUser])
	assert.True(t, p.Mosaic)
	assert.True(t, p.Collapsed[SectionAdmin])
	assert.False(t, p.AutoScroll)
	assert.False(t, p.GridHeightFixed)
}

func TestOptions(t *testing.T) {
	svc, _, _ := setupTestService(t, DeviceMobile)
	assert.Equal(t, []int{8, 10, 12}, svc.Options(domain.CategoryAdmin))

	_, err := NewService(nil, "tablet", nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestWatch_ReloadsExternalWrites(t *testing.T) {
	svc, _, path := setupTestService(t, DevicePC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := svc.Load(ctx)
	require.NoError(t, err)

	changed := make(chan Preferences, 4)
	svc.OnChange(func(p Preferences) { changed <- p })

	go func() { _ = svc.Watch(ctx, path) }()
	time.Sleep(50 * time.Millisecond)

	// Another process writes through its own connection.
	writer, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, writer.Set(context.Background(), "mosaicActive", "true"))

	select {
	case p := <-changed:
		assert.True(t, p.Mosaic)
	case <-time.After(3 * time.Second):
		t.Fatal("preferences were not reloaded")
	}
}
