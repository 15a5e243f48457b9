package view_test

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/index"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/state"
	"github.com/shareboard/shareboard/internal/store"
	"github.com/shareboard/shareboard/internal/view"
)

type fixture struct {
	remote   *store.Store
	cache    *cache.Cache
	state    *state.State
	events   *sse.Recorder
	resolver *view.Resolver
}

func setup(t *testing.T, opts view.Options) *fixture {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "docs"), nil,
		store.WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	events := &sse.Recorder{}
	c := cache.New(events, nil)
	st := state.New("client-1")
	b := index.NewBuilder(c, st, events, nil, nil)

	return &fixture{
		remote:   s,
		cache:    c,
		state:    st,
		events:   events,
		resolver: view.NewResolver(s, c, b, st, events, nil, opts, nil),
	}
}

func snapshot(t *testing.T, path string, v any) remote.Snapshot {
	t.Helper()
	if v == nil {
		return remote.NewSnapshot(path, nil)
	}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return remote.NewSnapshot(path, raw)
}

func itemIDs(p *view.Page) []string {
	out := make([]string, len(p.Items))
	for i, item := range p.Items {
		out[i] = item.Work.ID
	}
	return out
}

func TestResolve_ClampsPage(t *testing.T) {
	f := setup(t, view.Options{})

	picks := make(map[string]domain.Work)
	for i := range 12 {
		order := int64(i)
		picks[fmt.Sprintf("p%02d", i)] = domain.Work{Title: "pick", ManualGenre: domain.GenreManga, Order: &order}
	}
	require.NoError(t, f.cache.ApplySnapshot(cache.AdminPicks, snapshot(t, "adminPicks", picks)))

	p, err := f.resolver.Resolve(context.Background(), domain.ViewAdminManga, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Number)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, []string{"p10", "p11"}, itemIDs(p))
	assert.Equal(t, []int{1, 2}, p.Window)
	assert.Equal(t, 2, f.state.Page(domain.ViewAdminManga))

	p, err = f.resolver.Resolve(context.Background(), domain.ViewAdminManga, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)
	assert.Len(t, p.Items, 10)
}

func TestResolve_EmptyViewHasOnePage(t *testing.T) {
	f := setup(t, view.Options{})
	require.NoError(t, f.cache.ApplySnapshot(cache.Works, snapshot(t, "works", nil)))

	p, err := f.resolver.Resolve(context.Background(), domain.ViewRanking, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
	assert.Nil(t, p.Window)
	assert.False(t, p.Skeleton)
}

func TestResolve_SkeletonOnlyOnFirstColdAccess(t *testing.T) {
	f := setup(t, view.Options{})

	p, err := f.resolver.Resolve(context.Background(), domain.ViewRanking, 1)
	require.NoError(t, err)
	assert.True(t, p.Skeleton)

	p, err = f.resolver.Resolve(context.Background(), domain.ViewRanking, 1)
	require.NoError(t, err)
	assert.False(t, p.Skeleton)

	loading := f.events.OfType(sse.EventViewLoading)
	require.Len(t, loading, 1)
	assert.Equal(t, "ranking", loading[0].Data.(sse.ViewLoadingEventData).View)

	require.NoError(t, f.cache.ApplySnapshot(cache.Works, snapshot(t, "works", map[string]domain.Work{
		"a": {Score: 1}, "b": {Score: 3},
	})))
	p, err = f.resolver.Resolve(context.Background(), domain.ViewRanking, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, itemIDs(p))
	assert.Equal(t, view.StrategyCache, p.Strategy)
}

func TestResolve_FetchedOrderHydratesPage(t *testing.T) {
	f := setup(t, view.Options{})
	ctx := context.Background()

	require.NoError(t, f.remote.Update(ctx, map[string]any{
		"work_orders/new": []string{"b", "missing", "a"},
		"works/a":         domain.Work{Title: "A"},
		"works/b":         domain.Work{Title: "B"},
	}))

	p, err := f.resolver.Resolve(ctx, domain.ViewNew, 1)
	require.NoError(t, err)
	assert.Equal(t, view.StrategyFetched, p.Strategy)
	assert.True(t, p.Skeleton)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, []string{"b", "a"}, itemIDs(p), "missing records are skipped")

	_, ok := f.cache.Work("a")
	assert.True(t, ok)

	// The ordering is read once until invalidated.
	require.NoError(t, f.remote.Set(ctx, "work_orders/new", []string{"a"}))
	p, err = f.resolver.Resolve(ctx, domain.ViewNew, 1)
	require.NoError(t, err)
	assert.False(t, p.Skeleton)
	assert.Equal(t, 3, p.Total)

	f.resolver.Invalidate(domain.ViewNew)
	p, err = f.resolver.Resolve(ctx, domain.ViewNew, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, itemIDs(p))
	assert.True(t, p.Skeleton)
}

func TestResolve_FetchedOrderAppliesFilters(t *testing.T) {
	f := setup(t, view.Options{})
	ctx := context.Background()

	require.NoError(t, f.remote.Update(ctx, map[string]any{
		"work_orders/new": map[string]int{"a": 3, "b": 2, "c": 1},
		"works/a":         domain.Work{Title: "hidden", Tags: map[string]string{"t1": "x"}},
		"works/b":         domain.Work{Title: "kept"},
		"works/c":         domain.Work{Title: "untagged"},
	}))
	f.state.SetTagFilters(nil, []string{"t1"})

	p, err := f.resolver.Resolve(ctx, domain.ViewNew, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, itemIDs(p))
}

func TestResolve_RankingByQuery(t *testing.T) {
	f := setup(t, view.Options{RankingStrategy: view.RankingFromQuery, RankingLimit: 2})
	ctx := context.Background()

	require.NoError(t, f.remote.Update(ctx, map[string]any{
		"works/a": domain.Work{Score: 5},
		"works/b": domain.Work{Score: 1},
		"works/c": domain.Work{Score: 9},
	}))

	p, err := f.resolver.Resolve(ctx, domain.ViewRanking, 1)
	require.NoError(t, err)
	assert.Equal(t, view.StrategyQuery, p.Strategy)
	assert.Equal(t, []string{"c", "a"}, itemIDs(p))
}

func TestResolve_FavoritesHydratesMissingRecords(t *testing.T) {
	f := setup(t, view.Options{})
	ctx := context.Background()

	require.NoError(t, f.remote.Set(ctx, "adminPicks/RJ01234567", domain.Work{Title: "picked"}))
	require.NoError(t, f.cache.ApplySnapshot(cache.Works, snapshot(t, "works", nil)))
	require.NoError(t, f.cache.ApplySnapshot(cache.Favorites, snapshot(t, "userFavorites/u1", map[string]int64{
		"RJ01234567": 5,
		"RJ09999999": 9,
	})))

	p, err := f.resolver.Resolve(ctx, domain.ViewFavorites, 1)
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "picked", p.Items[0].Work.Title)
	assert.True(t, p.Items[0].Favorited)
}

func TestLoadPublicList(t *testing.T) {
	f := setup(t, view.Options{})
	ctx := context.Background()

	require.NoError(t, f.remote.Update(ctx, map[string]any{
		"lists/l1":        domain.List{OwnerID: "u9", Name: "Shared", CreatedAt: 1},
		"listItems/l1/w1": map[string]any{"addedAt": 10},
		"listItems/l1/w2": map[string]any{"addedAt": 20},
		"works/w1":        domain.Work{Title: "one"},
		"works/w2":        domain.Work{Title: "two"},
	}))

	list, err := f.resolver.LoadPublicList(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Shared", list.Name)
	assert.Equal(t, state.Route{Screen: domain.ScreenPublicList, ListID: "l1"}, f.state.Route())

	p, err := f.resolver.Resolve(ctx, domain.ViewPublicList, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"w2", "w1"}, itemIDs(p))
	assert.Equal(t, int64(20), p.Items[0].AddedAt)
	assert.Equal(t, "l1", p.ListID)
}

func TestLoadPublicList_NotFound(t *testing.T) {
	f := setup(t, view.Options{})

	_, err := f.resolver.LoadPublicList(context.Background(), "nope")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Equal(t, state.MainRoute, f.state.Route())
	assert.Len(t, f.events.OfType(sse.EventNotification), 1)

	_, err = f.resolver.Resolve(context.Background(), domain.ViewPublicList, 1)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestResolve_MyListSelectsFirstList(t *testing.T) {
	f := setup(t, view.Options{})
	ctx := context.Background()

	require.NoError(t, f.cache.ApplySnapshot(cache.MyLists, snapshot(t, "userLists/u1", map[string]bool{"l1": true, "l2": true})))
	require.NoError(t, f.cache.ApplySnapshot(cache.Lists, snapshot(t, "lists/l2", domain.List{OwnerID: "u1", Name: "second", CreatedAt: 2})))
	require.NoError(t, f.cache.ApplySnapshot(cache.Lists, snapshot(t, "lists/l1", domain.List{OwnerID: "u1", Name: "first", CreatedAt: 1})))

	p, err := f.resolver.Resolve(ctx, domain.ViewMyList, 1)
	require.NoError(t, err)
	assert.Equal(t, "l1", p.ListID)
	assert.Equal(t, "l1", f.state.ActiveList())
	assert.Empty(t, p.Items)
}
