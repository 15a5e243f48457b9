package cache_test

import (
	"encoding/json/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
)

func snapshot(t *testing.T, path string, v any) remote.Snapshot {
	t.Helper()
	if v == nil {
		return remote.NewSnapshot(path, nil)
	}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return remote.NewSnapshot(path, raw)
}

func TestApplySnapshot_ReplacesWholeCollection(t *testing.T) {
	rec := &sse.Recorder{}
	c := cache.New(rec, nil)

	require.NoError(t, c.ApplySnapshot(cache.Works, snapshot(t, "works", map[string]domain.Work{
		"a": {Title: "A"},
		"b": {Title: "B"},
	})))
	require.NoError(t, c.ApplySnapshot(cache.Works, snapshot(t, "works", map[string]domain.Work{
		"b": {Title: "B2"},
	})))

	data := c.Data()
	require.Len(t, data.Works, 1)
	assert.Equal(t, "B2", data.Works["b"].Title)
	assert.Equal(t, "b", data.Works["b"].ID)
	assert.True(t, c.Loaded(cache.Works))

	// An empty remote collection empties the local one.
	require.NoError(t, c.ApplySnapshot(cache.Works, snapshot(t, "works", nil)))
	assert.Empty(t, c.Data().Works)

	events := rec.OfType(sse.EventCollectionChanged)
	require.Len(t, events, 3)
	assert.Equal(t, 0, events[2].Data.(sse.CollectionChangedEventData).Count)
}

func TestApplySnapshot_IsIdempotent(t *testing.T) {
	c := cache.New(nil, nil)
	snap := snapshot(t, "adminPicks", map[string]domain.Work{"p1": {Title: "P"}})

	require.NoError(t, c.ApplySnapshot(cache.AdminPicks, snap))
	first := c.Data().AdminPicks
	require.NoError(t, c.ApplySnapshot(cache.AdminPicks, snap))
	second := c.Data().AdminPicks

	require.Len(t, second, 1)
	assert.Equal(t, first["p1"].Title, second["p1"].Title)
}

func TestApplySnapshot_NotifiesListenersSynchronously(t *testing.T) {
	c := cache.New(nil, nil)

	var changes []cache.Change
	var seenWorks int
	remove := c.OnChange(func(ch cache.Change) {
		changes = append(changes, ch)
		seenWorks = len(c.Data().Works)
	})

	require.NoError(t, c.ApplySnapshot(cache.Works, snapshot(t, "works", map[string]domain.Work{"a": {Title: "A"}})))
	// The listener already ran and saw the applied state.
	require.Len(t, changes, 1)
	assert.Equal(t, cache.Works, changes[0].Collection)
	assert.Equal(t, 1, seenWorks)

	remove()
	require.NoError(t, c.ApplySnapshot(cache.Works, snapshot(t, "works", nil)))
	assert.Len(t, changes, 1)
}

func TestApplyPointUpdate_DoesNotNotify(t *testing.T) {
	rec := &sse.Recorder{}
	c := cache.New(rec, nil)

	notified := 0
	c.OnChange(func(cache.Change) { notified++ })

	require.NoError(t, c.ApplyPointUpdate(cache.Works, "w1", &domain.Work{Title: "fetched"}))
	w, ok := c.Work("w1")
	require.True(t, ok)
	assert.Equal(t, "w1", w.ID)

	require.NoError(t, c.ApplyPointUpdate(cache.Works, "w1", nil))
	_, ok = c.Work("w1")
	assert.False(t, ok)

	assert.Zero(t, notified)
	assert.Empty(t, rec.Events())
}

func TestApplyPointUpdate_RejectsWrongRecordType(t *testing.T) {
	c := cache.New(nil, nil)

	err := c.ApplyPointUpdate(cache.Favorites, "RJ01234567", "yesterday")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	err = c.ApplyPointUpdate(cache.ListItems, "no-slash", int64(1))
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestListItemsPointUpdate(t *testing.T) {
	c := cache.New(nil, nil)

	require.NoError(t, c.ApplyPointUpdate(cache.ListItems, "l1/w1", int64(5)))
	require.NoError(t, c.ApplyPointUpdate(cache.ListItems, "l1/w2", int64(6)))
	require.NoError(t, c.ApplyPointUpdate(cache.ListItems, "l1/w1", nil))

	assert.Equal(t, map[string]int64{"w2": 6}, c.ListItems("l1"))

	require.NoError(t, c.ApplyPointUpdate(cache.ListItems, "l1", nil))
	assert.False(t, c.HasListItems("l1"))
}

func TestMyListsSnapshotPrunesRemovedLists(t *testing.T) {
	c := cache.New(nil, nil)

	require.NoError(t, c.ApplySnapshot(cache.MyLists, snapshot(t, "userLists/u1", map[string]bool{"l1": true, "l2": true})))
	require.NoError(t, c.ApplySnapshot(cache.Lists, snapshot(t, "lists/l1", domain.List{Name: "one", CreatedAt: 2})))
	require.NoError(t, c.ApplySnapshot(cache.Lists, snapshot(t, "lists/l2", domain.List{Name: "two", CreatedAt: 1})))
	require.NoError(t, c.ApplySnapshot(cache.ListItems, snapshot(t, "listItems/l1", map[string]any{"w1": map[string]any{"addedAt": 3}})))

	lists := c.MyLists()
	require.Len(t, lists, 2)
	assert.Equal(t, "two", lists[0].Name, "oldest first")
	assert.Equal(t, []string{"l1"}, c.ListsContaining("w1"))

	require.NoError(t, c.ApplySnapshot(cache.MyLists, snapshot(t, "userLists/u1", map[string]bool{"l2": true})))

	_, ok := c.List("l1")
	assert.False(t, ok)
	assert.False(t, c.HasListItems("l1"))
	assert.Equal(t, 1, c.MyListCount())
}

func TestClearUserKeepsCatalog(t *testing.T) {
	c := cache.New(nil, nil)

	require.NoError(t, c.ApplySnapshot(cache.Works, snapshot(t, "works", map[string]domain.Work{"a": {Title: "A"}})))
	require.NoError(t, c.ApplySnapshot(cache.Favorites, snapshot(t, "userFavorites/u1", map[string]int64{"RJ01234567": 1})))
	require.NoError(t, c.ApplySnapshot(cache.MyLists, snapshot(t, "userLists/u1", map[string]bool{"l1": true})))
	require.NoError(t, c.ApplySnapshot(cache.Lists, snapshot(t, "lists/l1", domain.List{Name: "one"})))
	require.True(t, c.IsFavorite("RJ01234567"))

	c.ClearUser()

	assert.False(t, c.IsFavorite("RJ01234567"))
	assert.Zero(t, c.MyListCount())
	_, ok := c.List("l1")
	assert.False(t, ok)
	assert.False(t, c.Loaded(cache.Favorites))
	assert.Len(t, c.Data().Works, 1)
}

func TestLookupCanonical_FallsBackToPageURL(t *testing.T) {
	c := cache.New(nil, nil)

	require.NoError(t, c.ApplySnapshot(cache.Works, snapshot(t, "works", map[string]domain.Work{
		"-legacyKey": {Title: "old", PageURL: "https://www.dlsite.com/maniax/work/=/product_id/RJ01234567.html"},
	})))
	require.NoError(t, c.ApplySnapshot(cache.AdminPicks, snapshot(t, "adminPicks", map[string]domain.Work{
		"RJ07654321": {Title: "pick"},
	})))

	w, ok := c.LookupCanonical("RJ01234567")
	require.True(t, ok)
	assert.Equal(t, "-legacyKey", w.ID)

	w, ok = c.Data().LookupCanonical("RJ07654321")
	require.True(t, ok)
	assert.Equal(t, "pick", w.Title)

	_, ok = c.LookupCanonical("RJ00000000")
	assert.False(t, ok)
}

func TestTagsByName(t *testing.T) {
	c := cache.New(nil, nil)

	require.NoError(t, c.ApplySnapshot(cache.Tags, snapshot(t, "tags", map[string]domain.Tag{
		"t1": {Name: "fantasy", Category: "c1"},
	})))
	tag, ok := c.TagByName("fantasy")
	require.True(t, ok)
	assert.Equal(t, "t1", tag.ID)

	require.NoError(t, c.ApplyPointUpdate(cache.Tags, "t1", &domain.Tag{Name: "high fantasy"}))
	_, ok = c.TagByName("fantasy")
	assert.False(t, ok)
	_, ok = c.TagByName("high fantasy")
	assert.True(t, ok)
}
