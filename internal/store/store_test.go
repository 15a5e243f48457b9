package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/store"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "docs"), nil, store.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetAndGetDocument(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	work := &domain.Work{Title: "Night Shift", PageURL: "https://www.dlsite.com/maniax/work/=/product_id/RJ01234567.html", Timestamp: 10}
	require.NoError(t, s.Set(ctx, "works/w1", work))

	snap, err := s.Get(ctx, "works/w1")
	require.NoError(t, err)
	require.True(t, snap.Exists())
	assert.Equal(t, "w1", snap.Key())

	var got domain.Work
	require.NoError(t, snap.Decode(&got))
	assert.Equal(t, "Night Shift", got.Title)
	assert.Equal(t, int64(10), got.Timestamp)
}

func TestStore_NestedPaths(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "userFavorites/u1/RJ01234567", remote.ServerTimestamp))
	require.NoError(t, s.Set(ctx, "userFavorites/u1/RJ07654321", 5))

	snap, err := s.Get(ctx, "userFavorites/u1")
	require.NoError(t, err)
	var favs map[string]int64
	require.NoError(t, snap.Decode(&favs))
	assert.Equal(t, map[string]int64{"RJ01234567": fixedNow.UnixMilli(), "RJ07654321": 5}, favs)

	leaf, err := s.Get(ctx, "userFavorites/u1/RJ07654321")
	require.NoError(t, err)
	assert.Equal(t, "5", string(leaf.Raw()))

	// Removing the last field deletes the document.
	require.NoError(t, remote.Remove(ctx, s, "userFavorites/u1/RJ01234567"))
	require.NoError(t, remote.Remove(ctx, s, "userFavorites/u1/RJ07654321"))
	snap, err = s.Get(ctx, "userFavorites/u1")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestStore_GetMissingIsAbsent(t *testing.T) {
	s := setupTestStore(t)

	snap, err := s.Get(context.Background(), "works/nope")
	require.NoError(t, err)
	assert.False(t, snap.Exists())

	coll, err := s.Get(context.Background(), "works")
	require.NoError(t, err)
	assert.False(t, coll.Exists())
}

func TestStore_CollectionRead(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, map[string]any{
		"tags/t1": domain.Tag{Name: "fantasy", Category: "c1"},
		"tags/t2": domain.Tag{Name: "horror", Category: "c1"},
	}))

	snap, err := s.Get(ctx, "tags")
	require.NoError(t, err)
	tags, err := remote.DecodeChildren[domain.Tag](snap)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "horror", tags["t2"].Name)
}

func TestStore_UpdateIsAtomicMultiPath(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, map[string]any{
		"lists/l1":           domain.List{OwnerID: "u1", Name: "Mine"},
		"listItems/l1/w1":    map[string]any{"addedAt": 1},
		"userLists/u1/l1":    true,
		"userLists/u1/other": true,
	}))

	require.NoError(t, s.Update(ctx, map[string]any{
		"lists/l1":        nil,
		"listItems/l1":    nil,
		"userLists/u1/l1": nil,
	}))

	for _, path := range []string{"lists/l1", "listItems/l1", "userLists/u1/l1"} {
		snap, err := s.Get(ctx, path)
		require.NoError(t, err)
		assert.False(t, snap.Exists(), path)
	}
	other, err := s.Get(ctx, "userLists/u1/other")
	require.NoError(t, err)
	assert.True(t, other.Exists())
}

func TestStore_UpdateRejectsOverlappingPaths(t *testing.T) {
	s := setupTestStore(t)

	err := s.Update(context.Background(), map[string]any{
		"lists/l1":      nil,
		"lists/l1/name": "x",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestStore_Push(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	key, err := s.Push(ctx, "contacts", map[string]any{"name": "a", "timestamp": remote.ServerTimestamp})
	require.NoError(t, err)
	assert.Len(t, key, 20)

	snap, err := s.Get(ctx, remote.Join("contacts", key, "timestamp"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(fixedNow.UnixMilli()), string(snap.Raw()))
}

func TestStore_RunTransaction_Abort(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.RunTransaction(context.Background(), "works/missing", func(cur remote.Snapshot) (any, error) {
		if !cur.Exists() {
			return nil, remote.ErrAbort
		}
		return cur.Raw(), nil
	})
	assert.ErrorIs(t, err, remote.ErrAbort)
}

func TestStore_RunTransaction_ConcurrentVotesKeepScoreConsistent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "works/w1", domain.Work{Title: "contested"}))

	const voters = 10
	var wg sync.WaitGroup
	for i := range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clientID := fmt.Sprintf("client-%02d", i)
			_, err := s.RunTransaction(ctx, "works/w1", func(cur remote.Snapshot) (any, error) {
				var w domain.Work
				if err := cur.Decode(&w); err != nil {
					return nil, err
				}
				next, ok := domain.ApplyVote(&w, clientID, domain.VoteUp)
				if !ok {
					return nil, remote.ErrAbort
				}
				return next, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Get(ctx, "works/w1")
	require.NoError(t, err)
	var w domain.Work
	require.NoError(t, snap.Decode(&w))
	assert.Len(t, w.Votes, voters)
	assert.Equal(t, voters, w.Score)
}

func TestStore_Query_OrderAndLimit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, map[string]any{
		"works/a": domain.Work{Score: 5},
		"works/b": domain.Work{Score: 1},
		"works/c": domain.Work{Score: 9},
		"works/d": domain.Work{Title: "unscored"},
	}))

	rows, err := s.Query(ctx, "works", remote.Query{OrderByChild: "score", LimitToLast: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Key())
	assert.Equal(t, "c", rows[1].Key())

	rows, err = s.Query(ctx, "works", remote.Query{OrderByChild: "score", LimitToFirst: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "d", rows[0].Key(), "missing values sort first")
}

func TestStore_Subscribe_InitialAndChanges(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []int
	unsubscribe, err := s.Subscribe(ctx, "works", func(snap remote.Snapshot) {
		works, err := remote.DecodeChildren[domain.Work](snap)
		assert.NoError(t, err)
		mu.Lock()
		seen = append(seen, len(works))
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == 0
	}, time.Second, 5*time.Millisecond, "initial empty snapshot")

	require.NoError(t, s.Set(ctx, "works/w1", domain.Work{Title: "one"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[len(seen)-1] == 1
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe() // idempotent
	assert.Equal(t, 0, s.SubscriptionCount())

	require.NoError(t, s.Set(ctx, "works/w2", domain.Work{Title: "two"}))
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen[len(seen)-1], "no delivery after unsubscribe")
}

func TestStore_Subscribe_UnrelatedWritesDoNotDeliver(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	deliveries := 0
	unsubscribe, err := s.Subscribe(ctx, "userFavorites/u1", func(remote.Snapshot) {
		mu.Lock()
		deliveries++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Set(ctx, "userFavorites/u2/RJ01234567", 1))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, deliveries)
}
