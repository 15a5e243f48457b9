package index

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/state"
)

// Rebuild triggers.
const (
	TriggerSnapshot = "snapshot"
	TriggerFilters  = "filters"
	TriggerManual   = "manual"
)

// derivedViews are the views whose sequences come straight from the cache.
var derivedViews = []domain.View{
	domain.ViewRanking,
	domain.ViewNew,
	domain.ViewFavorites,
	domain.ViewAdminManga,
	domain.ViewAdminGame,
	domain.ViewAdminUnknown,
}

// Builder keeps the filtered sequences of every cache-derived view current.
type Builder struct {
	cache   *cache.Cache
	state   *state.State
	emitter sse.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger

	// rebuildMu serializes rebuilds triggered from different subscription goroutines.
	rebuildMu sync.Mutex

	mu       sync.RWMutex
	base     Sequences
	filtered map[domain.View][]string
	version  uint64
}

// NewBuilder creates a Builder and wires it to cache snapshots and filter changes.
func NewBuilder(c *cache.Cache, st *state.State, emitter sse.Emitter, m *metrics.Metrics, logger *slog.Logger) *Builder {
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Builder{
		cache:    c,
		state:    st,
		emitter:  emitter,
		metrics:  m,
		logger:   logger,
		filtered: make(map[domain.View][]string),
	}

	c.OnChange(func(ch cache.Change) {
		if dirty := viewsAffectedBy(ch.Collection); len(dirty) > 0 {
			b.Rebuild(TriggerSnapshot, dirty...)
		}
	})
	st.OnChange(func(ch state.Change) {
		if ch.Kind == state.ChangeFilters {
			// Hidden views are re-derived too so they are correct when revisited.
			b.Rebuild(TriggerFilters, domain.ViewNew, domain.ViewRanking, domain.ViewFavorites)
		}
	})
	return b
}

func viewsAffectedBy(coll cache.Collection) []domain.View {
	switch coll {
	case cache.Works:
		return []domain.View{domain.ViewNew, domain.ViewRanking, domain.ViewFavorites, domain.ViewMyList, domain.ViewPublicList}
	case cache.AdminPicks:
		return []domain.View{domain.ViewAdminManga, domain.ViewAdminGame, domain.ViewAdminUnknown, domain.ViewFavorites, domain.ViewMyList, domain.ViewPublicList}
	case cache.Favorites:
		return []domain.View{domain.ViewFavorites}
	case cache.MyLists, cache.Lists, cache.ListItems:
		return []domain.View{domain.ViewMyList, domain.ViewPublicList}
	default:
		return nil
	}
}

// Rebuild recomputes every derived sequence from a consistent cache copy and the
// current filters, then marks dirty as needing a re-render.
func (b *Builder) Rebuild(trigger string, dirty ...domain.View) {
	b.rebuildMu.Lock()
	defer b.rebuildMu.Unlock()

	start := time.Now()
	data := b.cache.Data()
	filters := b.state.Filters()

	base := Build(data)
	works := data.Works
	merged := data.Merged()

	filtered := make(map[domain.View][]string, len(derivedViews))
	for _, v := range derivedViews {
		src := works
		switch {
		case v.IsAdmin():
			src = data.AdminPicks
		case v == domain.ViewFavorites:
			src = merged
		}
		filtered[v] = Apply(v, baseFor(base, v), src, filters)
	}

	b.mu.Lock()
	b.base = base
	b.filtered = filtered
	b.version++
	version := b.version
	b.mu.Unlock()

	took := time.Since(start)
	b.metrics.IndexRebuilt(trigger, took)
	b.logger.Debug("indexes rebuilt",
		slog.String("trigger", trigger),
		slog.Uint64("version", version),
		slog.Duration("took", took))

	b.emitter.Emit(sse.NewIndexRebuiltEvent(sse.IndexRebuiltEventData{
		Ranking:    len(filtered[domain.ViewRanking]),
		Recency:    len(filtered[domain.ViewNew]),
		Favorites:  len(filtered[domain.ViewFavorites]),
		AdminManga: len(filtered[domain.ViewAdminManga]),
		AdminGame:  len(filtered[domain.ViewAdminGame]),
		AdminOther: len(filtered[domain.ViewAdminUnknown]),
	}))
	if len(dirty) > 0 {
		names := make([]string, len(dirty))
		for i, v := range dirty {
			names[i] = string(v)
		}
		b.emitter.Emit(sse.NewViewDirtyEvent(names...))
	}
}

func baseFor(s Sequences, v domain.View) []string {
	switch v {
	case domain.ViewRanking:
		return s.Ranking
	case domain.ViewNew:
		return s.Recency
	case domain.ViewFavorites:
		return s.Favorites
	case domain.ViewAdminManga:
		return s.Admin[domain.GenreManga]
	case domain.ViewAdminGame:
		return s.Admin[domain.GenreGame]
	case domain.ViewAdminUnknown:
		return s.Admin[domain.GenreUnknown]
	default:
		return nil
	}
}

// IDs returns the filtered sequence of a cache-derived view. ok is false for
// views this builder does not derive.
func (b *Builder) IDs(v domain.View) (ids []string, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seq, ok := b.filtered[v]
	return slices.Clone(seq), ok
}

// Base returns the unfiltered sequence of a cache-derived view.
func (b *Builder) Base(v domain.View) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(baseFor(b.base, v))
}

// Version increases with every rebuild.
func (b *Builder) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Derives reports whether v is served from cache-derived sequences.
func Derives(v domain.View) bool {
	return slices.Contains(derivedViews, v)
}
