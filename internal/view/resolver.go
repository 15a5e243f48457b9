// Package view resolves numbered pages of the paginated views, fetching any
// record bodies the cache lacks.
package view

import (
	"cmp"
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/index"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/state"
)

// Strategy names where a page's ordering came from.
type Strategy string

// Data-sourcing strategies.
const (
	// StrategyCache slices a sequence derived from fully cached collections.
	StrategyCache Strategy = "cache"
	// StrategyFetched slices an ordering read once from work_orders/{view}.
	StrategyFetched Strategy = "fetched"
	// StrategyQuery slices the result of a server-side ordered range query.
	StrategyQuery Strategy = "query"
	// StrategyList slices the items of a single list.
	StrategyList Strategy = "list"
)

// Ranking strategies accepted in Options.
const (
	RankingFromCache = "cache"
	RankingFromQuery = "query"
)

// Item is one materialized card.
type Item struct {
	Work        *domain.Work `json:"work"`
	CanonicalID string       `json:"canonicalId"`
	Favorited   bool         `json:"favorited"`
	MyVote      int          `json:"myVote,omitzero"`
	AddedAt     int64        `json:"addedAt,omitzero"`
}

// Page is a resolved page of a view.
type Page struct {
	View       domain.View `json:"view"`
	Number     int         `json:"number"`
	TotalPages int         `json:"totalPages"`
	PageSize   int         `json:"pageSize"`
	Total      int         `json:"total"`
	Items      []Item      `json:"items"`
	Window     []int       `json:"window,omitempty"`
	Strategy   Strategy    `json:"strategy"`
	// Skeleton is true when a loading placeholder was requested for this view
	// because it was accessed cold.
	Skeleton bool `json:"skeleton,omitzero"`
	// ListID is set for list views.
	ListID string `json:"listId,omitempty"`
}

// Options configures the resolver.
type Options struct {
	RankingStrategy string
	RankingLimit    int
}

// Resolver materializes pages.
type Resolver struct {
	remote  remote.Store
	cache   *cache.Cache
	index   *index.Builder
	state   *state.State
	emitter sse.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
	opts    Options

	mu      sync.Mutex
	fetched map[domain.View][]string
	warm    map[domain.View]bool
	group   singleflight.Group
}

// NewResolver creates a Resolver.
func NewResolver(rs remote.Store, c *cache.Cache, b *index.Builder, st *state.State, emitter sse.Emitter, m *metrics.Metrics, opts Options, logger *slog.Logger) *Resolver {
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.RankingStrategy == "" {
		opts.RankingStrategy = RankingFromCache
	}
	if opts.RankingLimit <= 0 {
		opts.RankingLimit = 20
	}
	return &Resolver{
		remote:  rs,
		cache:   c,
		index:   b,
		state:   st,
		emitter: emitter,
		metrics: m,
		logger:  logger,
		opts:    opts,
		fetched: make(map[domain.View][]string),
		warm:    make(map[domain.View]bool),
	}
}

// Resolve returns page of v, clamped to the view's page range. The clamped
// page is recorded in the session state.
func (r *Resolver) Resolve(ctx context.Context, v domain.View, page int) (*Page, error) {
	if !v.Valid() {
		return nil, domainerrors.Validationf("unknown view %q", v)
	}
	size := r.state.PageSize(v.Category())
	if size < 1 {
		size = 1
	}

	var (
		p   *Page
		err error
	)
	switch {
	case v == domain.ViewRanking && r.opts.RankingStrategy == RankingFromQuery:
		p, err = r.resolveOrdered(ctx, v, page, size, StrategyQuery, r.queryRanking)
	case v == domain.ViewNew:
		p, err = r.resolveOrdered(ctx, v, page, size, StrategyFetched, r.fetchOrder)
	case v == domain.ViewFavorites:
		p, err = r.resolveFavorites(ctx, page, size)
	case v == domain.ViewMyList:
		p, err = r.resolveMyList(ctx, page, size)
	case v == domain.ViewPublicList:
		p, err = r.resolvePublicList(ctx, page, size)
	default:
		p = r.resolveDerived(v, page, size, nil)
	}
	if err != nil {
		return nil, err
	}

	p.Window = PageWindow(p.Number, p.TotalPages)
	r.state.SetPage(v, p.Number)
	r.metrics.PageResolved(string(v), string(p.Strategy))
	return p, nil
}

// Invalidate drops a fetched ordering so the next access re-reads it.
func (r *Resolver) Invalidate(v domain.View) {
	r.mu.Lock()
	delete(r.fetched, v)
	r.warm[v] = false
	r.mu.Unlock()
	r.group.Forget(string(v))

	r.logger.Debug("view index invalidated", slog.String("view", string(v)))
	r.emitter.Emit(sse.NewViewDirtyEvent(string(v)))
}

// coldStart reports whether v is accessed for the first time since startup or
// invalidation, requesting a skeleton if so.
func (r *Resolver) coldStart(v domain.View, size int) bool {
	r.mu.Lock()
	cold := !r.warm[v]
	r.warm[v] = true
	r.mu.Unlock()

	if cold {
		r.emitter.Emit(sse.NewViewLoadingEvent(string(v), size))
	}
	return cold
}

func (r *Resolver) markWarm(v domain.View) {
	r.mu.Lock()
	r.warm[v] = true
	r.mu.Unlock()
}

// sourceLoaded reports whether the collections behind a derived view have arrived.
func (r *Resolver) sourceLoaded(v domain.View) bool {
	switch {
	case v.IsAdmin():
		return r.cache.Loaded(cache.AdminPicks)
	case v == domain.ViewFavorites:
		return r.cache.Loaded(cache.Works) && r.cache.Loaded(cache.Favorites)
	default:
		return r.cache.Loaded(cache.Works)
	}
}

// resolveDerived slices a cache-derived sequence. ids overrides the builder's
// sequence when non-nil.
func (r *Resolver) resolveDerived(v domain.View, page, size int, ids []string) *Page {
	if !r.sourceLoaded(v) {
		skeleton := r.coldStart(v, size)
		return &Page{View: v, Number: 1, TotalPages: 1, PageSize: size, Items: []Item{}, Strategy: StrategyCache, Skeleton: skeleton}
	}
	r.markWarm(v)

	if ids == nil {
		ids, _ = r.index.IDs(v)
	}
	return r.slice(v, ids, page, size, StrategyCache, nil)
}

// slice clamps page, cuts its ids out of the sequence and materializes them.
// Ids without a cached record are left out without renumbering.
func (r *Resolver) slice(v domain.View, ids []string, page, size int, strategy Strategy, addedAt map[string]int64) *Page {
	total := TotalPages(len(ids), size)
	number := Clamp(page, total)
	start, end := bounds(number, size, len(ids))

	return &Page{
		View:       v,
		Number:     number,
		TotalPages: total,
		PageSize:   size,
		Total:      len(ids),
		Items:      r.materialize(ids[start:end], addedAt),
		Strategy:   strategy,
	}
}

func (r *Resolver) materialize(ids []string, addedAt map[string]int64) []Item {
	clientID := r.state.ClientID()
	items := make([]Item, 0, len(ids))
	for _, workID := range ids {
		w, ok := r.cache.Work(workID)
		if !ok {
			continue
		}
		canonical := w.CanonicalID()
		items = append(items, Item{
			Work:        w,
			CanonicalID: canonical,
			Favorited:   r.cache.IsFavorite(canonical),
			MyVote:      w.VoteOf(clientID),
			AddedAt:     addedAt[workID],
		})
	}
	return items
}

// orderFunc loads a remote-side ordering for a view.
type orderFunc func(ctx context.Context, v domain.View) (ids []string, ok bool, err error)

// resolveOrdered serves a view from a lazily loaded remote ordering, hydrating
// only the requested slice. When no remote ordering exists it falls back to the
// cache-derived sequence.
func (r *Resolver) resolveOrdered(ctx context.Context, v domain.View, page, size int, strategy Strategy, load orderFunc) (*Page, error) {
	r.mu.Lock()
	ids, have := r.fetched[v]
	r.mu.Unlock()

	skeleton := false
	if !have {
		skeleton = r.coldStart(v, size)
		res, err, _ := r.group.Do(string(v), func() (any, error) {
			ids, ok, err := load(ctx, v)
			if err != nil || !ok {
				return nil, err
			}
			r.mu.Lock()
			r.fetched[v] = ids
			r.mu.Unlock()
			return ids, nil
		})
		if err != nil {
			r.mu.Lock()
			r.warm[v] = false
			r.mu.Unlock()
			return nil, domainerrors.Transient(err, fmt.Sprintf("failed to load %s", v))
		}
		if res == nil {
			p := r.resolveDerived(v, page, size, nil)
			p.Skeleton = p.Skeleton || skeleton
			return p, nil
		}
		ids = res.([]string)
	}

	// Filter the whole ordering with what the cache already knows, then
	// recheck the page once its records are hydrated.
	filters := r.state.Filters()
	ids = index.Apply(v, ids, r.cache.Data().Works, filters)

	total := TotalPages(len(ids), size)
	number := Clamp(page, total)
	start, end := bounds(number, size, len(ids))
	pageIDs := ids[start:end]

	r.hydrate(ctx, pageIDs, cache.Works)
	pageIDs = index.Apply(v, pageIDs, r.cache.Data().Works, filters)

	return &Page{
		View:       v,
		Number:     number,
		TotalPages: total,
		PageSize:   size,
		Total:      len(ids),
		Items:      r.materialize(pageIDs, nil),
		Strategy:   strategy,
		Skeleton:   skeleton,
	}, nil
}

// fetchOrder reads work_orders/{view}: either an array of ids, or an object of
// id -> sort key read in descending key order.
func (r *Resolver) fetchOrder(ctx context.Context, v domain.View) ([]string, bool, error) {
	snap, err := r.remote.Get(ctx, remote.Join(remote.PathWorkOrders, string(v)))
	if err != nil {
		return nil, false, err
	}
	if !snap.Exists() {
		return nil, false, nil
	}
	ids, err := parseOrder(snap.Raw())
	if err != nil {
		return nil, false, fmt.Errorf("parse %s order: %w", v, err)
	}
	r.logger.Debug("view index fetched", slog.String("view", string(v)), slog.Int("count", len(ids)))
	return ids, true, nil
}

func parseOrder(raw []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return slices.DeleteFunc(list, func(s string) bool { return s == "" }), nil
	}

	var keyed map[string]float64
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, err
	}
	ids := slices.Collect(maps.Keys(keyed))
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(keyed[b], keyed[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids, nil
}

// queryRanking asks the store for the top-scored works. The records arrive with
// the query, so they are cached directly.
func (r *Resolver) queryRanking(ctx context.Context, _ domain.View) ([]string, bool, error) {
	rows, err := r.remote.Query(ctx, string(cache.Works), remote.Query{
		OrderByChild: "score",
		LimitToLast:  r.opts.RankingLimit,
	})
	if err != nil {
		return nil, false, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range slices.Backward(rows) {
		w := &domain.Work{}
		if err := row.Decode(w); err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", row.Key(), err)
		}
		if err := r.cache.ApplyPointUpdate(cache.Works, row.Key(), w); err != nil {
			return nil, false, err
		}
		ids = append(ids, row.Key())
	}
	return ids, true, nil
}

// resolveFavorites hydrates favorites whose records are not cached before slicing.
func (r *Resolver) resolveFavorites(ctx context.Context, page, size int) (*Page, error) {
	if !r.sourceLoaded(domain.ViewFavorites) {
		return r.resolveDerived(domain.ViewFavorites, page, size, nil), nil
	}

	data := r.cache.Data()
	var missing []string
	for _, canonicalID := range slices.Sorted(maps.Keys(data.Favorites)) {
		if _, ok := data.LookupCanonical(canonicalID); !ok {
			missing = append(missing, canonicalID)
		}
	}
	if len(missing) == 0 || r.hydrate(ctx, missing, cache.Works, cache.AdminPicks) == 0 {
		return r.resolveDerived(domain.ViewFavorites, page, size, nil), nil
	}

	// Point updates never rebuild the shared indexes, so derive locally.
	data = r.cache.Data()
	ids := index.Apply(domain.ViewFavorites, index.Favorites(data), data.Merged(), r.state.Filters())
	return r.resolveDerived(domain.ViewFavorites, page, size, ids), nil
}
