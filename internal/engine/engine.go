// Package engine is the application root. It owns the client cache and the
// session state and wires every component to them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/index"
	"github.com/shareboard/shareboard/internal/ingest"
	"github.com/shareboard/shareboard/internal/media/cover"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/mutation"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/search"
	"github.com/shareboard/shareboard/internal/settings"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/state"
	"github.com/shareboard/shareboard/internal/subscription"
	"github.com/shareboard/shareboard/internal/validation"
	"github.com/shareboard/shareboard/internal/view"
)

// Options configures the components the engine builds.
type Options struct {
	View   view.Options
	Limits mutation.Limits
	Ingest ingest.Config
	// Covers computes mosaic placeholders. Nil disables them.
	Covers *cover.Service
}

// Engine holds one session's components.
type Engine struct {
	Remote        remote.Store
	Cache         *cache.Cache
	State         *state.State
	Index         *index.Builder
	Views         *view.Resolver
	Mutations     *mutation.Coordinator
	Subscriptions *subscription.Manager
	Search        *search.Index
	Settings      *settings.Service
	Ingest        *ingest.Client
	Covers        *cover.Service
	Events        sse.Emitter
	Metrics       *metrics.Metrics

	logger     *slog.Logger
	stopSearch func()
	closeOnce  sync.Once
}

// New loads the preferences and builds every component on top of rs.
func New(ctx context.Context, rs remote.Store, prefs *settings.Service, emitter sse.Emitter, m *metrics.Metrics, opts Options, logger *slog.Logger) (*Engine, error) {
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p, err := prefs.Load(ctx)
	if err != nil {
		return nil, err
	}

	st := state.New(p.ClientID)
	for c, size := range p.PageSizes {
		if err := st.SetPageSize(c, size); err != nil {
			return nil, fmt.Errorf("apply page size: %w", err)
		}
	}

	c := cache.New(emitter, logger.With(slog.String("component", "cache")))
	builder := index.NewBuilder(c, st, emitter, m, logger.With(slog.String("component", "index")))
	resolver := view.NewResolver(rs, c, builder, st, emitter, m, opts.View, logger.With(slog.String("component", "view")))

	var mutOpts []mutation.Option
	if opts.Limits.MaxLists > 0 && opts.Limits.MaxItemsPerList > 0 {
		mutOpts = append(mutOpts, mutation.WithLimits(opts.Limits))
	}
	coordinator := mutation.New(rs, c, st, emitter, validation.New(), m, logger.With(slog.String("component", "mutation")), mutOpts...)

	subs := subscription.New(rs, c, m, logger.With(slog.String("component", "subscription")))
	subs.Bind(st)

	idx, err := search.NewIndex(logger.With(slog.String("component", "search")))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Remote:        rs,
		Cache:         c,
		State:         st,
		Index:         builder,
		Views:         resolver,
		Mutations:     coordinator,
		Subscriptions: subs,
		Search:        idx,
		Settings:      prefs,
		Ingest:        ingest.New(opts.Ingest, resolver, emitter, m, logger.With(slog.String("component", "ingest"))),
		Covers:        opts.Covers,
		Events:        emitter,
		Metrics:       m,
		logger:        logger,
	}
	e.stopSearch = idx.Follow(c)
	prefs.OnChange(e.preferencesChanged)

	return e, nil
}

// Start opens the catalog subscriptions.
func (e *Engine) Start(ctx context.Context) error {
	return e.Subscriptions.Start(ctx)
}

// SignIn records the user handed over by the auth provider. Their favorites
// and lists are subscribed to as a side effect.
func (e *Engine) SignIn(u *domain.User) {
	e.State.SetUser(u)
	e.logger.Info("user signed in", slog.String("uid", u.UID))
}

// SignOut clears the session and every user-scoped cache entry.
func (e *Engine) SignOut() {
	if !e.State.SignedIn() {
		return
	}
	e.State.SetUser(nil)
	e.logger.Info("user signed out")
}

// Close releases every component. It is safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.Subscriptions.Close()
		e.stopSearch()
		e.Ingest.Close()
		if e.Covers != nil {
			e.Covers.Close()
		}
		err = e.Search.Close()
	})
	return err
}

// preferencesChanged applies page sizes to the state and redraws every grid,
// since toggles such as mosaic change how all of them render.
func (e *Engine) preferencesChanged(p settings.Preferences) {
	for c, size := range p.PageSizes {
		if e.State.PageSize(c) == size {
			continue
		}
		if err := e.State.SetPageSize(c, size); err != nil {
			e.logger.Warn("ignoring page size", slog.String("category", string(c)), slog.String("error", err.Error()))
		}
	}

	e.Index.Rebuild(index.TriggerManual, domain.AllViews...)
}
