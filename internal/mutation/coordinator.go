// Package mutation turns user intent (votes, favorites, list edits, contact
// messages) into an optimistic cache change plus a durable remote write, and
// reconciles or rolls back once the write resolves.
package mutation

import (
	"log/slog"
	"time"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/state"
	"github.com/shareboard/shareboard/internal/validation"
)

// Mutation kinds, used in metrics, logs and revert events.
const (
	KindVote       = "vote"
	KindFavorite   = "favorite"
	KindMembership = "membership"
	KindCreateList = "create_list"
	KindRenameList = "rename_list"
	KindDeleteList = "delete_list"
	KindImportList = "import_list"
	KindContact    = "contact"
)

// Outcomes recorded per mutation.
const (
	outcomeCommitted    = "committed"
	outcomeReverted     = "reverted"
	outcomeRejected     = "rejected"
	outcomeNotFound     = "not_found"
	outcomeUnauthorized = "unauthorized"
	outcomeCapacity     = "capacity"
)

// Limits caps what a single owner may create.
type Limits struct {
	MaxLists        int
	MaxItemsPerList int
}

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{MaxLists: domain.DefaultMaxLists, MaxItemsPerList: domain.DefaultMaxItemsPerList}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLimits overrides the list caps.
func WithLimits(l Limits) Option {
	return func(c *Coordinator) { c.limits = l }
}

// Coordinator applies mutations. Every operation returns a result describing
// the authoritative state after it resolved; presentation re-reads the cache
// rather than patching what it rendered.
type Coordinator struct {
	remote    remote.Store
	cache     *cache.Cache
	state     *state.State
	emitter   sse.Emitter
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	limits    Limits
	now       func() time.Time
}

// New creates a Coordinator.
func New(rs remote.Store, c *cache.Cache, st *state.State, emitter sse.Emitter, v *validation.Validator, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Coordinator {
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	if v == nil {
		v = validation.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	co := &Coordinator{
		remote:    rs,
		cache:     c,
		state:     st,
		emitter:   emitter,
		validator: v,
		metrics:   m,
		logger:    logger,
		limits:    DefaultLimits(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// Limits returns the caps in force.
func (c *Coordinator) Limits() Limits {
	return c.limits
}

func (c *Coordinator) userID() string {
	if u := c.state.User(); u != nil {
		return u.UID
	}
	return ""
}

// requireUser rejects kind before any remote call when nobody is signed in.
func (c *Coordinator) requireUser(kind string) (*domain.User, error) {
	u := c.state.User()
	if u != nil {
		return u, nil
	}
	c.metrics.Mutation(kind, outcomeUnauthorized)
	c.notify(sse.LevelWarning, "sign in to continue")
	return nil, domainerrors.Unauthorized("sign-in required")
}

// ownedList returns listID when the signed-in user owns it.
func (c *Coordinator) ownedList(kind, listID string) error {
	if listID != "" && c.cache.OwnsList(listID) {
		return nil
	}
	c.metrics.Mutation(kind, outcomeNotFound)
	return domainerrors.NotFound("list not found")
}

func (c *Coordinator) rejectCapacity(kind, msg string) error {
	c.metrics.Mutation(kind, outcomeCapacity)
	c.notify(sse.LevelWarning, msg)
	return domainerrors.Capacity(msg)
}

// fail reports a remote write that did not land. Any optimistic change must
// already be reverted.
func (c *Coordinator) fail(kind, target string, err error, msg string) error {
	c.logger.Warn("mutation failed",
		slog.String("kind", kind),
		slog.String("target", target),
		slog.String("error", err.Error()))
	c.metrics.Mutation(kind, outcomeReverted)
	c.emitter.Emit(sse.NewMutationRevertedEvent(c.userID(), kind, target, err.Error()))
	c.notify(sse.LevelError, msg)
	return domainerrors.Transient(err, msg)
}

func (c *Coordinator) committed(kind, target string) {
	c.metrics.Mutation(kind, outcomeCommitted)
	c.logger.Debug("mutation committed", slog.String("kind", kind), slog.String("target", target))
}

func (c *Coordinator) notify(level sse.Level, msg string) {
	c.emitter.Emit(sse.NewNotificationEvent(c.userID(), level, msg))
}

// touched marks the views of the current screen for re-resolution after a
// point update, which never triggers a rebuild on its own.
func (c *Coordinator) touched() {
	views := c.state.Route().Screen.Views()
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = string(v)
	}
	c.emitter.Emit(sse.NewViewDirtyEvent(names...))
}
