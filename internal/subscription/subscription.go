// Package subscription keeps the cache live: it holds the catalog
// subscriptions for the whole session and the user-scoped ones between sign-in
// and sign-out.
package subscription

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/state"
)

// catalog lists the collections every session subscribes to.
var catalog = []struct {
	path string
	coll cache.Collection
}{
	{remote.PathWorks, cache.Works},
	{remote.PathAdminPicks, cache.AdminPicks},
	{remote.PathTags, cache.Tags},
	{remote.PathCategories, cache.Categories},
}

// Manager owns every live subscription.
type Manager struct {
	remote  remote.Store
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	started bool
	global  []remote.Unsubscribe
	user    *userSession
}

// userSession is the set of subscriptions belonging to one signed-in user.
type userSession struct {
	uid string
	own []remote.Unsubscribe
	// lists holds the per-list subscriptions (record and items) by list id.
	lists map[string][]remote.Unsubscribe

	// gate is held while a delivery is applied to the cache. Once closed is
	// set under it, no delivery of this session reaches the cache again.
	gate   sync.Mutex
	closed bool
}

// apply runs fn unless the session has been closed.
func (us *userSession) apply(fn func()) bool {
	us.gate.Lock()
	defer us.gate.Unlock()
	if us.closed {
		return false
	}
	fn()
	return true
}

// close waits for an in-flight delivery, then shuts the gate.
func (us *userSession) close() {
	us.gate.Lock()
	us.closed = true
	us.gate.Unlock()
}

func (us *userSession) isClosed() bool {
	us.gate.Lock()
	defer us.gate.Unlock()
	return us.closed
}

// New creates a Manager.
func New(rs remote.Store, c *cache.Cache, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		remote:  rs,
		cache:   c,
		metrics: m,
		logger:  logger,
	}
}

// Start subscribes to the catalog collections. ctx bounds every subscription
// the manager opens, including later user ones.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	m.ctx = ctx

	for _, entry := range catalog {
		unsub, err := m.open(nil, entry.path, entry.coll)
		if err != nil {
			m.closeAll(m.global)
			m.global = nil
			return err
		}
		m.global = append(m.global, unsub)
	}
	m.started = true
	m.logger.Info("catalog subscriptions started", slog.Int("count", len(m.global)))
	return nil
}

// Bind follows st's signed-in user, opening and closing the user-scoped
// subscriptions as it changes.
func (m *Manager) Bind(st *state.State) {
	st.OnChange(func(c state.Change) {
		if c.Kind != state.ChangeUser {
			return
		}
		if u := st.User(); u != nil {
			if err := m.Login(u); err != nil {
				m.logger.Error("failed to open user subscriptions",
					slog.String("uid", u.UID),
					slog.String("error", err.Error()))
			}
			return
		}
		m.Logout()
	})
}

// Login opens the user's favorites and list subscriptions. Signing in as
// another user first closes the previous user's.
func (m *Manager) Login(u *domain.User) error {
	m.mu.Lock()
	if m.user != nil && m.user.uid == u.UID {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	m.Logout()

	us := &userSession{uid: u.UID, lists: make(map[string][]remote.Unsubscribe)}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = us

	favs, err := m.open(us, remote.Join(remote.PathUserFavorites, u.UID), cache.Favorites)
	if err != nil {
		return err
	}
	us.own = append(us.own, favs)

	pointers := remote.Join(remote.PathUserLists, u.UID)
	lists, err := m.subscribe(pointers, func(snap remote.Snapshot) {
		var applied bool
		if !us.apply(func() { applied = m.applySnapshot(cache.MyLists, pointers, snap) }) || !applied {
			return
		}
		// syncLists takes m.mu, so it runs outside the gate.
		m.syncLists(us, snap)
	})
	if err != nil {
		return err
	}
	us.own = append(us.own, lists)

	m.logger.Info("user subscriptions opened", slog.String("uid", u.UID))
	return nil
}

// syncLists subscribes to each owned list and drops lists no longer owned.
func (m *Manager) syncLists(us *userSession, pointers remote.Snapshot) {
	owned := make(map[string]bool)
	if pointers.Exists() {
		if err := pointers.Decode(&owned); err != nil {
			m.logger.Warn("failed to decode list pointers", slog.String("error", err.Error()))
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if us.isClosed() {
		return
	}

	for listID, unsubs := range us.lists {
		if !owned[listID] {
			m.closeAll(unsubs)
			delete(us.lists, listID)
		}
	}
	for listID, ok := range owned {
		if !ok || us.lists[listID] != nil {
			continue
		}
		record, err := m.open(us, remote.Join(remote.PathLists, listID), cache.Lists)
		if err != nil {
			m.logger.Warn("failed to subscribe to list", slog.String("list_id", listID), slog.String("error", err.Error()))
			continue
		}
		items, err := m.open(us, remote.Join(remote.PathListItems, listID), cache.ListItems)
		if err != nil {
			m.closeAll([]remote.Unsubscribe{record})
			m.logger.Warn("failed to subscribe to list items", slog.String("list_id", listID), slog.String("error", err.Error()))
			continue
		}
		us.lists[listID] = []remote.Unsubscribe{record, items}
	}
}

// Logout closes the user-scoped subscriptions and clears the user's cached
// data. A delivery already being applied finishes before the clear; later ones
// are dropped. Calling it without a signed-in user is a no-op.
func (m *Manager) Logout() {
	m.mu.Lock()
	us := m.user
	m.user = nil
	m.mu.Unlock()

	if us == nil {
		return
	}
	// The gate is taken without m.mu: the list pointer callback holds the gate
	// and then takes m.mu in syncLists.
	us.close()

	m.mu.Lock()
	m.closeUser(us)
	m.mu.Unlock()

	m.cache.ClearUser()
	m.logger.Info("user subscriptions closed", slog.String("uid", us.uid))
}

// Close ends every subscription.
func (m *Manager) Close() {
	m.Logout()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeAll(m.global)
	m.global = nil
	m.started = false
}

// UserID returns the user whose subscriptions are open.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return ""
	}
	return m.user.uid
}

// ListSubscriptions returns the ids of the lists currently subscribed.
func (m *Manager) ListSubscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	out := make([]string, 0, len(m.user.lists))
	for listID := range m.user.lists {
		out = append(out, listID)
	}
	slices.Sort(out)
	return out
}

func (m *Manager) closeUser(us *userSession) {
	m.closeAll(us.own)
	for _, unsubs := range us.lists {
		m.closeAll(unsubs)
	}
	us.own = nil
	us.lists = nil
}

// open subscribes path and applies every delivery to coll. Deliveries for a
// user session pass through its gate; us is nil for catalog collections.
// Callers hold m.mu.
func (m *Manager) open(us *userSession, path string, coll cache.Collection) (remote.Unsubscribe, error) {
	return m.subscribe(path, func(snap remote.Snapshot) {
		if us == nil {
			m.applySnapshot(coll, path, snap)
			return
		}
		us.apply(func() { m.applySnapshot(coll, path, snap) })
	})
}

func (m *Manager) applySnapshot(coll cache.Collection, path string, snap remote.Snapshot) bool {
	if err := m.cache.ApplySnapshot(coll, snap); err != nil {
		m.logger.Error("failed to apply snapshot",
			slog.String("collection", string(coll)),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}
	m.metrics.SnapshotApplied(string(coll))
	return true
}

func (m *Manager) subscribe(path string, fn remote.Listener) (remote.Unsubscribe, error) {
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	unsub, err := m.remote.Subscribe(ctx, path, fn)
	if err != nil {
		return nil, err
	}
	m.metrics.SubscriptionOpened()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			m.metrics.SubscriptionClosed()
		})
	}, nil
}

func (m *Manager) closeAll(unsubs []remote.Unsubscribe) {
	for _, unsub := range unsubs {
		unsub()
	}
}
