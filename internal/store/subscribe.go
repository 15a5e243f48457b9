package store

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/shareboard/shareboard/internal/remote"
)

// subscription is one live listener on a path. Each runs its own goroutine, so
// deliveries to one listener are serialized while different listeners proceed independently.
type subscription struct {
	id     uint64
	path   string
	segs   []string
	fn     remote.Listener
	notify chan struct{} // capacity 1; a pending signal coalesces further writes
	done   chan struct{}
	once   sync.Once
}

func (sub *subscription) stop() {
	sub.once.Do(func() { close(sub.done) })
}

// hub tracks subscriptions and wakes the ones a write touches.
type hub struct {
	store  *Store
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool

	wg sync.WaitGroup
}

func newHub(s *Store, logger *slog.Logger) *hub {
	return &hub{
		store:  s,
		logger: logger,
		subs:   make(map[uint64]*subscription),
	}
}

// Subscribe delivers the current value at path, then the full value again after
// every write at, above, or below it. Unchanged values are not redelivered.
func (s *Store) Subscribe(ctx context.Context, path string, fn remote.Listener) (remote.Unsubscribe, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	return s.hub.add(ctx, path, segs, fn)
}

// SubscriptionCount returns the number of live subscriptions.
func (s *Store) SubscriptionCount() int {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return len(s.hub.subs)
}

func (h *hub) add(ctx context.Context, path string, segs []string, fn remote.Listener) (remote.Unsubscribe, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, context.Canceled
	}
	h.nextID++
	sub := &subscription{
		id:     h.nextID,
		path:   path,
		segs:   segs,
		fn:     fn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.subs[sub.id] = sub
	total := len(h.subs)
	h.mu.Unlock()

	// Initial delivery.
	sub.notify <- struct{}{}

	h.wg.Add(1)
	go h.run(ctx, sub)

	h.logger.Debug("subscription added", slog.String("path", path), slog.Int("total_subscriptions", total))

	return func() { h.remove(sub) }, nil
}

func (h *hub) remove(sub *subscription) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()
	sub.stop()
}

func (h *hub) run(ctx context.Context, sub *subscription) {
	defer h.wg.Done()

	var last []byte
	delivered := false

	for {
		select {
		case <-sub.notify:
			// A closed subscription must not deliver even if a signal was pending.
			select {
			case <-sub.done:
				return
			default:
			}

			snap, err := h.store.Get(ctx, sub.path)
			if err != nil {
				if ctx.Err() == nil {
					h.logger.Warn("subscription read failed",
						slog.String("path", sub.path),
						slog.String("error", err.Error()))
				}
				continue
			}
			if delivered && bytes.Equal(last, snap.Raw()) {
				continue
			}
			last = snap.Raw()
			delivered = true
			sub.fn(snap)

		case <-sub.done:
			return

		case <-ctx.Done():
			h.remove(sub)
			return
		}
	}
}

// publish wakes every subscription related to one of the changed paths.
func (h *hub) publish(changed ...[]string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		for _, segs := range changed {
			if !related(sub.segs, segs) {
				continue
			}
			select {
			case sub.notify <- struct{}{}:
			default:
			}
			break
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[uint64]*subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	h.wg.Wait()
}
