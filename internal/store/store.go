// Package store is a badger-backed implementation of the remote document database.
//
// Paths are split into a document key (the first two segments, e.g. "works/RJ01234567")
// and a field path inside that document's JSON. A one-segment path addresses the whole
// collection. Writes that leave a document empty delete it.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/id"
	"github.com/shareboard/shareboard/internal/remote"
)

// maxTxnRetries bounds how often a conflicting transaction is re-run.
const maxTxnRetries = 25

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	hub    *hub
	now    func() time.Time
}

var _ remote.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for server timestamps and push keys.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens (or creates) the document store at path.
func New(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil
	bopts.SyncWrites = true
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s, logger)

	logger.Info("document store opened", "path", path)
	return s, nil
}

// Close stops every subscription and closes the database.
func (s *Store) Close() error {
	s.hub.closeAll()
	s.logger.Info("closing document store")
	return s.db.Close()
}

// Get reads the value at path once.
func (s *Store) Get(ctx context.Context, path string) (remote.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return remote.Snapshot{}, err
	}
	segs, err := splitPath(path)
	if err != nil {
		return remote.Snapshot{}, err
	}

	var raw []byte
	err = s.db.View(func(txn *badger.Txn) error {
		node, err := readNode(txn, segs)
		if err != nil {
			return err
		}
		raw, err = encodeNode(node)
		return err
	})
	if err != nil {
		return remote.Snapshot{}, fmt.Errorf("get %s: %w", path, err)
	}
	return remote.NewSnapshot(path, raw), nil
}

// Set writes value at path. A nil value deletes.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Update applies every path write in a single badger transaction.
// Paths may not overlap: no path may be an ancestor of another.
func (s *Store) Update(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	writes, err := s.prepareWrites(values)
	if err != nil {
		return err
	}

	err = s.retry(ctx, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			for _, w := range writes {
				if err := writeNode(txn, w.segs, w.value); err != nil {
					return fmt.Errorf("write %s: %w", w.path, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	changed := make([][]string, 0, len(writes))
	for _, w := range writes {
		changed = append(changed, w.segs)
	}
	s.hub.publish(changed...)
	return nil
}

// Push appends value under collection with a time-ordered key.
func (s *Store) Push(ctx context.Context, collection string, value any) (string, error) {
	key, err := id.PushKey(s.now())
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, remote.Join(collection, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// RunTransaction re-runs fn against the current value until it commits without a
// conflicting concurrent write, then returns the committed value.
func (s *Store) RunTransaction(ctx context.Context, path string, fn remote.TxnFunc) (remote.Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return remote.Snapshot{}, err
	}

	var committed, current []byte
	var aborted bool

	err = s.retry(ctx, func() error {
		aborted = false
		return s.db.Update(func(txn *badger.Txn) error {
			node, err := readNode(txn, segs)
			if err != nil {
				return err
			}
			current, err = encodeNode(node)
			if err != nil {
				return err
			}

			next, err := fn(remote.NewSnapshot(path, current))
			if errors.Is(err, remote.ErrAbort) {
				aborted = true
				return nil
			}
			if err != nil {
				return err
			}

			value, err := s.toNode(next)
			if err != nil {
				return err
			}
			if err := writeNode(txn, segs, value); err != nil {
				return err
			}
			committed, err = encodeNode(value)
			return err
		})
	})
	if err != nil {
		return remote.Snapshot{}, fmt.Errorf("transaction %s: %w", path, err)
	}
	if aborted {
		return remote.NewSnapshot(path, current), remote.ErrAbort
	}

	s.hub.publish(segs)
	return remote.NewSnapshot(path, committed), nil
}

// retry runs op until it stops failing with badger.ErrConflict.
func (s *Store) retry(ctx context.Context, op func() error) error {
	for attempt := range maxTxnRetries {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op()
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("transaction conflict, retrying", "attempt", attempt+1)
	}
	return remote.ErrTooManyRetries
}

type pathWrite struct {
	path  string
	segs  []string
	value any
}

func (s *Store) prepareWrites(values map[string]any) ([]pathWrite, error) {
	writes := make([]pathWrite, 0, len(values))
	for path, v := range values {
		segs, err := splitPath(path)
		if err != nil {
			return nil, err
		}
		node, err := s.toNode(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", path, err)
		}
		writes = append(writes, pathWrite{path: path, segs: segs, value: node})
	}

	for i := range writes {
		for j := range writes {
			if i != j && isAncestor(writes[i].segs, writes[j].segs) {
				return nil, domainerrors.Validationf("overlapping update paths %q and %q", writes[i].path, writes[j].path)
			}
		}
	}
	return writes, nil
}

func splitPath(path string) ([]string, error) {
	segs := remote.Split(path)
	if len(segs) == 0 {
		return nil, domainerrors.Validationf("invalid path %q", path)
	}
	return segs, nil
}
