package view

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/remote"
)

// maxParallelReads bounds concurrent point reads during hydration.
const maxParallelReads = 8

// hydrate makes sure every id has a cached record, reading missing ones from
// the given collections in order. Ids that exist nowhere stay missing; read
// failures are logged and treated as missing. It reports how many records it added.
func (r *Resolver) hydrate(ctx context.Context, ids []string, from ...cache.Collection) int {
	var missing []string
	for _, workID := range ids {
		if _, ok := r.cache.Work(workID); !ok {
			missing = append(missing, workID)
		}
	}
	if len(missing) == 0 {
		return 0
	}

	found := make([]bool, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, workID := range missing {
		g.Go(func() error {
			found[i] = r.fetchOne(gctx, workID, from)
			return nil
		})
	}
	_ = g.Wait()

	added := 0
	for _, ok := range found {
		if ok {
			added++
		}
	}
	r.logger.Debug("hydrated records",
		slog.Int("requested", len(missing)),
		slog.Int("found", added))
	return added
}

func (r *Resolver) fetchOne(ctx context.Context, workID string, from []cache.Collection) bool {
	for _, coll := range from {
		snap, err := r.remote.Get(ctx, remote.Join(string(coll), workID))
		if err != nil {
			r.metrics.Hydrated("error")
			r.logger.Warn("failed to fetch record",
				slog.String("collection", string(coll)),
				slog.String("id", workID),
				slog.String("error", err.Error()))
			return false
		}
		if !snap.Exists() {
			continue
		}
		w := &domain.Work{}
		if err := snap.Decode(w); err != nil {
			r.metrics.Hydrated("error")
			r.logger.Warn("failed to decode record", slog.String("id", workID), slog.String("error", err.Error()))
			return false
		}
		if err := r.cache.ApplyPointUpdate(coll, workID, w); err != nil {
			r.logger.Error("failed to cache record", slog.String("id", workID), slog.String("error", err.Error()))
			return false
		}
		r.metrics.Hydrated("found")
		return true
	}
	r.metrics.Hydrated("missing")
	return false
}
