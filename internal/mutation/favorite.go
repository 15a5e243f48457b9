package mutation

import (
	"context"

	"github.com/shareboard/shareboard/internal/cache"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/remote"
)

// FavoriteResult is the favorite state after a toggle.
type FavoriteResult struct {
	CanonicalID string `json:"canonicalId"`
	Favorited   bool   `json:"favorited"`
}

// ToggleFavorite adds or removes canonicalID from the signed-in user's
// favorites. On failure the cached state is put back as it was.
func (c *Coordinator) ToggleFavorite(ctx context.Context, canonicalID string) (*FavoriteResult, error) {
	user, err := c.requireUser(KindFavorite)
	if err != nil {
		return nil, err
	}
	if canonicalID == "" {
		return nil, domainerrors.Validation("canonical id is required")
	}

	priorAt, had := c.cache.FavoriteAddedAt(canonicalID)
	if had {
		c.pointFavorite(canonicalID, nil)
	} else {
		c.pointFavorite(canonicalID, c.now().UnixMilli())
	}
	c.touched()

	path := remote.Join(remote.PathUserFavorites, user.UID, canonicalID)
	if had {
		err = remote.Remove(ctx, c.remote, path)
	} else {
		err = c.remote.Set(ctx, path, remote.ServerTimestamp)
	}
	if err != nil {
		if had {
			c.pointFavorite(canonicalID, priorAt)
		} else {
			c.pointFavorite(canonicalID, nil)
		}
		c.touched()
		return nil, c.fail(KindFavorite, canonicalID, err, "failed to update favorites")
	}

	c.committed(KindFavorite, canonicalID)
	return &FavoriteResult{CanonicalID: canonicalID, Favorited: !had}, nil
}

func (c *Coordinator) pointFavorite(canonicalID string, addedAt any) {
	if err := c.cache.ApplyPointUpdate(cache.Favorites, canonicalID, addedAt); err != nil {
		c.logger.Error("failed to apply point update", "collection", cache.Favorites, "id", canonicalID, "error", err)
	}
}
