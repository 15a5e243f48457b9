// Package index derives ordered work id sequences from the client cache.
// Every sequence is recomputed in full; nothing is patched incrementally.
package index

import (
	"cmp"
	"maps"
	"slices"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/state"
)

// Sequences are the unfiltered base orderings.
type Sequences struct {
	Ranking   []string
	Recency   []string
	Favorites []string
	Admin     map[domain.Genre][]string
}

// Build derives every base ordering from d.
func Build(d cache.Data) Sequences {
	return Sequences{
		Ranking:   Ranking(d.Works),
		Recency:   Recency(d.Works),
		Favorites: Favorites(d),
		Admin:     AdminByGenre(d.AdminPicks),
	}
}

// iterationOrder is the base order ties fall back to: ascending id.
func iterationOrder(works map[string]*domain.Work) []*domain.Work {
	out := make([]*domain.Work, 0, len(works))
	for _, id := range slices.Sorted(maps.Keys(works)) {
		out = append(out, works[id])
	}
	return out
}

func ids(works []*domain.Work) []string {
	out := make([]string, len(works))
	for i, w := range works {
		out[i] = w.ID
	}
	return out
}

// Ranking orders works by score, highest first. Equal scores keep iteration order.
func Ranking(works map[string]*domain.Work) []string {
	all := iterationOrder(works)
	slices.SortStableFunc(all, func(a, b *domain.Work) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ids(all)
}

// Recency orders works by creation time, newest first.
func Recency(works map[string]*domain.Work) []string {
	all := iterationOrder(works)
	slices.SortStableFunc(all, func(a, b *domain.Work) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return ids(all)
}

// Favorites resolves the user's favorite canonical ids against works and admin
// picks and orders the resolved records newest first. Unresolvable ids are dropped.
func Favorites(d cache.Data) []string {
	seen := make(map[string]bool, len(d.Favorites))
	resolved := make([]*domain.Work, 0, len(d.Favorites))
	for _, canonicalID := range slices.Sorted(maps.Keys(d.Favorites)) {
		w, ok := d.LookupCanonical(canonicalID)
		if !ok || seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		resolved = append(resolved, w)
	}
	slices.SortStableFunc(resolved, func(a, b *domain.Work) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return ids(resolved)
}

// AdminByGenre buckets admin picks by genre, each ordered by curation order.
func AdminByGenre(picks map[string]*domain.Work) map[domain.Genre][]string {
	all := iterationOrder(picks)
	slices.SortStableFunc(all, func(a, b *domain.Work) int {
		return cmp.Compare(domain.CurationOrder(a), domain.CurationOrder(b))
	})

	out := map[domain.Genre][]string{
		domain.GenreManga:   {},
		domain.GenreGame:    {},
		domain.GenreUnknown: {},
	}
	for _, w := range all {
		g := domain.Classify(w)
		if _, known := out[g]; !known {
			g = domain.GenreUnknown
		}
		out[g] = append(out[g], w.ID)
	}
	return out
}

// Apply composes the filters onto a base ordering for view. source resolves ids
// to records; ids it cannot resolve are treated as carrying no tags and no vote.
// Admin views are returned unchanged.
func Apply(view domain.View, base []string, source map[string]*domain.Work, f state.Filters) []string {
	out := slices.Clone(base)
	if view.IsAdmin() {
		return out
	}

	if f.HideBadlyRated && view.HidesBadlyRated() {
		out = slices.DeleteFunc(out, func(id string) bool {
			return source[id].VoteOf(f.ClientID) == domain.VoteDown
		})
	}

	if !f.Active() {
		return out
	}

	out = slices.DeleteFunc(out, func(id string) bool {
		return hasAny(source[id], f.Hide)
	})
	if len(f.Highlight) == 0 {
		return out
	}

	highlighted := make([]string, 0, len(out))
	others := make([]string, 0, len(out))
	for _, id := range out {
		if hasAny(source[id], f.Highlight) {
			highlighted = append(highlighted, id)
		} else {
			others = append(others, id)
		}
	}
	return append(highlighted, others...)
}

func hasAny(w *domain.Work, tagIDs map[string]bool) bool {
	if w == nil {
		return false
	}
	for tagID := range tagIDs {
		if w.HasTag(tagID) {
			return true
		}
	}
	return false
}
