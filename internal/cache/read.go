package cache

import (
	"maps"
	"strings"

	"github.com/shareboard/shareboard/internal/domain"
)

// Data is a consistent copy of the cache taken under one read lock. The maps are
// private to the copy; the records are shared.
type Data struct {
	Works      map[string]*domain.Work
	AdminPicks map[string]*domain.Work
	Tags       map[string]*domain.Tag
	Favorites  map[string]int64
	MyLists    map[string]bool
	Lists      map[string]*domain.List
	ListItems  map[string]map[string]int64
}

// Data returns a consistent copy for derivation.
func (c *Cache) Data() Data {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make(map[string]map[string]int64, len(c.listItems))
	for listID, m := range c.listItems {
		items[listID] = maps.Clone(m)
	}
	return Data{
		Works:      maps.Clone(c.works),
		AdminPicks: maps.Clone(c.adminPicks),
		Tags:       maps.Clone(c.tags),
		Favorites:  maps.Clone(c.favorites),
		MyLists:    maps.Clone(c.myLists),
		Lists:      maps.Clone(c.lists),
		ListItems:  items,
	}
}

// Merged returns works and admin picks in one map. Admin picks win on id clashes.
func (d Data) Merged() map[string]*domain.Work {
	all := make(map[string]*domain.Work, len(d.Works)+len(d.AdminPicks))
	maps.Copy(all, d.Works)
	maps.Copy(all, d.AdminPicks)
	return all
}

// Loaded reports whether a snapshot of coll has been applied since startup or logout.
func (c *Cache) Loaded(coll Collection) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded[coll]
}

// Work looks id up in admin picks, then works.
func (c *Cache) Work(id string) (*domain.Work, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if w, ok := c.adminPicks[id]; ok {
		return w, true
	}
	w, ok := c.works[id]
	return w, ok
}

// WorkIn looks id up in a single collection.
func (c *Cache) WorkIn(coll Collection, id string) (*domain.Work, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch coll {
	case Works:
		w, ok := c.works[id]
		return w, ok
	case AdminPicks:
		w, ok := c.adminPicks[id]
		return w, ok
	default:
		return nil, false
	}
}

// LookupCanonical resolves a canonical id against works and admin picks,
// falling back to a record whose page URL contains it.
func (c *Cache) LookupCanonical(canonicalID string) (*domain.Work, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookupCanonical(c.works, c.adminPicks, canonicalID)
}

// LookupCanonical is the Data counterpart of Cache.LookupCanonical.
func (d Data) LookupCanonical(canonicalID string) (*domain.Work, bool) {
	return lookupCanonical(d.Works, d.AdminPicks, canonicalID)
}

func lookupCanonical(works, picks map[string]*domain.Work, canonicalID string) (*domain.Work, bool) {
	if canonicalID == "" {
		return nil, false
	}
	if w, ok := picks[canonicalID]; ok {
		return w, true
	}
	if w, ok := works[canonicalID]; ok {
		return w, true
	}
	// Deterministic scan order so a URL matching several records always resolves the same way.
	for _, src := range []map[string]*domain.Work{picks, works} {
		for _, workID := range sortedKeys(src) {
			if strings.Contains(src[workID].PageURL, canonicalID) {
				return src[workID], true
			}
		}
	}
	return nil, false
}

// Tag returns a tag by id.
func (c *Cache) Tag(id string) (*domain.Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tags[id]
	return t, ok
}

// TagByName returns a tag by its display name.
func (c *Cache) TagByName(name string) (*domain.Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tagsByName[name]
	return t, ok
}

// Tags returns every cached tag.
func (c *Cache) Tags() []*domain.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Tag, 0, len(c.tags))
	for _, tagID := range sortedKeys(c.tags) {
		out = append(out, c.tags[tagID])
	}
	return out
}

// Categories returns every cached category ordered by id.
func (c *Cache) Categories() []*domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Category, 0, len(c.categories))
	for _, catID := range sortedKeys(c.categories) {
		out = append(out, c.categories[catID])
	}
	return out
}

// IsFavorite reports whether canonicalID is in the user's favorites.
func (c *Cache) IsFavorite(canonicalID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.favorites[canonicalID]
	return ok
}

// FavoriteAddedAt returns when canonicalID was favorited.
func (c *Cache) FavoriteAddedAt(canonicalID string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts, ok := c.favorites[canonicalID]
	return ts, ok
}

// FavoriteCount returns the number of favorites.
func (c *Cache) FavoriteCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.favorites)
}

// List returns a cached list by id.
func (c *Cache) List(id string) (*domain.List, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lists[id]
	return l, ok
}

// OwnsList reports whether the signed-in user owns listID.
func (c *Cache) OwnsList(listID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.myLists[listID]
}

// MyLists returns the user's lists whose records have arrived, oldest first.
func (c *Cache) MyLists() []*domain.List {
	c.mu.RLock()
	out := make([]*domain.List, 0, len(c.myLists))
	for listID := range c.myLists {
		if l, ok := c.lists[listID]; ok {
			out = append(out, l)
		}
	}
	c.mu.RUnlock()

	domain.SortListsOldestFirst(out)
	return out
}

// MyListCount returns how many lists the user owns.
func (c *Cache) MyListCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.myLists)
}

// ListItems returns a copy of listID's items (work id -> added-at).
func (c *Cache) ListItems(listID string) map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.listItems[listID])
}

// HasListItems reports whether items for listID have been cached.
func (c *Cache) HasListItems(listID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.listItems[listID]
	return ok
}

// ListsContaining returns the ids of the user's lists that contain workID.
func (c *Cache) ListsContaining(workID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, listID := range sortedKeys(c.myLists) {
		if _, ok := c.listItems[listID][workID]; ok {
			out = append(out, listID)
		}
	}
	return out
}
