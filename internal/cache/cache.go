// Package cache holds the latest known state of every remote collection the
// client reads. It is written only through ApplySnapshot and ApplyPointUpdate.
package cache

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
)

// Collection names a cached collection.
type Collection string

// Cached collections.
const (
	Works      Collection = "works"
	AdminPicks Collection = "adminPicks"
	Tags       Collection = "tags"
	Categories Collection = "categories"
	// Favorites is scoped to the signed-in user (userFavorites/{uid}).
	Favorites Collection = "favorites"
	// MyLists is the set of list ids the signed-in user owns (userLists/{uid}).
	MyLists Collection = "myLists"
	// Lists and ListItems are scoped to one list id.
	Lists     Collection = "lists"
	ListItems Collection = "listItems"
)

// Change describes one applied snapshot.
type Change struct {
	Collection Collection
	// Scope is the list id for Lists and ListItems, the user id for Favorites
	// and MyLists, and empty otherwise.
	Scope string
}

// Listener is called synchronously after a snapshot has been applied.
type Listener func(Change)

// Cache is the client-side copy of the remote collections.
// Records handed out by the cache are shared and must be treated as read-only.
type Cache struct {
	mu sync.RWMutex

	works      map[string]*domain.Work
	adminPicks map[string]*domain.Work
	tags       map[string]*domain.Tag
	tagsByName map[string]*domain.Tag
	categories map[string]*domain.Category
	favorites  map[string]int64
	myLists    map[string]bool
	lists      map[string]*domain.List
	listItems  map[string]map[string]int64
	loaded     map[Collection]bool

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int

	emitter sse.Emitter
	logger  *slog.Logger
}

// New creates an empty cache.
func New(emitter sse.Emitter, logger *slog.Logger) *Cache {
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		works:      make(map[string]*domain.Work),
		adminPicks: make(map[string]*domain.Work),
		tags:       make(map[string]*domain.Tag),
		tagsByName: make(map[string]*domain.Tag),
		categories: make(map[string]*domain.Category),
		favorites:  make(map[string]int64),
		myLists:    make(map[string]bool),
		lists:      make(map[string]*domain.List),
		listItems:  make(map[string]map[string]int64),
		loaded:     make(map[Collection]bool),
		listeners:  make(map[int]Listener),
		emitter:    emitter,
		logger:     logger,
	}
}

// OnChange registers fn for every applied snapshot and returns its removal func.
func (c *Cache) OnChange(fn Listener) func() {
	c.listenersMu.Lock()
	c.nextID++
	key := c.nextID
	c.listeners[key] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, key)
		c.listenersMu.Unlock()
	}
}

// ApplySnapshot replaces the whole mapping for coll with the snapshot's content.
// An absent snapshot empties the mapping. Listeners run on the calling goroutine
// before ApplySnapshot returns.
func (c *Cache) ApplySnapshot(coll Collection, snap remote.Snapshot) error {
	change := Change{Collection: coll}
	var count int

	switch coll {
	case Works, AdminPicks:
		works, err := decodeWorks(snap)
		if err != nil {
			return err
		}
		c.mu.Lock()
		if coll == Works {
			c.works = works
		} else {
			c.adminPicks = works
		}
		c.loaded[coll] = true
		c.mu.Unlock()
		count = len(works)

	case Tags:
		tags, err := remote.DecodeChildren[domain.Tag](snap)
		if err != nil {
			return err
		}
		byName := make(map[string]*domain.Tag, len(tags))
		for tagID, t := range tags {
			t.ID = tagID
			byName[t.Name] = t
		}
		c.mu.Lock()
		c.tags = tags
		c.tagsByName = byName
		c.loaded[coll] = true
		c.mu.Unlock()
		count = len(tags)

	case Categories:
		cats, err := remote.DecodeChildren[domain.Category](snap)
		if err != nil {
			return err
		}
		for catID, cat := range cats {
			cat.ID = catID
		}
		c.mu.Lock()
		c.categories = cats
		c.loaded[coll] = true
		c.mu.Unlock()
		count = len(cats)

	case Favorites:
		favs := make(map[string]int64)
		if err := decodeIfExists(snap, &favs); err != nil {
			return err
		}
		change.Scope = snap.Key()
		c.mu.Lock()
		c.favorites = favs
		c.loaded[coll] = true
		c.mu.Unlock()
		count = len(favs)

	case MyLists:
		owned := make(map[string]bool)
		if err := decodeIfExists(snap, &owned); err != nil {
			return err
		}
		change.Scope = snap.Key()
		c.mu.Lock()
		for listID := range c.myLists {
			if !owned[listID] {
				delete(c.lists, listID)
				delete(c.listItems, listID)
			}
		}
		c.myLists = owned
		c.loaded[coll] = true
		c.mu.Unlock()
		count = len(owned)

	case Lists:
		change.Scope = snap.Key()
		var list *domain.List
		if snap.Exists() {
			list = &domain.List{}
			if err := snap.Decode(list); err != nil {
				return err
			}
			list.ID = snap.Key()
		}
		c.mu.Lock()
		if list == nil {
			delete(c.lists, change.Scope)
		} else {
			c.lists[change.Scope] = list
			count = 1
		}
		c.mu.Unlock()

	case ListItems:
		change.Scope = snap.Key()
		items, err := decodeListItems(snap)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.listItems[change.Scope] = items
		c.mu.Unlock()
		count = len(items)

	default:
		return domainerrors.Validationf("unknown collection %q", coll)
	}

	c.logger.Debug("snapshot applied",
		slog.String("collection", string(coll)),
		slog.String("scope", change.Scope),
		slog.Int("count", count))

	c.notify(change)
	c.emitter.Emit(sse.NewCollectionChangedEvent(string(coll), change.Scope, count))
	return nil
}

// ApplyPointUpdate upserts or deletes (nil record) one entity without notifying
// listeners. Record types per collection: *domain.Work for Works and AdminPicks,
// *domain.Tag, *domain.Category, *domain.List, int64 timestamps for Favorites and
// ListItems (id "listId/workId", or a bare list id with nil to drop the whole
// list), and bool for MyLists.
func (c *Cache) ApplyPointUpdate(coll Collection, id string, record any) error {
	if id == "" {
		return domainerrors.Validation("point update requires an id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch coll {
	case Works, AdminPicks:
		target := c.works
		if coll == AdminPicks {
			target = c.adminPicks
		}
		if record == nil {
			delete(target, id)
			return nil
		}
		w, ok := record.(*domain.Work)
		if !ok || w == nil {
			return recordTypeError(coll, record)
		}
		w.ID = id
		target[id] = w

	case Tags:
		if old, ok := c.tags[id]; ok {
			delete(c.tagsByName, old.Name)
		}
		if record == nil {
			delete(c.tags, id)
			return nil
		}
		t, ok := record.(*domain.Tag)
		if !ok || t == nil {
			return recordTypeError(coll, record)
		}
		t.ID = id
		c.tags[id] = t
		c.tagsByName[t.Name] = t

	case Categories:
		if record == nil {
			delete(c.categories, id)
			return nil
		}
		cat, ok := record.(*domain.Category)
		if !ok || cat == nil {
			return recordTypeError(coll, record)
		}
		cat.ID = id
		c.categories[id] = cat

	case Favorites:
		if record == nil {
			delete(c.favorites, id)
			return nil
		}
		ts, ok := record.(int64)
		if !ok {
			return recordTypeError(coll, record)
		}
		c.favorites[id] = ts

	case MyLists:
		if record == nil {
			delete(c.myLists, id)
			return nil
		}
		if _, ok := record.(bool); !ok {
			return recordTypeError(coll, record)
		}
		c.myLists[id] = true

	case Lists:
		if record == nil {
			delete(c.lists, id)
			return nil
		}
		list, ok := record.(*domain.List)
		if !ok || list == nil {
			return recordTypeError(coll, record)
		}
		list.ID = id
		c.lists[id] = list

	case ListItems:
		listID, workID, ok := strings.Cut(id, "/")
		if !ok && record == nil {
			delete(c.listItems, id)
			return nil
		}
		if !ok || listID == "" || workID == "" {
			return domainerrors.Validationf("list item id %q must be listId/workId", id)
		}
		items := c.listItems[listID]
		if record == nil {
			delete(items, workID)
			return nil
		}
		addedAt, ok := record.(int64)
		if !ok {
			return recordTypeError(coll, record)
		}
		if items == nil {
			items = make(map[string]int64)
			c.listItems[listID] = items
		}
		items[workID] = addedAt

	default:
		return domainerrors.Validationf("unknown collection %q", coll)
	}
	return nil
}

// ClearUser empties the user-scoped collections on logout. Catalog data is kept.
func (c *Cache) ClearUser() {
	for _, coll := range []Collection{Favorites, MyLists} {
		if err := c.ApplySnapshot(coll, remote.Snapshot{}); err != nil {
			c.logger.Error("failed to clear user collection",
				slog.String("collection", string(coll)),
				slog.String("error", err.Error()))
		}
	}
	c.mu.Lock()
	c.loaded[Favorites] = false
	c.loaded[MyLists] = false
	c.mu.Unlock()
}

func (c *Cache) notify(change Change) {
	c.listenersMu.RLock()
	keys := slices.Sorted(maps.Keys(c.listeners))
	fns := make([]Listener, 0, len(keys))
	for _, k := range keys {
		fns = append(fns, c.listeners[k])
	}
	c.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

func decodeWorks(snap remote.Snapshot) (map[string]*domain.Work, error) {
	works, err := remote.DecodeChildren[domain.Work](snap)
	if err != nil {
		return nil, err
	}
	for workID, w := range works {
		w.ID = workID
	}
	return works, nil
}

func decodeListItems(snap remote.Snapshot) (map[string]int64, error) {
	raw := make(map[string]struct {
		AddedAt int64 `json:"addedAt"`
	})
	if err := decodeIfExists(snap, &raw); err != nil {
		return nil, err
	}
	items := make(map[string]int64, len(raw))
	for workID, item := range raw {
		items[workID] = item.AddedAt
	}
	return items, nil
}

func decodeIfExists(snap remote.Snapshot, v any) error {
	if !snap.Exists() {
		return nil
	}
	return snap.Decode(v)
}

func recordTypeError(coll Collection, record any) error {
	return domainerrors.Validationf("unexpected record %T for collection %s", record, coll)
}

// sortedKeys returns m's keys in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
