package view

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/state"
)

// ErrListNotFound is returned when a shared list id does not resolve.
var ErrListNotFound = domainerrors.NotFound("list not found")

// resolveMyList pages through the active list, selecting the oldest owned list
// when none is active yet.
func (r *Resolver) resolveMyList(ctx context.Context, page, size int) (*Page, error) {
	listID := r.state.ActiveList()
	if listID == "" || !r.cache.OwnsList(listID) {
		listID = ""
		if mine := r.cache.MyLists(); len(mine) > 0 {
			listID = mine[0].ID
		}
		r.state.SetActiveList(listID)
	}
	if listID == "" {
		return &Page{View: domain.ViewMyList, Number: 1, TotalPages: 1, PageSize: size, Items: []Item{}, Strategy: StrategyList}, nil
	}
	return r.resolveList(ctx, domain.ViewMyList, listID, page, size), nil
}

func (r *Resolver) resolvePublicList(ctx context.Context, page, size int) (*Page, error) {
	route := r.state.Route()
	if route.Screen != domain.ScreenPublicList {
		return nil, domainerrors.Validation("no shared list is open")
	}
	if _, ok := r.cache.List(route.ListID); !ok {
		return nil, ErrListNotFound
	}
	return r.resolveList(ctx, domain.ViewPublicList, route.ListID, page, size), nil
}

// resolveList pages through one list's items, newest first. Only the requested
// page's records are fetched.
func (r *Resolver) resolveList(ctx context.Context, v domain.View, listID string, page, size int) *Page {
	items := domain.SortItemsNewestFirst(r.cache.ListItems(listID))
	ids := make([]string, len(items))
	addedAt := make(map[string]int64, len(items))
	for i, item := range items {
		ids[i] = item.WorkID
		addedAt[item.WorkID] = item.AddedAt
	}

	total := TotalPages(len(ids), size)
	number := Clamp(page, total)
	start, end := bounds(number, size, len(ids))
	r.hydrate(ctx, ids[start:end], cache.Works, cache.AdminPicks)
	r.markWarm(v)

	p := r.slice(v, ids, number, size, StrategyList, addedAt)
	p.ListID = listID
	return p
}

// LoadPublicList reads a shared list and its items into the cache and opens it.
// An unknown id raises a notification and returns to the main screen.
func (r *Resolver) LoadPublicList(ctx context.Context, listID string) (*domain.List, error) {
	if listID == "" {
		return nil, domainerrors.Validation("list id is required")
	}

	listSnap, err := r.remote.Get(ctx, remote.Join(remote.PathLists, listID))
	if err != nil {
		return nil, domainerrors.Transient(err, "failed to load list")
	}
	if !listSnap.Exists() {
		r.logger.Info("shared list not found", slog.String("list_id", listID))
		r.emitter.Emit(sse.NewNotificationEvent("", sse.LevelError, "list not found"))
		r.state.Navigate(state.MainRoute)
		return nil, ErrListNotFound
	}

	itemsSnap, err := r.remote.Get(ctx, remote.Join(remote.PathListItems, listID))
	if err != nil {
		return nil, domainerrors.Transient(err, "failed to load list items")
	}

	if err := r.cache.ApplySnapshot(cache.Lists, listSnap); err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	if err := r.cache.ApplySnapshot(cache.ListItems, itemsSnap); err != nil {
		return nil, fmt.Errorf("cache list items: %w", err)
	}

	list, _ := r.cache.List(listID)
	r.state.Navigate(state.Route{Screen: domain.ScreenPublicList, ListID: listID})

	r.logger.Debug("shared list loaded",
		slog.String("list_id", listID),
		slog.Int("items", len(r.cache.ListItems(listID))))
	return list, nil
}

// Open navigates to route, loading a shared list first when the route names one.
// It returns the route actually shown.
func (r *Resolver) Open(ctx context.Context, route state.Route) (state.Route, error) {
	if route.Screen == domain.ScreenPublicList {
		if _, err := r.LoadPublicList(ctx, route.ListID); err != nil {
			return r.state.Route(), err
		}
		return r.state.Route(), nil
	}
	return r.state.Navigate(route), nil
}
