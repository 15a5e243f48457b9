package mutation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/id"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
)

// copySuffix is appended to the name of an imported list.
const copySuffix = " (コピー)"

// MembershipResult is a list's state after adding or removing a work.
type MembershipResult struct {
	ListID string `json:"listId"`
	WorkID string `json:"workId"`
	InList bool   `json:"inList"`
	Count  int    `json:"count"`
}

// ImportResult describes a list copied from another owner.
type ImportResult struct {
	List      *domain.List `json:"list"`
	Imported  int          `json:"imported"`
	Truncated bool         `json:"truncated,omitzero"`
}

// SetListMembership puts workID into listID or takes it out. Adding to a full
// list is rejected without writing.
func (c *Coordinator) SetListMembership(ctx context.Context, listID, workID string, in bool) (*MembershipResult, error) {
	if _, err := c.requireUser(KindMembership); err != nil {
		return nil, err
	}
	if err := c.ownedList(KindMembership, listID); err != nil {
		return nil, err
	}
	if workID == "" {
		return nil, domainerrors.Validation("work id is required")
	}

	items := c.cache.ListItems(listID)
	priorAt, had := items[workID]
	if had == in {
		return &MembershipResult{ListID: listID, WorkID: workID, InList: in, Count: len(items)}, nil
	}
	if in && len(items) >= c.limits.MaxItemsPerList {
		return nil, c.rejectCapacity(KindMembership,
			fmt.Sprintf("a list can hold up to %d works", c.limits.MaxItemsPerList))
	}

	itemKey := listID + "/" + workID
	path := remote.Join(remote.PathListItems, listID, workID)
	var err error
	if in {
		c.pointItem(itemKey, c.now().UnixMilli())
		err = c.remote.Set(ctx, path, map[string]any{"addedAt": remote.ServerTimestamp})
	} else {
		c.pointItem(itemKey, nil)
		err = remote.Remove(ctx, c.remote, path)
	}
	if err != nil {
		if in {
			c.pointItem(itemKey, nil)
		} else {
			c.pointItem(itemKey, priorAt)
		}
		return nil, c.fail(KindMembership, itemKey, err, "failed to update list")
	}

	c.committed(KindMembership, itemKey)
	if !in {
		c.notify(sse.LevelSuccess, "removed from list")
	}
	return &MembershipResult{
		ListID: listID,
		WorkID: workID,
		InList: in,
		Count:  len(c.cache.ListItems(listID)),
	}, nil
}

// ToggleListMembership flips whether workID is in listID.
func (c *Coordinator) ToggleListMembership(ctx context.Context, listID, workID string) (*MembershipResult, error) {
	_, in := c.cache.ListItems(listID)[workID]
	return c.SetListMembership(ctx, listID, workID, !in)
}

// CreateList creates an empty list owned by the signed-in user and makes it
// the active list. The list record and its owner pointer land in one write.
func (c *Coordinator) CreateList(ctx context.Context, name string) (*domain.List, error) {
	user, err := c.requireUser(KindCreateList)
	if err != nil {
		return nil, err
	}
	name, err = c.validator.ListName(name)
	if err != nil {
		c.metrics.Mutation(KindCreateList, outcomeRejected)
		return nil, err
	}
	if err := c.checkListCap(KindCreateList); err != nil {
		return nil, err
	}

	list, err := c.writeList(ctx, KindCreateList, user, name, nil)
	if err != nil {
		return nil, err
	}
	c.notify(sse.LevelSuccess, fmt.Sprintf("created list %q", list.Name))
	return list, nil
}

// RenameList changes a list's name.
func (c *Coordinator) RenameList(ctx context.Context, listID, name string) (*domain.List, error) {
	if _, err := c.requireUser(KindRenameList); err != nil {
		return nil, err
	}
	if err := c.ownedList(KindRenameList, listID); err != nil {
		return nil, err
	}
	name, err := c.validator.ListName(name)
	if err != nil {
		c.metrics.Mutation(KindRenameList, outcomeRejected)
		return nil, err
	}

	prior, cached := c.cache.List(listID)
	if cached {
		renamed := *prior
		renamed.Name = name
		c.pointList(listID, &renamed)
	}

	if err := c.remote.Set(ctx, remote.Join(remote.PathLists, listID, "name"), name); err != nil {
		if cached {
			restored := *prior
			c.pointList(listID, &restored)
		}
		return nil, c.fail(KindRenameList, listID, err, "failed to rename list")
	}

	c.committed(KindRenameList, listID)
	c.notify(sse.LevelSuccess, "list renamed")
	list, _ := c.cache.List(listID)
	return list, nil
}

// DeleteList removes a list, its items and the owner's pointer to it in a
// single multi-path write.
func (c *Coordinator) DeleteList(ctx context.Context, listID string) error {
	user, err := c.requireUser(KindDeleteList)
	if err != nil {
		return err
	}
	if err := c.ownedList(KindDeleteList, listID); err != nil {
		return err
	}

	err = c.remote.Update(ctx, map[string]any{
		remote.Join(remote.PathLists, listID):              nil,
		remote.Join(remote.PathListItems, listID):          nil,
		remote.Join(remote.PathUserLists, user.UID, listID): nil,
	})
	if err != nil {
		return c.fail(KindDeleteList, listID, err, "failed to delete list")
	}

	c.pointList(listID, nil)
	if err := c.cache.ApplyPointUpdate(cache.ListItems, listID, nil); err != nil {
		c.logger.Error("failed to drop list items", slog.String("list_id", listID), slog.String("error", err.Error()))
	}
	if err := c.cache.ApplyPointUpdate(cache.MyLists, listID, nil); err != nil {
		c.logger.Error("failed to drop list pointer", slog.String("list_id", listID), slog.String("error", err.Error()))
	}
	if c.state.ActiveList() == listID {
		c.state.SetActiveList("")
	}

	c.committed(KindDeleteList, listID)
	c.notify(sse.LevelSuccess, "list deleted")
	return nil
}

// ImportList copies another list into a new list owned by the signed-in user,
// named after the source with a copy suffix. Items beyond the per-list cap are
// dropped, newest kept, with a warning.
func (c *Coordinator) ImportList(ctx context.Context, sourceID string) (*ImportResult, error) {
	user, err := c.requireUser(KindImportList)
	if err != nil {
		return nil, err
	}
	if sourceID == "" {
		return nil, domainerrors.Validation("list id is required")
	}
	if err := c.checkListCap(KindImportList); err != nil {
		return nil, err
	}

	listSnap, err := c.remote.Get(ctx, remote.Join(remote.PathLists, sourceID))
	if err != nil {
		return nil, c.fail(KindImportList, sourceID, err, "failed to import list")
	}
	if !listSnap.Exists() {
		c.metrics.Mutation(KindImportList, outcomeNotFound)
		c.notify(sse.LevelError, "list not found")
		return nil, domainerrors.NotFound("list not found")
	}
	var source domain.List
	if err := listSnap.Decode(&source); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to decode list")
	}

	itemsSnap, err := c.remote.Get(ctx, remote.Join(remote.PathListItems, sourceID))
	if err != nil {
		return nil, c.fail(KindImportList, sourceID, err, "failed to import list")
	}
	type itemRecord struct {
		AddedAt int64 `json:"addedAt"`
	}
	records, err := remote.DecodeChildren[itemRecord](itemsSnap)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to decode list items")
	}
	byWork := make(map[string]int64, len(records))
	for workID, rec := range records {
		byWork[workID] = rec.AddedAt
	}
	items := domain.SortItemsNewestFirst(byWork)

	truncated := len(items) > c.limits.MaxItemsPerList
	if truncated {
		items = items[:c.limits.MaxItemsPerList]
		c.notify(sse.LevelWarning, fmt.Sprintf(
			"the source list exceeds %d works; only the first %d were imported",
			c.limits.MaxItemsPerList, c.limits.MaxItemsPerList))
	}

	list, err := c.writeList(ctx, KindImportList, user, source.Name+copySuffix, items)
	if err != nil {
		return nil, err
	}
	c.notify(sse.LevelSuccess, fmt.Sprintf("imported %q", list.Name))
	return &ImportResult{List: list, Imported: len(items), Truncated: truncated}, nil
}

func (c *Coordinator) checkListCap(kind string) error {
	if c.cache.MyListCount() >= c.limits.MaxLists {
		return c.rejectCapacity(kind,
			fmt.Sprintf("you can create up to %d lists", c.limits.MaxLists))
	}
	return nil
}

// writeList creates a list with optional items in one multi-path write and
// caches the result. Item timestamps are kept so the copy reads in the same order.
func (c *Coordinator) writeList(ctx context.Context, kind string, user *domain.User, name string, items []domain.ListItem) (*domain.List, error) {
	listID, err := id.PushKey(c.now())
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate list id")
	}

	updates := map[string]any{
		remote.Join(remote.PathLists, listID): map[string]any{
			"ownerId":   user.UID,
			"ownerName": user.DisplayName,
			"name":      name,
			"createdAt": remote.ServerTimestamp,
		},
		remote.Join(remote.PathUserLists, user.UID, listID): true,
	}
	for _, item := range items {
		updates[remote.Join(remote.PathListItems, listID, item.WorkID)] = map[string]any{"addedAt": item.AddedAt}
	}

	if err := c.remote.Update(ctx, updates); err != nil {
		return nil, c.fail(kind, listID, err, "failed to save list")
	}

	list := &domain.List{
		ID:        listID,
		OwnerID:   user.UID,
		OwnerName: user.DisplayName,
		Name:      name,
		CreatedAt: c.now().UnixMilli(),
	}
	c.pointList(listID, list)
	if err := c.cache.ApplyPointUpdate(cache.MyLists, listID, true); err != nil {
		c.logger.Error("failed to cache list pointer", slog.String("list_id", listID), slog.String("error", err.Error()))
	}
	for _, item := range items {
		c.pointItem(listID+"/"+item.WorkID, item.AddedAt)
	}
	c.state.SetActiveList(listID)

	c.committed(kind, listID)
	return list, nil
}

func (c *Coordinator) pointList(listID string, list *domain.List) {
	var record any
	if list != nil {
		record = list
	}
	if err := c.cache.ApplyPointUpdate(cache.Lists, listID, record); err != nil {
		c.logger.Error("failed to apply point update", "collection", cache.Lists, "id", listID, "error", err)
	}
}

func (c *Coordinator) pointItem(itemKey string, addedAt any) {
	if err := c.cache.ApplyPointUpdate(cache.ListItems, itemKey, addedAt); err != nil {
		c.logger.Error("failed to apply point update", "collection", cache.ListItems, "id", itemKey, "error", err)
	}
}
