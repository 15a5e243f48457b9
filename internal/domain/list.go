package domain

import (
	"cmp"
	"slices"
)

// Default per-owner caps.
const (
	DefaultMaxLists        = 10
	DefaultMaxItemsPerList = 100
)

// User is the signed-in identity handed over by the auth provider.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
}

// List is a user-curated, shareable collection of works.
type List struct {
	ID        string `json:"id,omitempty"`
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName,omitempty"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt,omitzero"`
}

// ListItem is one work in a list.
type ListItem struct {
	WorkID  string `json:"-"`
	AddedAt int64  `json:"addedAt"`
}

// SortItemsNewestFirst orders list items by AddedAt descending, then by work id.
func SortItemsNewestFirst(items map[string]int64) []ListItem {
	out := make([]ListItem, 0, len(items))
	for workID, addedAt := range items {
		out = append(out, ListItem{WorkID: workID, AddedAt: addedAt})
	}
	slices.SortFunc(out, func(a, b ListItem) int {
		if c := cmp.Compare(b.AddedAt, a.AddedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.WorkID, b.WorkID)
	})
	return out
}

// SortListsOldestFirst orders lists by creation time, then id.
func SortListsOldestFirst(lists []*List) {
	slices.SortFunc(lists, func(a, b *List) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Title     string `json:"title" validate:"max=200"`
	Content   string `json:"content" validate:"required,max=5000"`
	Timestamp any    `json:"timestamp"`
	IsRead    bool   `json:"isRead"`
}
