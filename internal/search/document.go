// Package search indexes tags and works in memory with Bleve for the tag
// filter panel and the title search box.
package search

import (
	"slices"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/normalize"
)

// DocType discriminates documents in the shared index.
type DocType string

// Document types.
const (
	DocTypeTag  DocType = "tag"
	DocTypeWork DocType = "work"
)

// Document is what gets indexed. Tags and works share one index so a single
// query can return both.
type Document struct {
	ID   string
	Type DocType

	// Name is the tag name or work title, analyzed for full-text search.
	Name string
	// Key is Name folded with normalize.SearchKey, matched as a substring.
	Key string

	// Tags only.
	Category     string
	CategoryName string

	// Works only.
	Collection string
	TagIDs     []string
	Timestamp  int64
}

// group names the set a document is replaced with: all tags, or the works of
// one collection.
func (d *Document) group() string {
	if d.Type == DocTypeWork {
		return string(d.Type) + "/" + d.Collection
	}
	return string(d.Type)
}

// docID keeps ids unique across groups; the same work id can exist in works
// and in admin picks.
func (d *Document) docID() string {
	return d.group() + ":" + d.ID
}

// ToMap converts the document to the field names the mapping uses.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":   d.ID,
		"type": string(d.Type),
		"name": d.Name,
		"key":  d.Key,
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	if d.CategoryName != "" {
		m["category_name"] = d.CategoryName
	}
	if d.Collection != "" {
		m["collection"] = d.Collection
	}
	if len(d.TagIDs) > 0 {
		m["tags"] = d.TagIDs
	}
	if d.Timestamp > 0 {
		m["timestamp"] = d.Timestamp
	}
	return m
}

// TagDocument converts a tag; categoryName may be empty.
func TagDocument(t *domain.Tag, categoryName string) *Document {
	return &Document{
		ID:           t.ID,
		Type:         DocTypeTag,
		Name:         t.Name,
		Key:          normalize.SearchKey(t.Name),
		Category:     t.Category,
		CategoryName: categoryName,
	}
}

// WorkDocument converts a work from the given collection.
func WorkDocument(w *domain.Work, collection string) *Document {
	tagIDs := make([]string, 0, len(w.Tags))
	for tagID := range w.Tags {
		tagIDs = append(tagIDs, tagID)
	}
	slices.Sort(tagIDs)

	return &Document{
		ID:         w.ID,
		Type:       DocTypeWork,
		Name:       w.Title,
		Key:        normalize.SearchKey(w.Title),
		Collection: collection,
		TagIDs:     tagIDs,
		Timestamp:  w.Timestamp,
	}
}
