package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/shareboard/shareboard/internal/normalize"
)

// maxTagHits bounds a tag search; the tag panel shows every match.
const maxTagHits = 2000

// TagQuery filters the tag panel.
type TagQuery struct {
	Text     string // substring of the tag name, case and width insensitive
	Category string // category id, empty for all
}

// TagHit is one matching tag.
type TagHit struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
}

// WorkQuery searches work titles.
type WorkQuery struct {
	Text   string
	TagIDs []string // every tag must be present
	Limit  int
	Offset int
}

// WorkHit is one matching work.
type WorkHit struct {
	ID         string  `json:"id"`
	Collection string  `json:"collection"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// WorkResult is a page of work hits.
type WorkResult struct {
	Total uint64    `json:"total"`
	Hits  []WorkHit `json:"hits"`
}

// Tags returns matching tags ordered by category, then name.
func (s *Index) Tags(ctx context.Context, q TagQuery) ([]TagHit, error) {
	queries := []query.Query{typeQuery(DocTypeTag)}
	if key := normalize.SearchKey(q.Text); key != "" {
		queries = append(queries, substringQuery(key))
	}
	if q.Category != "" {
		cq := bleve.NewTermQuery(q.Category)
		cq.SetField("category")
		queries = append(queries, cq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(queries...), maxTagHits, 0, false)
	req.SortBy([]string{"category", "key", "id"})
	req.Fields = []string{"id", "name", "category", "category_name"}

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}

	hits := make([]TagHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, TagHit{
			ID:           stringField(h.Fields, "id"),
			Name:         stringField(h.Fields, "name"),
			Category:     stringField(h.Fields, "category"),
			CategoryName: stringField(h.Fields, "category_name"),
		})
	}
	return hits, nil
}

// Works returns works whose titles match, best first.
func (s *Index) Works(ctx context.Context, q WorkQuery) (*WorkResult, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	queries := []query.Query{typeQuery(DocTypeWork)}
	if text := strings.TrimSpace(q.Text); text != "" {
		match := bleve.NewMatchQuery(text)
		match.SetField("name")
		match.SetBoost(2.0)

		queries = append(queries, bleve.NewDisjunctionQuery(match, substringQuery(normalize.SearchKey(text))))
	}
	for _, tagID := range q.TagIDs {
		tq := bleve.NewTermQuery(tagID)
		tq.SetField("tags")
		queries = append(queries, tq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(queries...), q.Limit, q.Offset, false)
	req.SortBy([]string{"-_score", "-timestamp", "id"})
	req.Fields = []string{"id", "collection", "name"}

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search works: %w", err)
	}

	out := &WorkResult{Total: res.Total, Hits: make([]WorkHit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, WorkHit{
			ID:         stringField(h.Fields, "id"),
			Collection: stringField(h.Fields, "collection"),
			Title:      stringField(h.Fields, "name"),
			Score:      h.Score,
		})
	}
	return out, nil
}

func typeQuery(t DocType) query.Query {
	q := bleve.NewTermQuery(string(t))
	q.SetField("type")
	return q
}

// substringQuery matches key anywhere inside the folded name.
func substringQuery(key string) query.Query {
	q := bleve.NewWildcardQuery("*" + escapeWildcard(key) + "*")
	q.SetField("key")
	return q
}

// escapeWildcard neutralizes "*" in user text. Bleve escapes regexp
// metacharacters itself but has no escape for its own wildcards, so a literal
// star becomes a single-character match.
func escapeWildcard(s string) string {
	return strings.ReplaceAll(s, "*", "?")
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}
