package search

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
)

// batchSize bounds documents per Bleve batch.
const batchSize = 500

// Index wraps an in-memory Bleve index.
//
// Thread safety: all public methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	logger *slog.Logger

	mu sync.RWMutex
	// groups tracks the document ids currently indexed per group so a group
	// can be replaced wholesale.
	groups map[string]map[string]bool
}

// NewIndex creates an empty in-memory index.
func NewIndex(logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{
		index:  idx,
		logger: logger,
		groups: make(map[string]map[string]bool),
	}, nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// DocumentCount returns the number of indexed documents.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// ReplaceTags swaps the indexed tags for tags.
func (s *Index) ReplaceTags(tags []*domain.Tag, categories []*domain.Category) error {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	docs := make([]*Document, len(tags))
	for i, t := range tags {
		docs[i] = TagDocument(t, names[t.Category])
	}
	return s.replace(string(DocTypeTag), docs)
}

// ReplaceWorks swaps the indexed works of one collection for works.
func (s *Index) ReplaceWorks(collection string, works map[string]*domain.Work) error {
	docs := make([]*Document, 0, len(works))
	for _, w := range works {
		docs = append(docs, WorkDocument(w, collection))
	}
	return s.replace(string(DocTypeWork)+"/"+collection, docs)
}

// replace deletes the group's previous documents and indexes docs, in chunks.
func (s *Index) replace(group string, docs []*Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]bool, len(docs))
	for _, d := range docs {
		next[d.docID()] = true
	}

	batch := s.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		batch.Reset()
		return nil
	}

	for id := range s.groups[group] {
		if !next[id] {
			batch.Delete(id)
		}
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	for _, d := range docs {
		if err := batch.Index(d.docID(), d.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", d.ID, err)
		}
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	s.groups[group] = next
	s.logger.Debug("search group reindexed", slog.String("group", group), slog.Int("documents", len(docs)))
	return nil
}

// Follow keeps the index in step with c and returns a function that stops it.
// The cached collections are indexed immediately.
func (s *Index) Follow(c *cache.Cache) func() {
	reindex := func(coll cache.Collection) {
		var err error
		switch coll {
		case cache.Tags, cache.Categories:
			err = s.ReplaceTags(c.Tags(), c.Categories())
		case cache.Works:
			err = s.ReplaceWorks(string(coll), c.Data().Works)
		case cache.AdminPicks:
			err = s.ReplaceWorks(string(coll), c.Data().AdminPicks)
		default:
			return
		}
		if err != nil {
			s.logger.Error("failed to reindex", slog.String("collection", string(coll)), slog.String("error", err.Error()))
		}
	}

	for _, coll := range []cache.Collection{cache.Tags, cache.Works, cache.AdminPicks} {
		reindex(coll)
	}
	return c.OnChange(func(ch cache.Change) { reindex(ch.Collection) })
}
