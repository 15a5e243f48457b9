package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "Search tags",
		Description: "Filters the tag panel by a case and width insensitive substring of the tag name",
		Tags:        []string{"Search"},
	}, s.handleSearchTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchWorks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/works",
		Summary:     "Search works",
		Description: "Searches titles across works and admin picks, optionally requiring tags",
		Tags:        []string{"Search"},
	}, s.handleSearchWorks)
}

// SearchTagsInput contains parameters for the tag panel search.
type SearchTagsInput struct {
	Query    string `query:"q" maxLength:"100" doc:"Substring of the tag name"`
	Category string `query:"category" maxLength:"128" doc:"Category id to restrict to"`
}

// SearchTagsResponse lists matching tags and every category.
type SearchTagsResponse struct {
	Tags       []search.TagHit    `json:"tags" doc:"Matching tags ordered by category, then name"`
	Categories []*domain.Category `json:"categories" doc:"All tag categories"`
}

// SearchTagsOutput wraps the tag search response for Huma.
type SearchTagsOutput struct {
	Body SearchTagsResponse
}

// SearchWorksInput contains parameters for searching works.
type SearchWorksInput struct {
	Query  string `query:"q" maxLength:"200" doc:"Title search text"`
	Tags   string `query:"tags" maxLength:"1000" doc:"Comma-separated tag ids that must all be present"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Max hits (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// WorkSearchHit is a hit with its cached work.
type WorkSearchHit struct {
	search.WorkHit
	Work *domain.Work `json:"work,omitempty" doc:"Cached work"`
}

// SearchWorksResponse is one page of work hits.
type SearchWorksResponse struct {
	Total uint64          `json:"total" doc:"Total matching works"`
	Hits  []WorkSearchHit `json:"hits" doc:"Hits ordered by relevance, then recency"`
}

// SearchWorksOutput wraps the work search response for Huma.
type SearchWorksOutput struct {
	Body SearchWorksResponse
}

func (s *Server) handleSearchTags(ctx context.Context, input *SearchTagsInput) (*SearchTagsOutput, error) {
	hits, err := s.engine.Search.Tags(ctx, search.TagQuery{
		Text:     input.Query,
		Category: input.Category,
	})
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []search.TagHit{}
	}

	return &SearchTagsOutput{
		Body: SearchTagsResponse{
			Tags:       hits,
			Categories: s.engine.Cache.Categories(),
		},
	}, nil
}

func (s *Server) handleSearchWorks(ctx context.Context, input *SearchWorksInput) (*SearchWorksOutput, error) {
	limit := min(input.Limit, maxWorkSearchLimit)

	result, err := s.engine.Search.Works(ctx, search.WorkQuery{
		Text:   input.Query,
		TagIDs: splitCSV(input.Tags),
		Limit:  limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]WorkSearchHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := WorkSearchHit{WorkHit: h}
		if w, ok := s.engine.Cache.Work(h.ID); ok {
			hit.Work = w
		}
		hits = append(hits, hit)
	}

	return &SearchWorksOutput{
		Body: SearchWorksResponse{
			Total: result.Total,
			Hits:  hits,
		},
	}, nil
}

func splitCSV(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
