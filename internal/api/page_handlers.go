package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/media/cover"
	"github.com/shareboard/shareboard/internal/view"
)

func (s *Server) registerPageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentPage",
		Method:      http.MethodGet,
		Path:        "/api/v1/views/{view}",
		Summary:     "Get the current page of a view",
		Description: "Resolves the page last shown for the view, starting at 1",
		Tags:        []string{"Views"},
	}, s.handleGetCurrentPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPage",
		Method:      http.MethodGet,
		Path:        "/api/v1/views/{view}/pages/{page}",
		Summary:     "Get a page of a view",
		Description: "Resolves one page. Out of range pages are clamped. When the mosaic preference is on, cover placeholders are included.",
		Tags:        []string{"Views"},
	}, s.handleGetPage)
}

// ViewPathInput names a view.
type ViewPathInput struct {
	View string `path:"view" enum:"new,ranking,admin_manga,admin_game,admin_unknown,favorites,my_list,public_list" doc:"View name"`
}

// PageInput names a page of a view.
type PageInput struct {
	View string `path:"view" enum:"new,ranking,admin_manga,admin_game,admin_unknown,favorites,my_list,public_list" doc:"View name"`
	Page int    `path:"page" minimum:"1" doc:"1-based page number"`
}

// PageResponse is a resolved page with optional cover placeholders.
type PageResponse struct {
	view.Page
	Placeholders map[string]*cover.Placeholder `json:"placeholders,omitempty" doc:"Cover placeholders keyed by work id"`
}

// PageOutput wraps the page response for Huma.
type PageOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         PageResponse
}

func (s *Server) handleGetCurrentPage(ctx context.Context, input *ViewPathInput) (*PageOutput, error) {
	v := domain.View(input.View)
	return s.resolvePage(ctx, v, s.engine.State.Page(v))
}

func (s *Server) handleGetPage(ctx context.Context, input *PageInput) (*PageOutput, error) {
	return s.resolvePage(ctx, domain.View(input.View), input.Page)
}

func (s *Server) resolvePage(ctx context.Context, v domain.View, number int) (*PageOutput, error) {
	p, err := s.engine.Views.Resolve(ctx, v, number)
	if err != nil {
		return nil, err
	}

	out := &PageOutput{
		CacheControl: CacheNoStore,
		Body:         PageResponse{Page: *p},
	}
	if s.engine.Covers != nil && s.engine.Settings.Get().Mosaic {
		works := make([]*domain.Work, 0, len(p.Items))
		for _, item := range p.Items {
			works = append(works, item.Work)
		}
		out.Body.Placeholders = s.engine.Covers.Placeholders(ctx, works)
	}
	return out, nil
}
