package api

import (
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/state"
)

func (s *Server) registerFilterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getFilters",
		Method:      http.MethodGet,
		Path:        "/api/v1/filters",
		Summary:     "Get filters",
		Tags:        []string{"Filters"},
	}, s.handleGetFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateFilters",
		Method:      http.MethodPut,
		Path:        "/api/v1/filters",
		Summary:     "Update filters",
		Description: "Replaces both tag sets. Omitted toggles keep their value.",
		Tags:        []string{"Filters"},
	}, s.handleUpdateFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetFilters",
		Method:      http.MethodDelete,
		Path:        "/api/v1/filters",
		Summary:     "Clear tag filters",
		Tags:        []string{"Filters"},
	}, s.handleResetFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleTagFilter",
		Method:      http.MethodPost,
		Path:        "/api/v1/filters/tags/{tagId}/toggle",
		Summary:     "Toggle a tag",
		Description: "Flips the tag in the set selected by the current tag mode",
		Tags:        []string{"Filters"},
	}, s.handleToggleTag)
}

// FiltersResponse is the filter state.
type FiltersResponse struct {
	Highlight      []string      `json:"highlight" doc:"Tag ids whose works are highlighted"`
	Hide           []string      `json:"hide" doc:"Tag ids whose works are hidden"`
	HideBadlyRated bool          `json:"hideBadlyRated" doc:"Hide works this client voted down"`
	TagMode        state.TagMode `json:"tagMode" doc:"Set edited by toggles"`
}

// FiltersOutput wraps the filters response for Huma.
type FiltersOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         FiltersResponse
}

// UpdateFiltersRequest replaces the filter state.
type UpdateFiltersRequest struct {
	Highlight      []string       `json:"highlight,omitempty" maxItems:"500" doc:"Tag ids to highlight"`
	Hide           []string       `json:"hide,omitempty" maxItems:"500" doc:"Tag ids to hide"`
	HideBadlyRated *bool          `json:"hideBadlyRated,omitempty" doc:"Hide works this client voted down"`
	TagMode        *state.TagMode `json:"tagMode,omitempty" enum:"highlight,hide" doc:"Set edited by toggles"`
}

// UpdateFiltersInput wraps the update request for Huma.
type UpdateFiltersInput struct {
	Body UpdateFiltersRequest
}

// ToggleTagInput names the tag to flip.
type ToggleTagInput struct {
	TagID string `path:"tagId" minLength:"1" maxLength:"128" doc:"Tag id"`
}

func (s *Server) handleGetFilters(_ context.Context, _ *struct{}) (*FiltersOutput, error) {
	return s.filtersOutput(), nil
}

func (s *Server) handleUpdateFilters(_ context.Context, input *UpdateFiltersInput) (*FiltersOutput, error) {
	st := s.engine.State
	if input.Body.TagMode != nil {
		if err := st.SetTagMode(*input.Body.TagMode); err != nil {
			return nil, err
		}
	}
	if input.Body.HideBadlyRated != nil {
		st.SetHideBadlyRated(*input.Body.HideBadlyRated)
	}
	st.SetTagFilters(input.Body.Highlight, input.Body.Hide)
	return s.filtersOutput(), nil
}

func (s *Server) handleResetFilters(_ context.Context, _ *struct{}) (*FiltersOutput, error) {
	s.engine.State.ResetFilters()
	return s.filtersOutput(), nil
}

func (s *Server) handleToggleTag(_ context.Context, input *ToggleTagInput) (*FiltersOutput, error) {
	s.engine.State.ToggleTag(input.TagID)
	return s.filtersOutput(), nil
}

func (s *Server) filtersOutput() *FiltersOutput {
	f := s.engine.State.Filters()
	return &FiltersOutput{
		CacheControl: CacheNoStore,
		Body: FiltersResponse{
			Highlight:      slices.Sorted(maps.Keys(f.Highlight)),
			Hide:           slices.Sorted(maps.Keys(f.Hide)),
			HideBadlyRated: f.HideBadlyRated,
			TagMode:        s.engine.State.TagMode(),
		},
	}
}
