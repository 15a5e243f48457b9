package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/settings"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get settings",
		Description: "Returns device preferences and the page sizes offered per category",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPatch,
		Path:        "/api/v1/settings",
		Summary:     "Update settings",
		Description: "Updates only the fields provided. Page size changes redraw the affected grids.",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)
}

// SettingsResponse contains preferences and the choices offered.
type SettingsResponse struct {
	settings.Preferences
	PageSizeOptions map[domain.PageCategory][]int `json:"pageSizeOptions" doc:"Page sizes offered per category"`
}

// SettingsOutput wraps the settings response for Huma.
type SettingsOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         SettingsResponse
}

// UpdateSettingsRequest carries the fields to change.
type UpdateSettingsRequest struct {
	PageSizes       map[domain.PageCategory]int `json:"pageSizes,omitempty" doc:"Page size per category (admin, user, favorites)"`
	Mosaic          *bool                       `json:"mosaic,omitempty" doc:"Blur covers"`
	GridHeightFixed *bool                       `json:"gridHeightFixed,omitempty" doc:"Fix grid row heights on mobile"`
	AutoScroll      *bool                       `json:"autoScroll,omitempty" doc:"Scroll to the grid after a page change"`
	Collapsed       map[string]bool             `json:"collapsed,omitempty" doc:"Collapsed state per section (admin, user)"`
}

// UpdateSettingsInput wraps the update request for Huma.
type UpdateSettingsInput struct {
	Body UpdateSettingsRequest
}

func (s *Server) handleGetSettings(_ context.Context, _ *struct{}) (*SettingsOutput, error) {
	return s.settingsOutput(), nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	prefs := s.engine.Settings
	req := input.Body

	for c, size := range req.PageSizes {
		if err := prefs.SetPageSize(ctx, c, size); err != nil {
			return nil, err
		}
	}
	if req.Mosaic != nil {
		if err := prefs.SetMosaic(ctx, *req.Mosaic); err != nil {
			return nil, err
		}
	}
	if req.GridHeightFixed != nil {
		if err := prefs.SetGridHeightFixed(ctx, *req.GridHeightFixed); err != nil {
			return nil, err
		}
	}
	if req.AutoScroll != nil {
		if err := prefs.SetAutoScroll(ctx, *req.AutoScroll); err != nil {
			return nil, err
		}
	}
	for section, collapsed := range req.Collapsed {
		if err := prefs.SetCollapsed(ctx, section, collapsed); err != nil {
			return nil, err
		}
	}

	return s.settingsOutput(), nil
}

func (s *Server) settingsOutput() *SettingsOutput {
	prefs := s.engine.Settings
	options := map[domain.PageCategory][]int{
		domain.CategoryAdmin:     prefs.Options(domain.CategoryAdmin),
		domain.CategoryUser:      prefs.Options(domain.CategoryUser),
		domain.CategoryFavorites: prefs.Options(domain.CategoryFavorites),
	}
	return &SettingsOutput{
		CacheControl: CacheNoStore,
		Body: SettingsResponse{
			Preferences:     prefs.Get(),
			PageSizeOptions: options,
		},
	}
}
