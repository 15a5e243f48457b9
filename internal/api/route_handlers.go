package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/state"
)

func (s *Server) registerRouteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRoute",
		Method:      http.MethodGet,
		Path:        "/api/v1/route",
		Summary:     "Get current route",
		Tags:        []string{"Navigation"},
	}, s.handleGetRoute)

	huma.Register(s.api, huma.Operation{
		OperationID: "navigate",
		Method:      http.MethodPut,
		Path:        "/api/v1/route",
		Summary:     "Navigate",
		Description: "Switches screens. An address query wins over screen and list id. Opening a shared list loads it first.",
		Tags:        []string{"Navigation"},
	}, s.handleNavigate)

	huma.Register(s.api, huma.Operation{
		OperationID: "navigateBack",
		Method:      http.MethodPost,
		Path:        "/api/v1/route/back",
		Summary:     "Go back in history",
		Tags:        []string{"Navigation"},
	}, s.handleBack)

	huma.Register(s.api, huma.Operation{
		OperationID: "navigateForward",
		Method:      http.MethodPost,
		Path:        "/api/v1/route/forward",
		Summary:     "Go forward in history",
		Tags:        []string{"Navigation"},
	}, s.handleForward)
}

// RouteResponse is the route being shown.
type RouteResponse struct {
	Screen domain.Screen `json:"screen" doc:"Current screen"`
	ListID string        `json:"listId,omitempty" doc:"Shared list id on the publicList screen"`
	Query  string        `json:"query" doc:"Address query string for the route"`
	Views  []domain.View `json:"views" doc:"Paginated views shown on the screen"`
	Moved  bool          `json:"moved" doc:"False when back or forward had nowhere to go"`
}

// RouteOutput wraps the route response for Huma.
type RouteOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         RouteResponse
}

// NavigateRequest names the target route.
type NavigateRequest struct {
	Query  string        `json:"query,omitempty" maxLength:"512" doc:"Address query, e.g. ?view=favorites or ?list=abc"`
	Screen domain.Screen `json:"screen,omitempty" enum:"main,favorites,mylists,publicList" doc:"Target screen"`
	ListID string        `json:"listId,omitempty" maxLength:"128" doc:"Shared list id"`
}

// NavigateInput wraps the navigate request for Huma.
type NavigateInput struct {
	Body NavigateRequest
}

func (s *Server) handleGetRoute(_ context.Context, _ *struct{}) (*RouteOutput, error) {
	return routeOutput(s.engine.State.Route(), true), nil
}

func (s *Server) handleNavigate(ctx context.Context, input *NavigateInput) (*RouteOutput, error) {
	target := state.Route{Screen: input.Body.Screen, ListID: input.Body.ListID}
	if input.Body.Query != "" || target.Screen == "" {
		target = state.ParseRoute(input.Body.Query)
	}

	shown, err := s.engine.Views.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	return routeOutput(shown, true), nil
}

func (s *Server) handleBack(_ context.Context, _ *struct{}) (*RouteOutput, error) {
	r, moved := s.engine.State.Back()
	return routeOutput(r, moved), nil
}

func (s *Server) handleForward(_ context.Context, _ *struct{}) (*RouteOutput, error) {
	r, moved := s.engine.State.Forward()
	return routeOutput(r, moved), nil
}

func routeOutput(r state.Route, moved bool) *RouteOutput {
	return &RouteOutput{
		CacheControl: CacheNoStore,
		Body: RouteResponse{
			Screen: r.Screen,
			ListID: r.ListID,
			Query:  r.Query(),
			Views:  r.Screen.Views(),
			Moved:  moved,
		},
	}
}
