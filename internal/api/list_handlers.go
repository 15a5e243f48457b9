package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/mutation"
)

func (s *Server) registerListRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMyLists",
		Method:      http.MethodGet,
		Path:        "/api/v1/lists",
		Summary:     "Get my lists",
		Description: "Returns the signed-in user's lists, oldest first, and the list shown on the my lists screen",
		Tags:        []string{"Lists"},
	}, s.handleGetMyLists)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createList",
		Method:        http.MethodPost,
		Path:          "/api/v1/lists",
		Summary:       "Create list",
		Tags:          []string{"Lists"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateList)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameList",
		Method:      http.MethodPatch,
		Path:        "/api/v1/lists/{listId}",
		Summary:     "Rename list",
		Tags:        []string{"Lists"},
	}, s.handleRenameList)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteList",
		Method:      http.MethodDelete,
		Path:        "/api/v1/lists/{listId}",
		Summary:     "Delete list",
		Description: "Deletes the list, its items and the owner's pointer in one write",
		Tags:        []string{"Lists"},
	}, s.handleDeleteList)

	huma.Register(s.api, huma.Operation{
		OperationID: "setActiveList",
		Method:      http.MethodPut,
		Path:        "/api/v1/lists/{listId}/active",
		Summary:     "Show list",
		Description: "Selects the list shown on the my lists screen",
		Tags:        []string{"Lists"},
	}, s.handleSetActiveList)

	huma.Register(s.api, huma.Operation{
		OperationID:   "importList",
		Method:        http.MethodPost,
		Path:          "/api/v1/lists/{listId}/import",
		Summary:       "Import list",
		Description:   "Copies another user's list into a new list owned by the signed-in user",
		Tags:          []string{"Lists"},
		DefaultStatus: http.StatusCreated,
	}, s.handleImportList)

	huma.Register(s.api, huma.Operation{
		OperationID: "setListMembership",
		Method:      http.MethodPut,
		Path:        "/api/v1/lists/{listId}/items/{workId}",
		Summary:     "Add or remove a work",
		Tags:        []string{"Lists"},
	}, s.handleSetMembership)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleListMembership",
		Method:      http.MethodPost,
		Path:        "/api/v1/lists/{listId}/items/{workId}/toggle",
		Summary:     "Toggle a work in a list",
		Tags:        []string{"Lists"},
	}, s.handleToggleMembership)

	huma.Register(s.api, huma.Operation{
		OperationID: "getWorkLists",
		Method:      http.MethodGet,
		Path:        "/api/v1/works/{workId}/lists",
		Summary:     "Lists containing a work",
		Tags:        []string{"Lists"},
	}, s.handleGetWorkLists)

	huma.Register(s.api, huma.Operation{
		OperationID: "openPublicList",
		Method:      http.MethodGet,
		Path:        "/api/v1/public-lists/{listId}",
		Summary:     "Open a shared list",
		Description: "Loads a list by id and switches to the publicList screen",
		Tags:        []string{"Lists"},
	}, s.handleOpenPublicList)
}

// ListSummary is a list with its item count.
type ListSummary struct {
	domain.List
	Count int `json:"count" doc:"Number of works in the list"`
}

// MyListsResponse is the signed-in user's lists.
type MyListsResponse struct {
	Lists    []ListSummary `json:"lists" doc:"Lists, oldest first"`
	ActiveID string        `json:"activeId,omitempty" doc:"List shown on the my lists screen"`
	MaxLists int           `json:"maxLists" doc:"Maximum number of lists per user"`
}

// MyListsOutput wraps the lists response for Huma.
type MyListsOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         MyListsResponse
}

// ListPathInput names a list.
type ListPathInput struct {
	ListID string `path:"listId" minLength:"1" maxLength:"128" doc:"List id"`
}

// ListNameRequest carries a list name.
type ListNameRequest struct {
	Name string `json:"name" minLength:"1" maxLength:"50" doc:"List name"`
}

// CreateListInput wraps the create request for Huma.
type CreateListInput struct {
	Body ListNameRequest
}

// RenameListInput wraps the rename request for Huma.
type RenameListInput struct {
	ListID string `path:"listId" minLength:"1" maxLength:"128" doc:"List id"`
	Body   ListNameRequest
}

// ListOutput wraps one list for Huma.
type ListOutput struct {
	Body ListSummary
}

// DeleteListResponse confirms a deletion.
type DeleteListResponse struct {
	ListID  string `json:"listId"`
	Deleted bool   `json:"deleted"`
}

// DeleteListOutput wraps the deletion for Huma.
type DeleteListOutput struct {
	Body DeleteListResponse
}

// ImportListOutput wraps an import for Huma.
type ImportListOutput struct {
	Body *mutation.ImportResult
}

// MembershipRequest sets whether the work is in the list.
type MembershipRequest struct {
	In bool `json:"in" doc:"True to add the work, false to remove it"`
}

// MembershipInput names a list item.
type MembershipInput struct {
	ListID string `path:"listId" minLength:"1" maxLength:"128" doc:"List id"`
	WorkID string `path:"workId" minLength:"1" maxLength:"128" doc:"Work id"`
	Body   MembershipRequest
}

// ListItemPathInput names a list item.
type ListItemPathInput struct {
	ListID string `path:"listId" minLength:"1" maxLength:"128" doc:"List id"`
	WorkID string `path:"workId" minLength:"1" maxLength:"128" doc:"Work id"`
}

// MembershipOutput wraps a membership change for Huma.
type MembershipOutput struct {
	Body *mutation.MembershipResult
}

// WorkListsResponse lists the user's lists containing a work.
type WorkListsResponse struct {
	WorkID  string   `json:"workId"`
	ListIDs []string `json:"listIds"`
}

// WorkListsOutput wraps the response for Huma.
type WorkListsOutput struct {
	Body WorkListsResponse
}

// PublicListResponse is an opened shared list.
type PublicListResponse struct {
	List  *domain.List  `json:"list"`
	Count int           `json:"count"`
	Route RouteResponse `json:"route"`
}

// PublicListOutput wraps the response for Huma.
type PublicListOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         PublicListResponse
}

func (s *Server) handleGetMyLists(_ context.Context, _ *struct{}) (*MyListsOutput, error) {
	lists := s.engine.Cache.MyLists()
	summaries := make([]ListSummary, 0, len(lists))
	for _, l := range lists {
		summaries = append(summaries, s.listSummary(l))
	}

	return &MyListsOutput{
		CacheControl: CacheNoStore,
		Body: MyListsResponse{
			Lists:    summaries,
			ActiveID: s.engine.State.ActiveList(),
			MaxLists: s.engine.Mutations.Limits().MaxLists,
		},
	}, nil
}

func (s *Server) handleCreateList(ctx context.Context, input *CreateListInput) (*ListOutput, error) {
	l, err := s.engine.Mutations.CreateList(ctx, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &ListOutput{Body: s.listSummary(l)}, nil
}

func (s *Server) handleRenameList(ctx context.Context, input *RenameListInput) (*ListOutput, error) {
	l, err := s.engine.Mutations.RenameList(ctx, input.ListID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &ListOutput{Body: s.listSummary(l)}, nil
}

func (s *Server) handleDeleteList(ctx context.Context, input *ListPathInput) (*DeleteListOutput, error) {
	if err := s.engine.Mutations.DeleteList(ctx, input.ListID); err != nil {
		return nil, err
	}
	return &DeleteListOutput{Body: DeleteListResponse{ListID: input.ListID, Deleted: true}}, nil
}

func (s *Server) handleSetActiveList(ctx context.Context, input *ListPathInput) (*MyListsOutput, error) {
	s.engine.State.SetActiveList(input.ListID)
	return s.handleGetMyLists(ctx, nil)
}

func (s *Server) handleImportList(ctx context.Context, input *ListPathInput) (*ImportListOutput, error) {
	res, err := s.engine.Mutations.ImportList(ctx, input.ListID)
	if err != nil {
		return nil, err
	}
	return &ImportListOutput{Body: res}, nil
}

func (s *Server) handleSetMembership(ctx context.Context, input *MembershipInput) (*MembershipOutput, error) {
	res, err := s.engine.Mutations.SetListMembership(ctx, input.ListID, input.WorkID, input.Body.In)
	if err != nil {
		return nil, err
	}
	return &MembershipOutput{Body: res}, nil
}

func (s *Server) handleToggleMembership(ctx context.Context, input *ListItemPathInput) (*MembershipOutput, error) {
	res, err := s.engine.Mutations.ToggleListMembership(ctx, input.ListID, input.WorkID)
	if err != nil {
		return nil, err
	}
	return &MembershipOutput{Body: res}, nil
}

func (s *Server) handleGetWorkLists(_ context.Context, input *WorkPathInput) (*WorkListsOutput, error) {
	ids := s.engine.Cache.ListsContaining(input.WorkID)
	if ids == nil {
		ids = []string{}
	}
	return &WorkListsOutput{Body: WorkListsResponse{WorkID: input.WorkID, ListIDs: ids}}, nil
}

func (s *Server) handleOpenPublicList(ctx context.Context, input *ListPathInput) (*PublicListOutput, error) {
	l, err := s.engine.Views.LoadPublicList(ctx, input.ListID)
	if err != nil {
		return nil, err
	}
	return &PublicListOutput{
		CacheControl: CacheNoStore,
		Body: PublicListResponse{
			List:  l,
			Count: len(s.engine.Cache.ListItems(input.ListID)),
			Route: routeOutput(s.engine.State.Route(), true).Body,
		},
	}, nil
}

func (s *Server) listSummary(l *domain.List) ListSummary {
	return ListSummary{List: *l, Count: len(s.engine.Cache.ListItems(l.ID))}
}
