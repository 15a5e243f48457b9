package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/cache"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/media/cover"
	"github.com/shareboard/shareboard/internal/mutation"
)

func (s *Server) registerWorkRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "vote",
		Method:      http.MethodPost,
		Path:        "/api/v1/works/{workId}/vote",
		Summary:     "Vote on a work",
		Description: "Toggles this client's vote between none and the given score. Voting the same score twice withdraws it.",
		Tags:        []string{"Works"},
	}, s.handleVote)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/works/{workId}/favorite",
		Summary:     "Toggle favorite",
		Description: "Adds the work to the signed-in user's favorites or removes it. Favorites are keyed by canonical id.",
		Tags:        []string{"Works"},
	}, s.handleToggleFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "getWorkPlaceholder",
		Method:      http.MethodGet,
		Path:        "/api/v1/works/{workId}/placeholder",
		Summary:     "Get cover placeholder",
		Description: "Returns a blurhash of the work's cover for the mosaic layout",
		Tags:        []string{"Works"},
	}, s.handleGetPlaceholder)
}

// WorkPathInput names a work.
type WorkPathInput struct {
	WorkID string `path:"workId" minLength:"1" maxLength:"128" doc:"Work id"`
}

// VoteRequest is one vote.
type VoteRequest struct {
	Score      int              `json:"score" enum:"-1,1" doc:"+1 for up, -1 for down"`
	Collection cache.Collection `json:"collection,omitempty" enum:"works,adminPicks" doc:"Collection holding the work, if known"`
}

// VoteInput wraps the vote request for Huma.
type VoteInput struct {
	WorkID string `path:"workId" minLength:"1" maxLength:"128" doc:"Work id"`
	Body   VoteRequest
}

// VoteOutput wraps the committed vote for Huma.
type VoteOutput struct {
	Body *mutation.VoteResult
}

// FavoriteOutput wraps the favorite state for Huma.
type FavoriteOutput struct {
	Body *mutation.FavoriteResult
}

// PlaceholderOutput wraps a cover placeholder for Huma.
type PlaceholderOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         *cover.Placeholder
}

func (s *Server) handleVote(ctx context.Context, input *VoteInput) (*VoteOutput, error) {
	res, err := s.engine.Mutations.Vote(ctx, input.WorkID, input.Body.Score, input.Body.Collection)
	if err != nil {
		return nil, err
	}
	return &VoteOutput{Body: res}, nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *WorkPathInput) (*FavoriteOutput, error) {
	w, ok := s.engine.Cache.Work(input.WorkID)
	if !ok {
		return nil, domainerrors.NotFoundf("work %s not found", input.WorkID)
	}
	res, err := s.engine.Mutations.ToggleFavorite(ctx, w.CanonicalID())
	if err != nil {
		return nil, err
	}
	return &FavoriteOutput{Body: res}, nil
}

func (s *Server) handleGetPlaceholder(ctx context.Context, input *WorkPathInput) (*PlaceholderOutput, error) {
	if s.engine.Covers == nil {
		return nil, domainerrors.NotFound("cover placeholders are disabled")
	}
	w, ok := s.engine.Cache.Work(input.WorkID)
	if !ok {
		return nil, domainerrors.NotFoundf("work %s not found", input.WorkID)
	}
	p, err := s.engine.Covers.Placeholder(ctx, w.ID, w.CoverURL)
	if err != nil {
		return nil, err
	}
	return &PlaceholderOutput{CacheControl: CacheOneDayPrivate, Body: p}, nil
}
