package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/domain"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Get session",
		Description: "Returns the anonymous client id and the signed-in user, if any",
		Tags:        []string{"Session"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPut,
		Path:        "/api/v1/session",
		Summary:     "Sign in",
		Description: "Hands over the identity the auth provider resolved. User data starts streaming immediately.",
		Tags:        []string{"Session"},
	}, s.handleSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID:   "signOut",
		Method:        http.MethodDelete,
		Path:          "/api/v1/session",
		Summary:       "Sign out",
		Description:   "Drops user data and returns to the main screen if the current one needs a user",
		Tags:          []string{"Session"},
		DefaultStatus: http.StatusOK,
	}, s.handleSignOut)
}

// SessionResponse describes who is using the engine.
type SessionResponse struct {
	ClientID string       `json:"clientId" doc:"Anonymous client id used for votes"`
	SignedIn bool         `json:"signedIn" doc:"Whether a user is signed in"`
	User     *domain.User `json:"user,omitempty" doc:"Signed-in user"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         SessionResponse
}

// SignInRequest is the identity handed over by the auth provider.
type SignInRequest struct {
	UID         string `json:"uid" minLength:"1" maxLength:"128" doc:"Provider user id"`
	DisplayName string `json:"displayName,omitempty" maxLength:"100" doc:"Name shown on shared lists"`
}

// SignInInput wraps the sign-in request for Huma.
type SignInInput struct {
	Body SignInRequest
}

func (s *Server) handleGetSession(_ context.Context, _ *struct{}) (*SessionOutput, error) {
	return s.sessionOutput(), nil
}

func (s *Server) handleSignIn(_ context.Context, input *SignInInput) (*SessionOutput, error) {
	s.engine.SignIn(&domain.User{UID: input.Body.UID, DisplayName: input.Body.DisplayName})
	return s.sessionOutput(), nil
}

func (s *Server) handleSignOut(_ context.Context, _ *struct{}) (*SessionOutput, error) {
	s.engine.SignOut()
	return s.sessionOutput(), nil
}

func (s *Server) sessionOutput() *SessionOutput {
	st := s.engine.State
	return &SessionOutput{
		CacheControl: CacheNoStore,
		Body: SessionResponse{
			ClientID: st.ClientID(),
			SignedIn: st.SignedIn(),
			User:     st.User(),
		},
	}
}
