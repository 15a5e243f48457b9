package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shareboard/shareboard/internal/domain"
)

func (s *Server) registerSubmissionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "submitWork",
		Method:        http.MethodPost,
		Path:          "/api/v1/submissions",
		Summary:       "Submit a work URL",
		Description:   "Forwards a store page URL to the ingestion endpoint, which scrapes and adds the work",
		Tags:          []string{"Submissions"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleSubmitWork)

	huma.Register(s.api, huma.Operation{
		OperationID:   "submitContact",
		Method:        http.MethodPost,
		Path:          "/api/v1/contact",
		Summary:       "Send a contact message",
		Tags:          []string{"Submissions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSubmitContact)
}

// SubmitWorkRequest is a work page URL.
type SubmitWorkRequest struct {
	URL string `json:"url" minLength:"1" maxLength:"2048" doc:"Store page URL"`
}

// SubmitWorkInput wraps the submission for Huma.
type SubmitWorkInput struct {
	Body SubmitWorkRequest
}

// SubmitWorkResponse is the ingestion endpoint's answer.
type SubmitWorkResponse struct {
	Message string `json:"message" doc:"Message from the ingestion endpoint"`
}

// SubmitWorkOutput wraps the response for Huma.
type SubmitWorkOutput struct {
	Body SubmitWorkResponse
}

// ContactRequest is a contact form submission.
type ContactRequest struct {
	Name    string `json:"name" minLength:"1" maxLength:"100" doc:"Sender name"`
	Email   string `json:"email,omitempty" maxLength:"254" doc:"Reply address"`
	Title   string `json:"title,omitempty" maxLength:"200" doc:"Subject"`
	Content string `json:"content" minLength:"1" maxLength:"5000" doc:"Message body"`
}

// ContactInput wraps the contact request for Huma.
type ContactInput struct {
	Body ContactRequest
}

// ContactResponse identifies the stored message.
type ContactResponse struct {
	ID string `json:"id" doc:"Message id"`
}

// ContactOutput wraps the response for Huma.
type ContactOutput struct {
	Body ContactResponse
}

func (s *Server) handleSubmitWork(ctx context.Context, input *SubmitWorkInput) (*SubmitWorkOutput, error) {
	msg, err := s.engine.Ingest.Submit(ctx, s.engine.State.ClientID(), input.Body.URL)
	if err != nil {
		return nil, err
	}
	return &SubmitWorkOutput{Body: SubmitWorkResponse{Message: msg}}, nil
}

func (s *Server) handleSubmitContact(ctx context.Context, input *ContactInput) (*ContactOutput, error) {
	id, err := s.engine.Mutations.SubmitContact(ctx, domain.ContactMessage{
		Name:    input.Body.Name,
		Email:   input.Body.Email,
		Title:   input.Body.Title,
		Content: input.Body.Content,
	})
	if err != nil {
		return nil, err
	}
	return &ContactOutput{Body: ContactResponse{ID: id}}, nil
}
