package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/http/response"
)

// APIError implements huma.StatusError. Domain errors keep their code.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler makes huma report domain errors with their own status
// and code. Call it before registering routes.
func RegisterErrorHandler() {
	huma.NewError = newAPIError
}

func newAPIError(status int, message string, errs ...error) huma.StatusError {
	for _, err := range errs {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
		}
	}

	apiErr := &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
	// Request validation failures carry one detail per invalid field.
	if len(errs) > 0 && status == http.StatusUnprocessableEntity {
		details := make([]string, 0, len(errs))
		for _, err := range errs {
			details = append(details, err.Error())
		}
		apiErr.Details = details
	}
	return apiErr
}

// statusToCode maps HTTP status codes to domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeTransient)
	default:
		return string(domainerrors.CodeInternal)
	}
}

// EnvelopeTransformer wraps every huma response body in response.Envelope.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.WrapError(body.Code, body.Message, body.Details), nil
	case *domainerrors.Error:
		return response.WrapError(string(body.Code), body.Message, body.Details), nil
	case error:
		return response.WrapError(string(domainerrors.CodeOf(body)), body.Error(), nil), nil
	default:
		return response.Wrap(v), nil
	}
}
