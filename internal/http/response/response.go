// Package response writes the JSON envelope every render API response uses.
package response

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"

	domainerrors "github.com/shareboard/shareboard/internal/errors"
)

// Version is the envelope format version sent as "v".
const Version = 1

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Wrap builds the envelope for a successful payload.
func Wrap(data any) Envelope {
	return Envelope{Version: Version, Success: true, Data: data}
}

// WrapError builds the envelope for a failure.
func WrapError(code, message string, details any) Envelope {
	return Envelope{
		Version: Version,
		Success: false,
		Error:   message,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// JSON writes a JSON response with the given status code using json/v2.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Wrap(data), logger)
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	write(w, status, WrapError(string(code), message, nil), logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, domainerrors.CodeNotFound, message, logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, domainerrors.CodeRateLimited, message, logger)
}

// HandleError writes the response for err. Domain errors keep their code and
// status; anything else becomes a 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		write(w, domainErr.HTTPStatus(), WrapError(string(domainErr.Code), domainErr.Message, domainErr.Details), logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", slog.String("error", err.Error()))
	}
	Error(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", logger)
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.MarshalWrite(w, envelope); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
