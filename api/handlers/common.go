package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// Response is the uniform JSON envelope for API responses.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo is the serialized error payload.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful envelope around data.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// WriteError converts any error into the JSON error envelope. Untyped
// errors are reported as internal.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	apiErr := asAPIError(err)

	status := apiErr.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(apiErr.Code)
	}

	if logger != nil {
		logger.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.Int("status", status),
			zap.Bool("retryable", apiErr.Retryable),
			zap.Error(apiErr.Cause))
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(apiErr.Code),
			Message:   apiErr.Message,
			Retryable: apiErr.Retryable,
		},
		Timestamp: time.Now().UTC(),
	})
}

func asAPIError(err error) *types.Error {
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return types.NewError(types.ErrInternalError, "internal server error").WithCause(err)
}

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest:
		return http.StatusBadRequest
	case types.ErrSessionNotFound:
		return http.StatusNotFound
	case types.ErrBackendUnavailable, types.ErrFallbackUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrBackendCall, types.ErrExtractionEmpty, types.ErrDownloadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
