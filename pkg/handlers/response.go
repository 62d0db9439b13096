package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// ApiResponse is the envelope of every successful /api response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps service errors onto HTTP status codes.
// Store failures are logged with full detail; the client only sees a generic message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error, fields ...zap.Field) {
	var (
		status  = http.StatusInternalServerError
		code    = op + "_failed"
		message = "Internal server error"
	)

	var importErr *services.ImportError
	switch {
	case errors.Is(err, apperrors.ErrMalformedInput):
		status, code, message = http.StatusBadRequest, "malformed_input", err.Error()
	case errors.Is(err, apperrors.ErrEmptyInput):
		status, code, message = http.StatusBadRequest, "empty_input", err.Error()
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status, code, message = http.StatusBadRequest, "invalid_argument", err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "Resource not found"
	case errors.As(err, &importErr):
		message = "Import failed during " + string(importErr.Stage) + "; no data was written"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", append(fields, zap.String("operation", op), zap.Error(err))...)
	} else {
		logger.Debug("Request rejected", append(fields, zap.String("operation", op), zap.Error(err))...)
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
