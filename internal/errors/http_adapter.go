package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter writes TrellisError values as JSON HTTP error responses.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter constructs an adapter logging through the given logger.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// errorResponse is the wire shape of an error payload.
type errorResponse struct {
	Error    string        `json:"error"`
	Category ErrorCategory `json:"category"`
}

// WriteErrorResponse maps the error's category to an HTTP status and writes a
// JSON body. Unknown errors map to 500.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	category := GetCategory(err)

	switch category {
	case CategoryContent:
		status = http.StatusNotFound
	case CategoryValidation, CategoryParse:
		status = http.StatusUnprocessableEntity
	case CategoryConfig:
		status = http.StatusInternalServerError
	}

	msg := "internal server error"
	var te *TrellisError
	if errors.As(err, &te) {
		msg = te.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(errorResponse{Error: msg, Category: category}); encodeErr != nil {
		a.logger.Error("Failed to encode error response", "error", encodeErr)
	}
}
