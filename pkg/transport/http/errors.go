package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datagrep/datagrep/pkg/api"
)

// statusFromError maps an APIError type to the corresponding HTTP
// status code.
func statusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeGenerationError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAPIError writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api, deriving the status code from the error
// type.
func writeAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFromError(apiErr))
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// writeError converts any error to an APIError response. Errors that
// already are APIErrors keep their type; everything else becomes a
// server error.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		writeAPIError(w, apiErr)
		return
	}
	writeAPIError(w, api.NewServerError(err.Error()))
}

// writeJSON writes a JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
