// Package proxy implements the HTTP server for wx-relay.
package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// HeaderProvider names the provider that served a /data response.
const HeaderProvider = "X-Wx-Relay-Provider"

// ErrorResponse is the JSON error envelope for all failure responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error class and a human-readable message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Type:    errorType,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
