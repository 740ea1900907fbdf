package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/thierry-dev-pro/clawd-ORACLE/pkg/version"
)

// errorBody matches the handler error shape so clients see one error format
// no matter which layer produced the failure.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	body := errorBody{
		Status:  "error",
		Message: message,
		Version: version.Full(),
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Str("message", message).Msg("Failed to encode error response")
	}
}
