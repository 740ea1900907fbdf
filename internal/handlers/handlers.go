// Package handlers provides the HTTP API for pool inspection and health.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thierry-dev-pro/clawd-ORACLE/internal/automation"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/config"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/session"
	"github.com/thierry-dev-pro/clawd-ORACLE/pkg/version"
)

// healthResponse is the body for /health.
type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Daemon    bool   `json:"daemonReachable"`
	StartTime int64  `json:"startTimestamp"`
	EndTime   int64  `json:"endTimestamp"`
	Version   string `json:"version"`
}

// errorBody is the body for error responses.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// Handler serves the pool inspection API.
type Handler struct {
	pool   *session.Pool
	client *automation.Client
	config *config.Config
}

// New creates a new Handler.
func New(pool *session.Pool, client *automation.Client, cfg *config.Config) *Handler {
	return &Handler{
		pool:   pool,
		client: client,
		config: cfg,
	}
}

// Router returns the configured HTTP mux.
func (h *Handler) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/stats", h.HandleStats)
	mux.HandleFunc("/", h.HandleNotFound)
	return mux
}

// HandleHealth reports service health including automation daemon
// reachability. The endpoint returns 200 even when the daemon is down; the
// body carries the reachability flag.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	startTime := time.Now()
	reachable := h.client.HealthCheck(r.Context())

	status := "ok"
	message := "Service is ready"
	if !reachable {
		status = "degraded"
		message = "Automation daemon unreachable"
	}

	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Message:   message,
		Daemon:    reachable,
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
	})
}

// HandleStats returns nested pool, session, fingerprint, and proxy
// statistics.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.writeJSON(w, http.StatusOK, h.pool.Statistics())
}

// HandleNotFound handles requests to unknown paths.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "Not found")
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSON(w, statusCode, errorBody{
		Status:  "error",
		Message: message,
		Version: version.Full(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
