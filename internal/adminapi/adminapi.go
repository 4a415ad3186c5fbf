// Package adminapi exposes a small HTTP surface for operating the
// notification hub: liveness, the union of known channels, and a
// manual publish endpoint for ad hoc testing (SPEC_FULL.md "HTTP Admin
// Surface" — supplementing the spec's core hub/adapter operations
// with an externally reachable control surface, in the teacher's own
// gorilla/mux + middleware style).
package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/OmarEhab007/notification-hub/internal/adapter"
	"github.com/OmarEhab007/notification-hub/internal/adminapi/middleware"
	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// Hub is the subset of *hub.Manager the admin surface depends on.
// Defined here, implemented there, to avoid an import cycle.
type Hub interface {
	ListChannels(ctx context.Context) ([]topic.Name, error)
	SendToChannel(ctx context.Context, msg message.Message, adapterIndex int) error
}

// Config configures the admin router.
type Config struct {
	Hub            Hub
	AllowedOrigins []string
	Started        func() bool
}

// NewRouter builds the admin HTTP surface.
func NewRouter(cfg Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	h := &handlers{hub: cfg.Hub, started: cfg.Started}

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/channels", h.listChannels).Methods(http.MethodGet)
	r.HandleFunc("/publish", h.publish).Methods(http.MethodPost)

	return r
}

type handlers struct {
	hub     Hub
	started func() bool
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.started != nil && !h.started() {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "hub manager has not started")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.hub.ListChannels(r.Context())
	if err != nil {
		slog.Warn("admin listChannels: partial adapter failure", "error", err)
	}

	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, c.String())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"channels": names})
}

// publishRequest is the JSON body for POST /publish.
type publishRequest struct {
	Topic        string `json:"topic"`
	Payload      string `json:"payload"`
	AdapterIndex int    `json:"adapter_index"`
}

func (h *handlers) publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	msg, err := message.NewFromStrings(req.Topic, req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_topic", err.Error())
		return
	}

	if err := h.hub.SendToChannel(r.Context(), msg, req.AdapterIndex); err != nil {
		if errors.Is(err, adapter.ErrNoSuchAdapter) {
			writeError(w, http.StatusNotFound, "no_such_adapter", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "send_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("admin: failed to encode JSON response", "error", err)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
