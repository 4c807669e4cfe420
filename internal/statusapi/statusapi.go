// Package statusapi is a read-only JSON + HTML status endpoint:
// per-controller state and recent channel traffic; it does not report
// whether the workflow is still running. It mutates nothing and sits outside the
// MCP tool surface entirely, an operator aid rather than a channel
// participant.
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
)

// ControllerSnapshot is one agent controller's reported state.
type ControllerSnapshot struct {
	Name         string `json:"name"`
	State        string `json:"state"`
	RetryAttempt int    `json:"retryAttempt,omitempty"`
	Task         string `json:"task,omitempty"`
	StatusState  string `json:"statusState,omitempty"`
}

// MessageSnapshot is one channel entry as shown to an operator (every
// kind, unlike the agent-facing visibility filter).
type MessageSnapshot struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	To        string   `json:"to,omitempty"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	Kind      string   `json:"kind,omitempty"`
	Mentions  []string `json:"mentions,omitempty"`
}

// Snapshot is the full /status/api response.
type Snapshot struct {
	Timestamp   string               `json:"timestamp"`
	Workflow    string               `json:"workflow"`
	Ephemeral   bool                 `json:"ephemeral"`
	Controllers []ControllerSnapshot `json:"controllers"`
	Channel     []MessageSnapshot    `json:"channel"`
}

// Source is the subset of *scheduler.Scheduler the status surface
// reads from. Defined here (not in the scheduler package) so statusapi
// has no dependency on scheduler; the scheduler implements it instead.
type Source interface {
	Snapshot(ctx context.Context, channelTail int) (Snapshot, error)
}

// Handler serves the status page and its backing JSON API.
type Handler struct {
	src Source
}

// NewHandler returns a Handler reading from src.
func NewHandler(src Source) *Handler {
	return &Handler{src: src}
}

// RegisterRoutes mounts /status (HTML) and /status/api (JSON) on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", h.handlePage)
	mux.HandleFunc("/status/", h.handlePage)
	mux.HandleFunc("/status/api", h.handleAPI)
}

func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	snap, err := h.src.Snapshot(r.Context(), 100)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(statusPageHTML))
}
