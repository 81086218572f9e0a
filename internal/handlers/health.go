package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/platform/httpx"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	started time.Time
	store   Pinger
}

// NewHealthHandlers constructs health handlers; store may be nil when the
// service runs against the in-memory store.
func NewHealthHandlers(store Pinger) *HealthHandlers {
	return &HealthHandlers{started: time.Now(), store: store}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports readiness, checking the key-value store when configured.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("not_ready", "store unreachable", http.StatusServiceUnavailable))
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ready"})
}
