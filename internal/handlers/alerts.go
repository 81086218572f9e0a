package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

// AlertHandlers exposes the operational alert endpoint.
type AlertHandlers struct {
	alerts services.AlertService
}

// NewAlertHandlers constructs a new AlertHandlers instance.
func NewAlertHandlers(alerts services.AlertService) *AlertHandlers {
	return &AlertHandlers{alerts: alerts}
}

// Routes registers the /alerts endpoints.
func (h *AlertHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
}

func (h *AlertHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alerts, err := h.alerts.Evaluate(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if alerts == nil {
		alerts = []string{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"alerts": alerts})
}
