package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

// AnalyticsHandlers exposes the business reporting endpoints.
type AnalyticsHandlers struct {
	analytics services.AnalyticsService
}

// NewAnalyticsHandlers constructs a new AnalyticsHandlers instance.
func NewAnalyticsHandlers(analytics services.AnalyticsService) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: analytics}
}

// Routes registers the /analytics endpoints.
func (h *AnalyticsHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/report", h.report)
	r.Get("/report/narrated", h.narratedReport)
}

func (h *AnalyticsHandlers) report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period, err := services.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	report, err := h.analytics.Report(ctx, period)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, report)
}

func (h *AnalyticsHandlers) narratedReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period, err := services.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	report, err := h.analytics.NarratedReport(ctx, period)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, report)
}
