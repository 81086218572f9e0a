package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/platform/httpx"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

// CustomerHandlers exposes read access to the customer ledger.
type CustomerHandlers struct {
	ledger services.LedgerService
}

// NewCustomerHandlers constructs a new CustomerHandlers instance.
func NewCustomerHandlers(ledger services.LedgerService) *CustomerHandlers {
	return &CustomerHandlers{ledger: ledger}
}

// Routes registers the /customers endpoints.
func (h *CustomerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listByOrigin)
	r.Get("/{customerID}", h.getCustomer)
}

func (h *CustomerHandlers) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customer, err := h.ledger.Get(ctx, chi.URLParam(r, "customerID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, customer)
}

func (h *CustomerHandlers) listByOrigin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	origin := domain.OriginClass(strings.TrimSpace(r.URL.Query().Get("origin")))
	if origin == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "origin query parameter is required", http.StatusBadRequest))
		return
	}

	customers, err := h.ledger.SegmentByOrigin(ctx, origin)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": customers})
}
