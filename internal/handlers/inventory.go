package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/platform/httpx"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

type restockRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	UnitCost int64  `json:"unitCost"`
}

// InventoryHandlers exposes the stock-tracking endpoints.
type InventoryHandlers struct {
	inventory services.InventoryService
}

// NewInventoryHandlers constructs a new InventoryHandlers instance.
func NewInventoryHandlers(inventory services.InventoryService) *InventoryHandlers {
	return &InventoryHandlers{inventory: inventory}
}

// Routes registers the /inventory endpoints.
func (h *InventoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listItems)
	r.Get("/low-stock", h.lowStock)
	r.Post("/restock", h.restock)
	r.Post("/{itemID}/adjust", h.adjust)
}

func (h *InventoryHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.inventory.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": items})
}

func (h *InventoryHandlers) lowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.inventory.LowStock(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": items})
}

func (h *InventoryHandlers) restock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req restockRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	item, err := h.inventory.Restock(ctx, services.RestockCommand{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, item)
}

func (h *InventoryHandlers) adjust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adjustStockRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	item, err := h.inventory.Adjust(ctx, chi.URLParam(r, "itemID"), req.Delta)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, item)
}
