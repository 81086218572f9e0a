package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/platform/httpx"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

type createBookingRequest struct {
	Customer     customerPayload `json:"customer"`
	ServiceID    string          `json:"serviceId"`
	Date         string          `json:"date"`
	Time         string          `json:"time"`
	Participants int             `json:"participants"`
	ServicePrice int64           `json:"servicePrice"`
	Total        int64           `json:"total,omitempty"`
	Currency     string          `json:"currency,omitempty"`
}

// BookingHandlers exposes the booking endpoints.
type BookingHandlers struct {
	bookings services.BookingService
}

// NewBookingHandlers constructs a new BookingHandlers instance.
func NewBookingHandlers(bookings services.BookingService) *BookingHandlers {
	return &BookingHandlers{bookings: bookings}
}

// Routes registers the /bookings endpoints.
func (h *BookingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createBooking)
	r.Get("/", h.listBookings)
	r.Get("/{bookingID}", h.getBooking)
	r.Post("/{bookingID}/status", h.updateStatus)
}

func (h *BookingHandlers) createBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createBookingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	booking, err := h.bookings.Create(ctx, services.BookingCreateCommand{
		Customer:     req.Customer.toProfile(),
		ServiceID:    req.ServiceID,
		Date:         req.Date,
		Time:         req.Time,
		Participants: req.Participants,
		ServicePrice: req.ServicePrice,
		Total:        req.Total,
		Currency:     domain.Currency(strings.ToUpper(strings.TrimSpace(req.Currency))),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, booking)
}

func (h *BookingHandlers) listBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	statuses, err := parseStatusFilters(query["status"])
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	dateRange, err := parseDateRange(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	bookings, err := h.bookings.List(ctx, services.BookingListFilter{
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		Status:     statuses,
		DateRange:  dateRange,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": bookings})
}

func (h *BookingHandlers) getBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	booking, err := h.bookings.Get(ctx, chi.URLParam(r, "bookingID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, booking)
}

func (h *BookingHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req statusUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	booking, err := h.bookings.UpdateStatus(ctx, chi.URLParam(r, "bookingID"), domain.RecordStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, booking)
}
