package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/payments"
	"github.com/eatsalad239/gato-blanco-ops/internal/platform/httpx"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

type cardPayload struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
	CVV      string `json:"cvv"`
	Holder   string `json:"holder"`
}

type processPaymentRequest struct {
	Amount      int64        `json:"amount"`
	Currency    string       `json:"currency"`
	Method      string       `json:"method"`
	CustomerID  string       `json:"customerId"`
	OrderID     string       `json:"orderId"`
	BookingID   string       `json:"bookingId"`
	Card        *cardPayload `json:"card"`
	WalletToken string       `json:"walletToken"`
}

type checkoutSessionRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	CustomerID  string `json:"customerId"`
	Reference   string `json:"reference"`
}

// PaymentHandlers exposes settlement and payment-analytics endpoints.
type PaymentHandlers struct {
	payments services.PaymentService
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(paymentsSvc services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{payments: paymentsSvc}
}

// Routes registers the /payments endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.process)
	r.Post("/checkout-session", h.createCheckoutSession)
	r.Get("/analytics", h.analytics)
}

func (h *PaymentHandlers) process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req processPaymentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.PaymentCommand{
		Amount:      req.Amount,
		Currency:    domain.Currency(strings.ToUpper(req.Currency)),
		Method:      domain.PaymentMethod(strings.ToLower(req.Method)),
		CustomerID:  req.CustomerID,
		OrderID:     req.OrderID,
		BookingID:   req.BookingID,
		WalletToken: req.WalletToken,
	}
	if req.Card != nil {
		cmd.Card = &payments.CardDetails{
			Number:   req.Card.Number,
			ExpMonth: req.Card.ExpMonth,
			ExpYear:  req.Card.ExpYear,
			CVV:      req.Card.CVV,
			Holder:   req.Card.Holder,
		}
	}

	result, err := h.payments.Process(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	// Declines and timeouts are recorded outcomes, not transport errors.
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusPaymentRequired
	}
	writeJSONResponse(w, status, map[string]any{
		"success":       result.Success,
		"transactionId": result.TransactionID,
		"errorKind":     result.ErrorKind,
	})
}

func (h *PaymentHandlers) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutSessionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.payments.CreateCheckoutSession(ctx, services.CheckoutSessionCommand{
		Amount:      req.Amount,
		Currency:    domain.Currency(strings.ToUpper(req.Currency)),
		Description: req.Description,
		CustomerID:  req.CustomerID,
		Reference:   req.Reference,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"reference":   session.Reference,
		"amount":      session.AmountInMinorUnits,
		"redirectUrl": session.RedirectURL,
		"expiresAt":   session.ExpiresAt,
	})
}

func (h *PaymentHandlers) analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period, err := services.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	report, err := h.payments.Analytics(ctx, period)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, report)
}
