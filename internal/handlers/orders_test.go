package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

type stubOrderService struct {
	createFn func(context.Context, services.OrderCreateCommand) (domain.Order, error)
	getFn    func(context.Context, string) (domain.Order, error)
	listFn   func(context.Context, services.OrderListFilter) ([]domain.Order, error)
	statusFn func(context.Context, string, domain.RecordStatus) (domain.Order, error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.OrderCreateCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) List(ctx context.Context, filter services.OrderListFilter) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, orderID string, next domain.RecordStatus) (domain.Order, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, orderID, next)
	}
	return domain.Order{}, errors.New("not implemented")
}

func newOrderRouter(service services.OrderService) chi.Router {
	router := chi.NewRouter()
	router.Route("/orders", NewOrderHandlers(service).Routes)
	return router
}

func TestOrderHandlersCreateOrder(t *testing.T) {
	var captured services.OrderCreateCommand
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.OrderCreateCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{
				ID:         "ord_01",
				CustomerID: "cus_01",
				Total:      17000,
				Currency:   domain.CurrencyCOP,
				Status:     domain.StatusPending,
				CreatedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			}, nil
		},
	}

	body := []byte(`{
		"customer": {"name": "Diana", "email": "Diana@Example.com"},
		"lines": [{"itemId": "espresso", "quantity": 2, "unitPrice": 4500}],
		"currency": "cop",
		"fulfillment": "dine_in"
	}`)

	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Customer.Email != "Diana@Example.com" {
		t.Fatalf("expected raw email forwarded to service, got %q", captured.Customer.Email)
	}
	if captured.Currency != domain.CurrencyCOP {
		t.Fatalf("expected uppercased currency COP, got %q", captured.Currency)
	}
	if len(captured.Lines) != 1 || captured.Lines[0].ItemID != "espresso" || captured.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines: %#v", captured.Lines)
	}

	var created domain.Order
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if created.ID != "ord_01" || created.Total != 17000 {
		t.Fatalf("unexpected order payload: %#v", created)
	}
}

func TestOrderHandlersCreateOrderMalformedBody(t *testing.T) {
	rr := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("{not json"))))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "invalid_request")
}

func TestOrderHandlersCreateOrderInsufficientStock(t *testing.T) {
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.OrderCreateCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: espresso", services.ErrInsufficientStock)
		},
	}

	body := []byte(`{"customer": {"email": "a@b.co"}, "lines": [{"itemId": "espresso", "quantity": 99, "unitPrice": 4500}]}`)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "insufficient_stock")
}

func TestOrderHandlersListOrdersFilters(t *testing.T) {
	fromExpected := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	toExpected := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	var captured services.OrderListFilter
	service := &stubOrderService{
		listFn: func(ctx context.Context, filter services.OrderListFilter) ([]domain.Order, error) {
			captured = filter
			return []domain.Order{{ID: "ord_01", Status: domain.StatusPending}}, nil
		},
	}

	target := "/orders?status=pending,confirmed&customer_id=cus_01&created_after=2026-03-01T00:00:00Z&created_before=2026-04-01T00:00:00Z"
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.CustomerID != "cus_01" {
		t.Fatalf("expected customer filter cus_01, got %q", captured.CustomerID)
	}
	if len(captured.Status) != 2 || captured.Status[0] != domain.StatusPending || captured.Status[1] != domain.StatusConfirmed {
		t.Fatalf("unexpected status filters: %#v", captured.Status)
	}
	if captured.DateRange.From == nil || !captured.DateRange.From.Equal(fromExpected) {
		t.Fatalf("unexpected range start: %#v", captured.DateRange.From)
	}
	if captured.DateRange.To == nil || !captured.DateRange.To.Equal(toExpected) {
		t.Fatalf("unexpected range end: %#v", captured.DateRange.To)
	}

	var resp struct {
		Items []domain.Order `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "ord_01" {
		t.Fatalf("unexpected items: %#v", resp.Items)
	}
}

func TestOrderHandlersListOrdersRejectsUnknownStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders?status=shipped", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersListOrdersRejectsBadDate(t *testing.T) {
	rr := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders?created_after=yesterday", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: order %s", services.ErrNotFound, orderID)
		},
	}

	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/ord_missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "not_found")
}

func TestOrderHandlersUpdateStatus(t *testing.T) {
	var capturedID string
	var capturedNext domain.RecordStatus
	service := &stubOrderService{
		statusFn: func(ctx context.Context, orderID string, next domain.RecordStatus) (domain.Order, error) {
			capturedID = orderID
			capturedNext = next
			return domain.Order{ID: orderID, Status: next}, nil
		},
	}

	body := []byte(`{"status": "confirmed"}`)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/ord_01/status", bytes.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedID != "ord_01" || capturedNext != domain.StatusConfirmed {
		t.Fatalf("unexpected transition call: %s -> %s", capturedID, capturedNext)
	}
}

func TestOrderHandlersUpdateStatusInvalidTransition(t *testing.T) {
	service := &stubOrderService{
		statusFn: func(ctx context.Context, orderID string, next domain.RecordStatus) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: completed is terminal", services.ErrInvalidTransition)
		},
	}

	body := []byte(`{"status": "pending"}`)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/ord_01/status", bytes.NewReader(body)))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "invalid_transition")
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse error envelope: %v", err)
	}
	if envelope.Error != want {
		t.Fatalf("expected error code %q, got %q", want, envelope.Error)
	}
}
