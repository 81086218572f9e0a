package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

type stubLedgerService struct {
	upsertFn  func(context.Context, services.LedgerUpsertCommand) (domain.Customer, error)
	getFn     func(context.Context, string) (domain.Customer, error)
	segmentFn func(context.Context, domain.OriginClass) ([]domain.Customer, error)
}

func (s *stubLedgerService) UpsertByEmail(ctx context.Context, cmd services.LedgerUpsertCommand) (domain.Customer, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, cmd)
	}
	return domain.Customer{}, errors.New("not implemented")
}

func (s *stubLedgerService) Get(ctx context.Context, customerID string) (domain.Customer, error) {
	if s.getFn != nil {
		return s.getFn(ctx, customerID)
	}
	return domain.Customer{}, errors.New("not implemented")
}

func (s *stubLedgerService) SegmentByOrigin(ctx context.Context, origin domain.OriginClass) ([]domain.Customer, error) {
	if s.segmentFn != nil {
		return s.segmentFn(ctx, origin)
	}
	return nil, nil
}

func newCustomerRouter(service services.LedgerService) chi.Router {
	router := chi.NewRouter()
	router.Route("/customers", NewCustomerHandlers(service).Routes)
	return router
}

func TestCustomerHandlersGetCustomer(t *testing.T) {
	service := &stubLedgerService{
		getFn: func(ctx context.Context, customerID string) (domain.Customer, error) {
			return domain.Customer{ID: customerID, Email: "diana@example.com", LifetimeSpend: 17000}, nil
		},
	}

	rr := httptest.NewRecorder()
	newCustomerRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/cus_01", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var customer domain.Customer
	if err := json.Unmarshal(rr.Body.Bytes(), &customer); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if customer.ID != "cus_01" || customer.LifetimeSpend != 17000 {
		t.Fatalf("unexpected customer: %#v", customer)
	}
}

func TestCustomerHandlersGetCustomerNotFound(t *testing.T) {
	service := &stubLedgerService{
		getFn: func(ctx context.Context, customerID string) (domain.Customer, error) {
			return domain.Customer{}, fmt.Errorf("%w: customer %s", services.ErrNotFound, customerID)
		},
	}

	rr := httptest.NewRecorder()
	newCustomerRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/cus_missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCustomerHandlersSegmentByOrigin(t *testing.T) {
	var captured domain.OriginClass
	service := &stubLedgerService{
		segmentFn: func(ctx context.Context, origin domain.OriginClass) ([]domain.Customer, error) {
			captured = origin
			return []domain.Customer{{ID: "cus_01", Origin: origin}}, nil
		},
	}

	rr := httptest.NewRecorder()
	newCustomerRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers?origin=foreign", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured != domain.OriginForeign {
		t.Fatalf("expected foreign origin filter, got %q", captured)
	}
}

func TestCustomerHandlersSegmentRequiresOrigin(t *testing.T) {
	rr := httptest.NewRecorder()
	newCustomerRouter(&stubLedgerService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "invalid_request")
}
