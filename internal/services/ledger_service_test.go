package services

import (
	"context"
	"errors"
	"testing"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

func newTestLedger(t *testing.T) LedgerService {
	t.Helper()
	registry := newTestRegistry(t)
	svc, err := NewLedgerService(LedgerServiceDeps{
		Customers:   registry.Customers(),
		Tx:          registry,
		Clock:       testClock(t),
		IDGenerator: seqIDs(),
	})
	if err != nil {
		t.Fatalf("NewLedgerService: %v", err)
	}
	return svc
}

func TestLedgerUpsertCreatesCustomerOnFirstContact(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	customer, err := svc.UpsertByEmail(ctx, LedgerUpsertCommand{
		Profile: CustomerProfile{
			Name:   "Ana Torres",
			Email:  "Ana@Example.COM",
			Origin: domain.OriginForeign,
		},
		DeltaSpend: 15000,
		OrderRef:   "ord_1",
	})
	if err != nil {
		t.Fatalf("UpsertByEmail: %v", err)
	}
	if customer.Email != "ana@example.com" {
		t.Errorf("email not normalised: %q", customer.Email)
	}
	if customer.LifetimeSpend != 15000 {
		t.Errorf("lifetime spend = %d, want 15000", customer.LifetimeSpend)
	}
	if !customer.HasOrderRef("ord_1") {
		t.Error("order ref not linked")
	}
	if customer.Origin != domain.OriginForeign {
		t.Errorf("origin = %q", customer.Origin)
	}
}

func TestLedgerUpsertAccumulatesSpendAcrossTransactions(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	first, err := svc.UpsertByEmail(ctx, LedgerUpsertCommand{
		Profile:    CustomerProfile{Email: "ana@example.com"},
		DeltaSpend: 10000,
		OrderRef:   "ord_1",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := svc.UpsertByEmail(ctx, LedgerUpsertCommand{
		Profile:    CustomerProfile{Email: "ana@example.com"},
		DeltaSpend: 7000,
		BookingRef: "bkg_1",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected one customer, got %s and %s", first.ID, second.ID)
	}
	if second.LifetimeSpend != 17000 {
		t.Errorf("lifetime spend = %d, want 17000", second.LifetimeSpend)
	}
	if !second.HasOrderRef("ord_1") || !second.HasBookingRef("bkg_1") {
		t.Error("refs not accumulated")
	}
}

func TestLedgerUpsertIsIdempotentPerRef(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cmd := LedgerUpsertCommand{
		Profile:    CustomerProfile{Email: "ana@example.com"},
		DeltaSpend: 9000,
		OrderRef:   "ord_1",
	}
	if _, err := svc.UpsertByEmail(ctx, cmd); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	replayed, err := svc.UpsertByEmail(ctx, cmd)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.LifetimeSpend != 9000 {
		t.Errorf("replay changed spend to %d, want 9000", replayed.LifetimeSpend)
	}
	if len(replayed.OrderIDs) != 1 {
		t.Errorf("replay duplicated ref list: %v", replayed.OrderIDs)
	}
}

func TestLedgerUpsertValidation(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  LedgerUpsertCommand
	}{
		{"missing email", LedgerUpsertCommand{DeltaSpend: 100}},
		{"negative delta", LedgerUpsertCommand{
			Profile:    CustomerProfile{Email: "a@b.co"},
			DeltaSpend: -1,
		}},
		{"both refs", LedgerUpsertCommand{
			Profile:    CustomerProfile{Email: "a@b.co"},
			OrderRef:   "ord_1",
			BookingRef: "bkg_1",
		}},
		{"bad origin", LedgerUpsertCommand{
			Profile: CustomerProfile{Email: "a@b.co", Origin: "martian"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.UpsertByEmail(ctx, tc.cmd); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestLedgerSegmentByOrigin(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	seed := []struct {
		email  string
		origin domain.OriginClass
	}{
		{"local1@example.com", domain.OriginDomestic},
		{"visitor@example.com", domain.OriginForeign},
		{"local2@example.com", domain.OriginDomestic},
	}
	for _, s := range seed {
		if _, err := svc.UpsertByEmail(ctx, LedgerUpsertCommand{
			Profile: CustomerProfile{Email: s.email, Origin: s.origin},
		}); err != nil {
			t.Fatalf("seed %s: %v", s.email, err)
		}
	}

	foreign, err := svc.SegmentByOrigin(ctx, domain.OriginForeign)
	if err != nil {
		t.Fatalf("SegmentByOrigin: %v", err)
	}
	if len(foreign) != 1 || foreign[0].Email != "visitor@example.com" {
		t.Errorf("foreign segment = %+v", foreign)
	}

	domestic, err := svc.SegmentByOrigin(ctx, domain.OriginDomestic)
	if err != nil {
		t.Fatalf("SegmentByOrigin: %v", err)
	}
	if len(domestic) != 2 {
		t.Errorf("domestic segment has %d customers, want 2", len(domestic))
	}
}

func TestLedgerGetUnknownCustomer(t *testing.T) {
	svc := newTestLedger(t)
	if _, err := svc.Get(context.Background(), "cus_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
