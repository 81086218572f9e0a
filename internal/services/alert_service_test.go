package services

import (
	"context"
	"strings"
	"testing"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

func newAlertFixture(t *testing.T, thresholds AlertThresholds) (orderFixture, AlertService) {
	t.Helper()
	clock := testClock(t)
	f := newOrderFixtureWithClock(t, clock)
	svc, err := NewAlertService(AlertServiceDeps{
		Inventory:  f.inventory,
		Orders:     f.registry.Orders(),
		Tx:         f.registry,
		Thresholds: thresholds,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("NewAlertService: %v", err)
	}
	return f, svc
}

func (f orderFixture) createOrder(t *testing.T, email string) domain.Order {
	t.Helper()
	order, err := f.orders.Create(context.Background(), OrderCreateCommand{
		Customer: CustomerProfile{Email: email},
		Lines:    []OrderLineInput{{ItemID: "espresso", Quantity: 1, UnitPrice: 4500}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestAlertsQuietSystem(t *testing.T) {
	f, svc := newAlertFixture(t, AlertThresholds{})
	f.seedStock(t, "espresso", 40)

	alerts, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("alerts = %v, want none", alerts)
	}
}

func TestAlertsLowStock(t *testing.T) {
	f, svc := newAlertFixture(t, AlertThresholds{})
	f.seedStock(t, "espresso", 2)

	alerts, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 || !strings.Contains(alerts[0], "low stock: espresso") {
		t.Errorf("alerts = %v, want one low-stock alert for espresso", alerts)
	}
}

func TestAlertsPendingBacklog(t *testing.T) {
	f, svc := newAlertFixture(t, AlertThresholds{PendingBacklogLimit: 2, DailyOrderLimit: 100})
	f.seedStock(t, "espresso", 40)

	for i := 0; i < 3; i++ {
		f.createOrder(t, "diego@example.com")
	}

	alerts, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var found bool
	for _, a := range alerts {
		if strings.Contains(a, "order backlog: 3 orders pending") {
			found = true
		}
	}
	if !found {
		t.Errorf("alerts = %v, want backlog alert", alerts)
	}
}

func TestAlertsBacklogAtLimitDoesNotFire(t *testing.T) {
	f, svc := newAlertFixture(t, AlertThresholds{PendingBacklogLimit: 3, DailyOrderLimit: 100})
	f.seedStock(t, "espresso", 40)

	for i := 0; i < 3; i++ {
		f.createOrder(t, "diego@example.com")
	}

	alerts, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for _, a := range alerts {
		if strings.Contains(a, "order backlog") {
			t.Errorf("backlog alert fired at exactly the limit: %v", alerts)
		}
	}
}

func TestAlertsHighDailyVolume(t *testing.T) {
	f, svc := newAlertFixture(t, AlertThresholds{PendingBacklogLimit: 100, DailyOrderLimit: 2})
	f.seedStock(t, "espresso", 40)

	orderIDs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		orderIDs = append(orderIDs, f.createOrder(t, "diego@example.com").ID)
	}
	// Completed orders still count toward the day's volume.
	for _, id := range orderIDs {
		if _, err := f.orders.UpdateStatus(context.Background(), id, domain.StatusCompleted); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	}

	alerts, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var found bool
	for _, a := range alerts {
		if strings.Contains(a, "high volume: 3 orders today") {
			found = true
		}
	}
	if !found {
		t.Errorf("alerts = %v, want high-volume alert", alerts)
	}
}
