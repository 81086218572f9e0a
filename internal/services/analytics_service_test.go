package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

type stubNarrator struct {
	text   string
	err    error
	called bool
}

func (n *stubNarrator) Narrate(_ context.Context, _ AnalyticsReport, _ []string) (string, error) {
	n.called = true
	return n.text, n.err
}

type stubAlerts struct {
	alerts []string
	err    error
}

func (a *stubAlerts) Evaluate(context.Context) ([]string, error) {
	return a.alerts, a.err
}

type analyticsFixture struct {
	orderFixture
	bookings  BookingService
	analytics AnalyticsService
	narrator  *stubNarrator
	alerts    *stubAlerts
}

func newAnalyticsFixture(t *testing.T) analyticsFixture {
	t.Helper()
	clock := testClock(t)
	f := newOrderFixtureWithClock(t, clock)

	bookings, err := NewBookingService(BookingServiceDeps{
		Bookings:    f.registry.Bookings(),
		Ledger:      f.ledger,
		Tx:          f.registry,
		Clock:       clock,
		IDGenerator: seqIDs(),
	})
	if err != nil {
		t.Fatalf("NewBookingService: %v", err)
	}

	narrator := &stubNarrator{text: "a solid day at the counter"}
	alerts := &stubAlerts{}
	analytics, err := NewAnalyticsService(AnalyticsServiceDeps{
		Orders:    f.registry.Orders(),
		Bookings:  f.registry.Bookings(),
		Customers: f.registry.Customers(),
		Tx:        f.registry,
		Alerts:    alerts,
		Narrator:  narrator,
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("NewAnalyticsService: %v", err)
	}
	return analyticsFixture{
		orderFixture: f,
		bookings:     bookings,
		analytics:    analytics,
		narrator:     narrator,
		alerts:       alerts,
	}
}

func TestAnalyticsEmptyWindowYieldsZeroes(t *testing.T) {
	f := newAnalyticsFixture(t)

	report, err := f.analytics.Report(context.Background(), PeriodDay)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Revenue.Total != 0 {
		t.Errorf("revenue = %d, want 0", report.Revenue.Total)
	}
	if len(report.Revenue.ByCurrency) != 0 {
		t.Errorf("by currency = %v, want empty", report.Revenue.ByCurrency)
	}
	if report.Customers.Total != 0 || report.Customers.ForeignPercentage != 0 {
		t.Errorf("customers = %+v, want zeroes", report.Customers)
	}
	if len(report.TopItems) != 0 {
		t.Errorf("top items = %v, want none", report.TopItems)
	}
	if report.Events.Attendance != 0 || report.Events.Revenue != 0 {
		t.Errorf("events = %+v, want zeroes", report.Events)
	}
}

func TestAnalyticsReportAggregatesWindow(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()
	f.seedStock(t, "espresso", 50)
	f.seedStock(t, "cheesecake", 50)

	if _, err := f.orders.Create(ctx, OrderCreateCommand{
		Customer: CustomerProfile{Email: "local@example.com", Origin: domain.OriginDomestic},
		Lines: []OrderLineInput{
			{ItemID: "espresso", Quantity: 2, UnitPrice: 4500},
			{ItemID: "cheesecake", Quantity: 1, UnitPrice: 8000},
		},
	}); err != nil {
		t.Fatalf("domestic order: %v", err)
	}
	if _, err := f.orders.Create(ctx, OrderCreateCommand{
		Customer: CustomerProfile{Email: "visitor@example.com", Origin: domain.OriginForeign},
		Lines:    []OrderLineInput{{ItemID: "espresso", Quantity: 1, UnitPrice: 6750}},
		Currency: domain.CurrencyUSD,
	}); err != nil {
		t.Fatalf("foreign order: %v", err)
	}
	booking, err := f.bookings.Create(ctx, BookingCreateCommand{
		Customer:     CustomerProfile{Email: "visitor@example.com", Origin: domain.OriginForeign},
		ServiceID:    "coffee-tasting",
		Date:         "2026-03-14",
		Time:         "16:00",
		Participants: 4,
		ServicePrice: 10000,
	})
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if _, err := f.bookings.UpdateStatus(ctx, booking.ID, domain.StatusCompleted); err != nil {
		t.Fatalf("complete booking: %v", err)
	}

	report, err := f.analytics.Report(ctx, PeriodDay)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	// Orders 17000 COP + 6750 USD, booking 4 x 15000 USD.
	if report.Revenue.Total != 17000+6750+60000 {
		t.Errorf("revenue total = %d", report.Revenue.Total)
	}
	if report.Revenue.ByCurrency[domain.CurrencyCOP] != 17000 {
		t.Errorf("COP revenue = %d", report.Revenue.ByCurrency[domain.CurrencyCOP])
	}
	if report.Revenue.ByCurrency[domain.CurrencyUSD] != 66750 {
		t.Errorf("USD revenue = %d", report.Revenue.ByCurrency[domain.CurrencyUSD])
	}

	if report.Customers.Total != 2 || report.Customers.New != 2 {
		t.Errorf("customers = %+v, want 2 total / 2 new", report.Customers)
	}
	if report.Customers.ForeignPercentage != 50 {
		t.Errorf("foreign %% = %v, want 50", report.Customers.ForeignPercentage)
	}

	// espresso 9000+6750, cheesecake 8000.
	if len(report.TopItems) != 2 {
		t.Fatalf("top items = %v", report.TopItems)
	}
	if report.TopItems[0].ItemID != "espresso" || report.TopItems[0].Revenue != 15750 {
		t.Errorf("top item = %+v", report.TopItems[0])
	}

	if report.Events.Attendance != 1 || report.Events.Revenue != 60000 {
		t.Errorf("events = %+v", report.Events)
	}
}

func TestAnalyticsAttendanceCountsCompletedBookings(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()

	completed, err := f.bookings.Create(ctx, BookingCreateCommand{
		Customer:     CustomerProfile{Email: "visitor@example.com"},
		ServiceID:    "coffee-tasting",
		Date:         "2026-03-14",
		Time:         "16:00",
		Participants: 3,
		ServicePrice: 10000,
	})
	if err != nil {
		t.Fatalf("completed booking: %v", err)
	}
	if _, err := f.bookings.UpdateStatus(ctx, completed.ID, domain.StatusCompleted); err != nil {
		t.Fatalf("complete booking: %v", err)
	}
	if _, err := f.bookings.Create(ctx, BookingCreateCommand{
		Customer:     CustomerProfile{Email: "maybe@example.com"},
		ServiceID:    "latte-art",
		Date:         "2026-03-14",
		Time:         "18:00",
		Participants: 2,
		ServicePrice: 5000,
	}); err != nil {
		t.Fatalf("pending booking: %v", err)
	}

	report, err := f.analytics.Report(ctx, PeriodDay)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Events.Attendance != 1 {
		t.Errorf("attendance = %d, want only the completed booking", report.Events.Attendance)
	}
	if report.Events.Revenue != 30000+10000 {
		t.Errorf("events revenue = %d, want both bookings summed", report.Events.Revenue)
	}
}

func TestAnalyticsNewCustomersRequireWindowTransaction(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()
	f.seedStock(t, "espresso", 10)

	// Registered but with no order or booking in the window.
	if _, err := f.ledger.UpsertByEmail(ctx, LedgerUpsertCommand{
		Profile: CustomerProfile{Email: "regular@example.com"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := f.orders.Create(ctx, OrderCreateCommand{
		Customer: CustomerProfile{Email: "buyer@example.com"},
		Lines:    []OrderLineInput{{ItemID: "espresso", Quantity: 1, UnitPrice: 4500}},
	}); err != nil {
		t.Fatalf("order: %v", err)
	}

	report, err := f.analytics.Report(ctx, PeriodDay)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Customers.Total != 2 {
		t.Errorf("total = %d, want 2", report.Customers.Total)
	}
	if report.Customers.New != 1 {
		t.Errorf("new = %d, want only the transacting customer", report.Customers.New)
	}
}

func TestAnalyticsTopItemsStableOrdering(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()
	for _, item := range []string{"arepa", "espresso", "cheesecake"} {
		f.seedStock(t, item, 50)
	}

	// Equal revenue across all three items.
	if _, err := f.orders.Create(ctx, OrderCreateCommand{
		Customer: CustomerProfile{Email: "local@example.com"},
		Lines: []OrderLineInput{
			{ItemID: "espresso", Quantity: 2, UnitPrice: 3000},
			{ItemID: "arepa", Quantity: 3, UnitPrice: 2000},
			{ItemID: "cheesecake", Quantity: 1, UnitPrice: 6000},
		},
	}); err != nil {
		t.Fatalf("order: %v", err)
	}

	report, err := f.analytics.Report(ctx, PeriodDay)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	want := []string{"espresso", "arepa", "cheesecake"}
	if len(report.TopItems) != len(want) {
		t.Fatalf("top items = %v", report.TopItems)
	}
	for i, itemID := range want {
		if report.TopItems[i].ItemID != itemID {
			t.Errorf("rank %d = %s, want %s (ties keep first-seen order)", i, report.TopItems[i].ItemID, itemID)
		}
	}
}

func TestAnalyticsReportSeesConsistentSnapshots(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()
	f.seedStock(t, "espresso", 1000)

	const writers = 8
	const ordersPerWriter = 5

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < ordersPerWriter; i++ {
				_, err := f.orders.Create(ctx, OrderCreateCommand{
					Customer: CustomerProfile{Email: fmt.Sprintf("w%d-%d@example.com", w, i)},
					Lines:    []OrderLineInput{{ItemID: "espresso", Quantity: 1, UnitPrice: 1000}},
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Each order creation registers its customer and appends the order log in
	// one storage unit, so a report snapshot can never show more transacting
	// customers than ledger entries.
	for running := true; running; {
		report, err := f.analytics.Report(ctx, PeriodDay)
		if err != nil {
			t.Fatalf("Report: %v", err)
		}
		if report.Customers.New > report.Customers.Total {
			t.Fatalf("torn snapshot: %d transacting customers, %d ledger entries",
				report.Customers.New, report.Customers.Total)
		}
		select {
		case <-done:
			running = false
		default:
		}
	}
	select {
	case err := <-errs:
		t.Fatalf("Create: %v", err)
	default:
	}

	report, err := f.analytics.Report(ctx, PeriodDay)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if want := int64(writers * ordersPerWriter * 1000); report.Revenue.Total != want {
		t.Errorf("revenue = %d, want %d", report.Revenue.Total, want)
	}
	if report.Customers.New != writers*ordersPerWriter {
		t.Errorf("new customers = %d, want %d", report.Customers.New, writers*ordersPerWriter)
	}
}

func TestAnalyticsNarratedReport(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.alerts.alerts = []string{"low stock: espresso has 2 on hand (threshold 5)"}

	narrated, err := f.analytics.NarratedReport(context.Background(), PeriodWeek)
	if err != nil {
		t.Fatalf("NarratedReport: %v", err)
	}
	if !f.narrator.called {
		t.Fatal("narrator not invoked")
	}
	if narrated.Narrative != "a solid day at the counter" {
		t.Errorf("narrative = %q", narrated.Narrative)
	}
	if len(narrated.Alerts) != 1 {
		t.Errorf("alerts = %v", narrated.Alerts)
	}
}

func TestAnalyticsNarrationFailureIsNonFatal(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.narrator.err = errors.New("upstream offline")
	f.narrator.text = ""

	narrated, err := f.analytics.NarratedReport(context.Background(), PeriodMonth)
	if err != nil {
		t.Fatalf("NarratedReport: %v", err)
	}
	if narrated.Narrative != "" {
		t.Errorf("narrative = %q, want empty on narration failure", narrated.Narrative)
	}
	if narrated.Report.Period != PeriodMonth {
		t.Errorf("report period = %q", narrated.Report.Period)
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		raw  string
		want Period
		ok   bool
	}{
		{"", PeriodDay, true},
		{"day", PeriodDay, true},
		{"Week", PeriodWeek, true},
		{"MONTH", PeriodMonth, true},
		{"quarter", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParsePeriod(%q) = %q, %v; want %q", tc.raw, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("ParsePeriod(%q) err = %v, want ErrValidation", tc.raw, err)
		}
	}
}
