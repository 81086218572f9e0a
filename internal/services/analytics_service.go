package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/repositories"
)

const topItemsLimit = 10

// AnalyticsServiceDeps bundles the read-side collaborators for reporting.
// Alerts and Narrator are optional; NarratedReport degrades without them.
type AnalyticsServiceDeps struct {
	Orders    repositories.OrderRepository
	Bookings  repositories.BookingRepository
	Customers repositories.CustomerRepository
	Tx        repositories.UnitOfWork
	Alerts    AlertService
	Narrator  Narrator
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type analyticsService struct {
	orders    repositories.OrderRepository
	bookings  repositories.BookingRepository
	customers repositories.CustomerRepository
	tx        repositories.UnitOfWork
	alerts    AlertService
	narrator  Narrator
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewAnalyticsService wires dependencies into an AnalyticsService implementation.
func NewAnalyticsService(deps AnalyticsServiceDeps) (AnalyticsService, error) {
	if deps.Orders == nil || deps.Bookings == nil || deps.Customers == nil {
		return nil, errors.New("analytics service: order, booking and customer repositories are required")
	}
	if deps.Tx == nil {
		return nil, errors.New("analytics service: unit of work is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &analyticsService{
		orders:    deps.Orders,
		bookings:  deps.Bookings,
		customers: deps.Customers,
		tx:        deps.Tx,
		alerts:    deps.Alerts,
		narrator:  deps.Narrator,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Report recomputes the projection for the period from the commercial logs.
// Nothing is cached or persisted; an empty window yields explicit zeroes. The
// three reads run inside one storage unit so the report never mixes state from
// concurrent writes.
func (s *analyticsService) Report(ctx context.Context, period Period) (AnalyticsReport, error) {
	now := s.clock()
	from, to := period.WindowEnding(now)
	dateRange := domain.RangeQuery[time.Time]{From: &from, To: &to}

	var (
		orders    []domain.Order
		bookings  []domain.Booking
		customers []domain.Customer
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if orders, err = s.orders.List(ctx, repositories.OrderListFilter{DateRange: dateRange}); err != nil {
			return err
		}
		if bookings, err = s.bookings.List(ctx, repositories.BookingListFilter{DateRange: dateRange}); err != nil {
			return err
		}
		customers, err = s.customers.List(ctx)
		return err
	})
	if err != nil {
		return AnalyticsReport{}, mapRepoError(err)
	}

	report := AnalyticsReport{
		Period:      period,
		From:        from,
		To:          to,
		Revenue:     RevenueSummary{ByCurrency: make(map[domain.Currency]int64)},
		GeneratedAt: now,
	}

	itemRevenue := make(map[string]int64)
	var itemOrder []string
	transacted := make(map[string]struct{})
	for _, order := range orders {
		report.Revenue.Total += order.Total
		report.Revenue.ByCurrency[order.Currency] += order.Total
		for _, line := range order.Lines {
			if _, seen := itemRevenue[line.ItemID]; !seen {
				itemOrder = append(itemOrder, line.ItemID)
			}
			itemRevenue[line.ItemID] += int64(line.Quantity) * line.UnitPrice
		}
		if order.CustomerID != "" {
			transacted[order.CustomerID] = struct{}{}
		}
	}
	for _, booking := range bookings {
		report.Revenue.Total += booking.Total
		report.Revenue.ByCurrency[booking.Currency] += booking.Total
		if booking.Status == domain.StatusCompleted {
			report.Events.Attendance++
		}
		report.Events.Revenue += booking.Total
		if booking.CustomerID != "" {
			transacted[booking.CustomerID] = struct{}{}
		}
	}

	report.TopItems = rankItems(itemRevenue, itemOrder)
	report.Customers.New = len(transacted)

	var foreign int
	for _, customer := range customers {
		report.Customers.Total++
		if customer.Origin == domain.OriginForeign {
			foreign++
		}
	}
	if report.Customers.Total > 0 {
		report.Customers.ForeignPercentage = float64(foreign) / float64(report.Customers.Total) * 100
	}

	return report, nil
}

// NarratedReport layers current alerts and optional free-form narration on the
// structured report. Narration failure is logged and swallowed; the structured
// data is always returned.
func (s *analyticsService) NarratedReport(ctx context.Context, period Period) (NarratedReport, error) {
	report, err := s.Report(ctx, period)
	if err != nil {
		return NarratedReport{}, err
	}

	narrated := NarratedReport{Report: report}

	if s.alerts != nil {
		alerts, err := s.alerts.Evaluate(ctx)
		if err != nil {
			return NarratedReport{}, err
		}
		narrated.Alerts = alerts
	}

	if s.narrator != nil {
		narrative, err := s.narrator.Narrate(ctx, report, narrated.Alerts)
		if err != nil {
			s.logger(ctx, "analytics.narration_failed", map[string]any{
				"period": string(period),
				"error":  err.Error(),
			})
		} else {
			narrated.Narrative = narrative
		}
	}

	return narrated, nil
}

// rankItems orders items by revenue descending. The stable sort over the
// first-seen order keeps ties ranked by the order items entered the window.
func rankItems(revenue map[string]int64, firstSeen []string) []TopItem {
	items := make([]TopItem, 0, len(revenue))
	for _, itemID := range firstSeen {
		items = append(items, TopItem{ItemID: itemID, Revenue: revenue[itemID]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Revenue > items[j].Revenue
	})
	if len(items) > topItemsLimit {
		items = items[:topItemsLimit]
	}
	return items
}
