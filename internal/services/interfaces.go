package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/payments"
)

// CustomerProfile identifies the transacting customer on create commands.
// Email is the dedup key; a new customer is backfilled on first use.
type CustomerProfile struct {
	Name   string
	Email  string
	Phone  string
	Origin domain.OriginClass
}

// LedgerUpsertCommand applies one transaction's effect to a customer record.
// At most one of OrderRef/BookingRef is set; the ref makes the upsert
// idempotent under retry.
type LedgerUpsertCommand struct {
	Profile    CustomerProfile
	DeltaSpend int64
	OrderRef   string
	BookingRef string
}

// LedgerService owns customer records and their running lifetime spend.
type LedgerService interface {
	UpsertByEmail(ctx context.Context, cmd LedgerUpsertCommand) (domain.Customer, error)
	Get(ctx context.Context, customerID string) (domain.Customer, error)
	SegmentByOrigin(ctx context.Context, origin domain.OriginClass) ([]domain.Customer, error)
}

// RestockCommand adds stock for an item, creating the record when unseen.
type RestockCommand struct {
	ItemID   string
	Quantity int
	UnitCost int64
}

// InventoryService owns stock quantities. It is the only component permitted
// to mutate quantity on hand.
type InventoryService interface {
	Adjust(ctx context.Context, itemID string, delta int) (domain.InventoryItem, error)
	Restock(ctx context.Context, cmd RestockCommand) (domain.InventoryItem, error)
	LowStock(ctx context.Context) ([]domain.InventoryItem, error)
	List(ctx context.Context) ([]domain.InventoryItem, error)
}

// OrderLineInput is one requested line on an order create command.
type OrderLineInput struct {
	ItemID    string
	Name      string
	Quantity  int
	UnitPrice int64
}

// OrderCreateCommand captures a checkout request. Total is the client-computed
// amount and must match the recomputed line total within tolerance.
type OrderCreateCommand struct {
	Customer    CustomerProfile
	Lines       []OrderLineInput
	Total       int64
	Currency    domain.Currency
	Fulfillment domain.FulfillmentType
}

// OrderListFilter narrows order listings; populated fields are conjunctive and
// the date range is half-open [From, To).
type OrderListFilter struct {
	CustomerID string
	Status     []domain.RecordStatus
	DateRange  domain.RangeQuery[time.Time]
}

// OrderService records menu purchases and drives their status lifecycle.
type OrderService interface {
	Create(ctx context.Context, cmd OrderCreateCommand) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, next domain.RecordStatus) (domain.Order, error)
}

// BookingCreateCommand captures a reservation request. ServicePrice is the
// base per-participant price the pricing policy is applied to.
type BookingCreateCommand struct {
	Customer     CustomerProfile
	ServiceID    string
	Date         string
	Time         string
	Participants int
	ServicePrice int64
	Total        int64
	Currency     domain.Currency
}

// BookingListFilter mirrors OrderListFilter for bookings.
type BookingListFilter struct {
	CustomerID string
	Status     []domain.RecordStatus
	DateRange  domain.RangeQuery[time.Time]
}

// BookingService records service/event reservations.
type BookingService interface {
	Create(ctx context.Context, cmd BookingCreateCommand) (domain.Booking, error)
	Get(ctx context.Context, bookingID string) (domain.Booking, error)
	List(ctx context.Context, filter BookingListFilter) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, next domain.RecordStatus) (domain.Booking, error)
}

// PaymentCommand requests settlement of an amount via a method. Card details
// and wallet tokens are forwarded to the gateway and never persisted.
type PaymentCommand struct {
	Amount      int64
	Currency    domain.Currency
	Method      domain.PaymentMethod
	CustomerID  string
	OrderID     string
	BookingID   string
	Card        *payments.CardDetails
	WalletToken string
}

// PaymentResult reports the settlement outcome. Declines set Success false
// with the audit transaction id of the recorded failed attempt.
type PaymentResult struct {
	Success       bool
	TransactionID string
	ErrorKind     string
}

// CheckoutSessionCommand requests a hosted checkout redirect.
type CheckoutSessionCommand struct {
	Amount      int64
	Currency    domain.Currency
	Description string
	CustomerID  string
	Reference   string
}

// PaymentAnalytics aggregates settled transactions over a period.
type PaymentAnalytics struct {
	Period         Period
	TotalVolume    int64
	TotalFees      int64
	ByMethod       map[domain.PaymentMethod]int64
	ByCurrency     map[domain.Currency]int64
	AverageAmount  float64
	SuccessRate    float64
	CompletedCount int
	FailedCount    int
}

// PaymentService computes fees, dispatches settlement, and records transactions.
type PaymentService interface {
	Process(ctx context.Context, cmd PaymentCommand) (PaymentResult, error)
	CreateCheckoutSession(ctx context.Context, cmd CheckoutSessionCommand) (payments.HostedCheckout, error)
	Analytics(ctx context.Context, period Period) (PaymentAnalytics, error)
}

// Period selects the reporting window for analytics.
type Period string

const (
	// PeriodDay covers the current calendar day up to now.
	PeriodDay Period = "day"
	// PeriodWeek covers the trailing seven days up to now.
	PeriodWeek Period = "week"
	// PeriodMonth covers the current calendar month up to now.
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period string, defaulting empty input to day.
func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrValidation, raw)
}

// WindowEnding resolves the half-open [start, now) window for the period.
func (p Period) WindowEnding(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch p {
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour), now
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), now
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), now
	}
}

// RevenueSummary breaks venue revenue down for the report window.
type RevenueSummary struct {
	Total      int64
	ByCurrency map[domain.Currency]int64
}

// CustomerSummary counts customers for the report window. Total and
// ForeignPercentage are all-time figures; New counts distinct customers with
// at least one order or booking inside the window.
type CustomerSummary struct {
	Total             int
	New               int
	ForeignPercentage float64
}

// TopItem is one entry of the top-items ranking.
type TopItem struct {
	ItemID  string
	Revenue int64
}

// EventSummary aggregates bookings in the window: Attendance counts completed
// bookings, Revenue sums booking totals regardless of status.
type EventSummary struct {
	Attendance int
	Revenue    int64
}

// AnalyticsReport is a derived, ephemeral projection over the logs; it is
// recomputed on every request and never persisted as a source of truth.
type AnalyticsReport struct {
	Period      Period
	From        time.Time
	To          time.Time
	Revenue     RevenueSummary
	Customers   CustomerSummary
	TopItems    []TopItem
	Events      EventSummary
	GeneratedAt time.Time
}

// NarratedReport pairs the structured report with optional free-form text from
// the narration collaborator. Narrative stays empty when narration fails.
type NarratedReport struct {
	Report    AnalyticsReport
	Alerts    []string
	Narrative string
}

// AnalyticsService computes read-only projections over the commercial logs.
type AnalyticsService interface {
	Report(ctx context.Context, period Period) (AnalyticsReport, error)
	NarratedReport(ctx context.Context, period Period) (NarratedReport, error)
}

// AlertService evaluates operational rules over current state.
type AlertService interface {
	Evaluate(ctx context.Context) ([]string, error)
}

// Narrator turns a structured report into free-form operator-facing text.
// Absence or failure is non-fatal; callers degrade to the structured data.
type Narrator interface {
	Narrate(ctx context.Context, report AnalyticsReport, alerts []string) (string, error)
}

// Shared sentinel errors. Handlers map these to HTTP status codes.
var (
	// ErrValidation marks malformed requests rejected before any mutation.
	ErrValidation = errors.New("services: invalid input")
	// ErrNotFound marks lookups of unknown ids.
	ErrNotFound = errors.New("services: not found")
	// ErrInvalidTransition marks status state-machine violations.
	ErrInvalidTransition = errors.New("services: invalid status transition")
	// ErrInsufficientStock marks adjustments that would drive stock negative.
	ErrInsufficientStock = errors.New("services: insufficient stock")
	// ErrInvalidCard marks card input failing validation before settlement.
	ErrInvalidCard = errors.New("services: invalid card")
	// ErrMethodUnavailable marks payment methods the platform cannot use.
	ErrMethodUnavailable = errors.New("services: payment method unavailable")
	// ErrStorageUnavailable marks aborted units of work due to store failure.
	ErrStorageUnavailable = errors.New("services: storage unavailable")
)
