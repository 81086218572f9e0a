package domain

import (
	"time"
)

// Currency identifies one of the two currencies the venue transacts in.
type Currency string

const (
	// CurrencyCOP is the local venue currency (Colombian peso, no minor unit in practice).
	CurrencyCOP Currency = "COP"
	// CurrencyUSD is the foreign reference currency used to bill foreign customers.
	CurrencyUSD Currency = "USD"
)

// OriginClass segments customers by where they come from for pricing purposes.
type OriginClass string

const (
	// OriginDomestic marks local customers billed in COP at base prices.
	OriginDomestic OriginClass = "domestic"
	// OriginForeign marks foreign customers billed in USD with the tourist markup.
	OriginForeign OriginClass = "foreign"
)

// Valid reports whether the origin class is one of the known segments.
func (o OriginClass) Valid() bool {
	return o == OriginDomestic || o == OriginForeign
}

// RangeQuery represents half-open [From, To) range filters for timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// RecordStatus describes the shared lifecycle of orders and bookings.
type RecordStatus string

const (
	// StatusPending is the initial status of every order and booking.
	StatusPending RecordStatus = "pending"
	// StatusConfirmed marks a record acknowledged by staff; optional in the flow.
	StatusConfirmed RecordStatus = "confirmed"
	// StatusCompleted is terminal; completed records are immutable.
	StatusCompleted RecordStatus = "completed"
)

// Valid reports whether the status is part of the lifecycle.
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo enforces the forward-only state machine. The confirmed step
// may be skipped, so pending moves to either confirmed or completed.
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCompleted
	case StatusConfirmed:
		return next == StatusCompleted
	}
	return false
}

// Customer is a person transacting with the venue. Email is the dedup key;
// LifetimeSpend must always equal the sum of the totals of the linked orders
// and bookings.
type Customer struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone,omitempty"`
	Origin        OriginClass `json:"origin"`
	LifetimeSpend int64       `json:"lifetimeSpend"`
	OrderIDs      []string    `json:"orderIds"`
	BookingIDs    []string    `json:"bookingIds"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// HasOrderRef reports whether the order id is already linked to the customer.
// Ref lists double as the idempotency guard for ledger upserts.
func (c Customer) HasOrderRef(orderID string) bool {
	for _, id := range c.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// HasBookingRef reports whether the booking id is already linked to the customer.
func (c Customer) HasBookingRef(bookingID string) bool {
	for _, id := range c.BookingIDs {
		if id == bookingID {
			return true
		}
	}
	return false
}

// OrderLine is one purchased menu item within an order. UnitPrice is in the
// order currency's minor unit.
type OrderLine struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// FulfillmentType distinguishes how an order is handed to the customer.
type FulfillmentType string

const (
	// FulfillmentDineIn is table service at the venue.
	FulfillmentDineIn FulfillmentType = "dine_in"
	// FulfillmentTakeaway is counter pickup.
	FulfillmentTakeaway FulfillmentType = "takeaway"
	// FulfillmentDelivery is out-of-venue delivery.
	FulfillmentDelivery FulfillmentType = "delivery"
)

// Order is a menu purchase. Total always equals the sum of quantity*unitPrice
// over its lines; completed orders are immutable.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	Lines       []OrderLine     `json:"lines"`
	Total       int64           `json:"total"`
	Currency    Currency        `json:"currency"`
	Status      RecordStatus    `json:"status"`
	Fulfillment FulfillmentType `json:"fulfillment"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LineTotal recomputes the order total from its lines.
func (o Order) LineTotal() int64 {
	var total int64
	for _, line := range o.Lines {
		total += int64(line.Quantity) * line.UnitPrice
	}
	return total
}

// Booking is a service or event reservation.
type Booking struct {
	ID           string       `json:"id"`
	CustomerID   string       `json:"customerId"`
	ServiceID    string       `json:"serviceId"`
	Date         string       `json:"date"`
	Time         string       `json:"time"`
	Participants int          `json:"participants"`
	Total        int64        `json:"total"`
	Currency     Currency     `json:"currency"`
	Status       RecordStatus `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// InventoryItem tracks stock for one sellable menu item. QuantityOnHand never
// goes negative; the inventory service is the only mutator.
type InventoryItem struct {
	ID                string     `json:"id"`
	ItemID            string     `json:"itemId"`
	QuantityOnHand    int        `json:"quantityOnHand"`
	MinStockThreshold int        `json:"minStockThreshold"`
	UnitCost          int64      `json:"unitCost"`
	LastRestockedAt   *time.Time `json:"lastRestockedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// PaymentMethod enumerates supported settlement paths.
type PaymentMethod string

const (
	// MethodCard is an online card charge settled through the card gateway.
	MethodCard PaymentMethod = "card"
	// MethodWallet is a digital wallet charge (Apple/Google Pay equivalent).
	MethodWallet PaymentMethod = "digital_wallet"
	// MethodCash is in-person settlement; always succeeds, never charged a fee.
	MethodCash PaymentMethod = "cash"
)

// Valid reports whether the payment method is supported.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodWallet, MethodCash:
		return true
	}
	return false
}

// TransactionStatus is the terminal state of a settlement attempt.
type TransactionStatus string

const (
	// TxnCompleted marks a successfully settled transaction.
	TxnCompleted TransactionStatus = "completed"
	// TxnFailed marks a settlement attempt declined after dispatch. Kept for audit.
	TxnFailed TransactionStatus = "failed"
)

// Transaction is an append-only settlement record. At most one of OrderID and
// BookingID is set; neither is set for standalone settlements. Card numbers and
// CVVs are never stored here.
type Transaction struct {
	ID         string            `json:"id"`
	Amount     int64             `json:"amount"`
	Currency   Currency          `json:"currency"`
	Method     PaymentMethod     `json:"method"`
	FeeAmount  int64             `json:"feeAmount"`
	OrderID    string            `json:"orderId,omitempty"`
	BookingID  string            `json:"bookingId,omitempty"`
	CustomerID string            `json:"customerId"`
	Status     TransactionStatus `json:"status"`
	Reference  string            `json:"reference,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}
