package repositories

import (
	"context"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

// Registry exposes typed repository accessors and the transactional boundary
// used to apply an order's full effect (record + ledger + stock) atomically.
type Registry interface {
	Close(ctx context.Context) error

	Customers() CustomerRepository
	Orders() OrderRepository
	Bookings() BookingRepository
	Inventory() InventoryRepository
	Transactions() TransactionRepository
	UnitOfWork
}

// UnitOfWork groups repository mutations into an all-or-nothing unit. Writes
// staged inside fn become visible only after fn returns nil; any error (or a
// store failure during flush) discards every staged write.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CustomerRepository owns customer records. Email uniquely identifies a customer.
type CustomerRepository interface {
	Insert(ctx context.Context, customer domain.Customer) error
	Update(ctx context.Context, customer domain.Customer) error
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
}

// OrderListFilter narrows order listings; all populated fields are conjunctive.
// The date range is half-open: [From, To).
type OrderListFilter struct {
	CustomerID string
	Status     []domain.RecordStatus
	DateRange  domain.RangeQuery[time.Time]
}

// OrderRepository persists the append-only order log.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// BookingListFilter narrows booking listings, same semantics as OrderListFilter.
type BookingListFilter struct {
	CustomerID string
	Status     []domain.RecordStatus
	DateRange  domain.RangeQuery[time.Time]
}

// BookingRepository persists the append-only booking log.
type BookingRepository interface {
	Insert(ctx context.Context, booking domain.Booking) error
	Update(ctx context.Context, booking domain.Booking) error
	FindByID(ctx context.Context, bookingID string) (domain.Booking, error)
	List(ctx context.Context, filter BookingListFilter) ([]domain.Booking, error)
}

// InventoryRepository owns stock records keyed by menu item id.
type InventoryRepository interface {
	Upsert(ctx context.Context, item domain.InventoryItem) error
	FindByItemID(ctx context.Context, itemID string) (domain.InventoryItem, error)
	List(ctx context.Context) ([]domain.InventoryItem, error)
}

// TransactionListFilter narrows settled-transaction listings.
type TransactionListFilter struct {
	CustomerID string
	Status     []domain.TransactionStatus
	DateRange  domain.RangeQuery[time.Time]
}

// TransactionRepository appends settlement records. Transactions are never
// mutated after reaching a terminal status, so no Update is exposed.
type TransactionRepository interface {
	Insert(ctx context.Context, txn domain.Transaction) error
	FindByID(ctx context.Context, txnID string) (domain.Transaction, error)
	List(ctx context.Context, filter TransactionListFilter) ([]domain.Transaction, error)
}
