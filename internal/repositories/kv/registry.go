package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/repositories"
)

// Registry implements repositories.Registry over a Store. A single mutex
// serialises every mutating unit of work; staged writes are flushed with one
// SetMulti so an order's record, ledger update and stock decrement land
// together or not at all. Readers outside a transaction observe the last
// flushed state, which may be stale but is never torn.
type Registry struct {
	store Store
	mu    sync.Mutex
}

// NewRegistry wires a Registry over the provided store.
func NewRegistry(store Store) (*Registry, error) {
	if store == nil {
		return nil, errors.New("kv: store is required")
	}
	return &Registry{store: store}, nil
}

// Close releases the underlying store.
func (r *Registry) Close(context.Context) error {
	return r.store.Close()
}

// Customers returns the customer repository view.
func (r *Registry) Customers() repositories.CustomerRepository { return &customerRepo{r} }

// Orders returns the order repository view.
func (r *Registry) Orders() repositories.OrderRepository { return &orderRepo{r} }

// Bookings returns the booking repository view.
func (r *Registry) Bookings() repositories.BookingRepository { return &bookingRepo{r} }

// Inventory returns the inventory repository view.
func (r *Registry) Inventory() repositories.InventoryRepository { return &inventoryRepo{r} }

// Transactions returns the settlement log repository view.
func (r *Registry) Transactions() repositories.TransactionRepository { return &transactionRepo{r} }

type txKey struct{}

type txState struct {
	staged map[string][]byte
}

func txFromContext(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// RunInTx executes fn inside a transactional boundary. Calls made with a
// context already carrying a transaction join it instead of nesting, so
// repository mutations compose under a single outer unit.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &txState{staged: make(map[string][]byte)}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if len(tx.staged) == 0 {
		return nil
	}
	if err := r.store.SetMulti(ctx, tx.staged); err != nil {
		return repositories.NewError(repositories.ErrorUnavailable, "transaction flush failed", err)
	}
	return nil
}

func loadList[T any](ctx context.Context, r *Registry, key string) ([]T, error) {
	var raw []byte
	if tx := txFromContext(ctx); tx != nil {
		if staged, ok := tx.staged[key]; ok {
			raw = staged
		}
	}
	if raw == nil {
		value, ok, err := r.store.Get(ctx, key)
		if err != nil {
			return nil, repositories.NewError(repositories.ErrorUnavailable, fmt.Sprintf("read %s failed", key), err)
		}
		if !ok {
			return nil, nil
		}
		raw = value
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, repositories.NewError(repositories.ErrorUnknown, fmt.Sprintf("decode %s failed", key), err)
	}
	return items, nil
}

func saveList[T any](ctx context.Context, r *Registry, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return repositories.NewError(repositories.ErrorUnknown, fmt.Sprintf("encode %s failed", key), err)
	}
	if tx := txFromContext(ctx); tx != nil {
		tx.staged[key] = raw
		return nil
	}
	if err := r.store.Set(ctx, key, raw); err != nil {
		return repositories.NewError(repositories.ErrorUnavailable, fmt.Sprintf("write %s failed", key), err)
	}
	return nil
}

// Customers --------------------------------------------------------------

type customerRepo struct {
	r *Registry
}

func (c *customerRepo) Insert(ctx context.Context, customer domain.Customer) error {
	return c.r.RunInTx(ctx, func(ctx context.Context) error {
		customers, err := loadList[domain.Customer](ctx, c.r, KeyCustomers)
		if err != nil {
			return err
		}
		for _, existing := range customers {
			if existing.ID == customer.ID {
				return repositories.NewError(repositories.ErrorConflict, fmt.Sprintf("customer %s already exists", customer.ID), nil)
			}
			if strings.EqualFold(existing.Email, customer.Email) {
				return repositories.NewError(repositories.ErrorConflict, fmt.Sprintf("email %s already registered", customer.Email), nil)
			}
		}
		return saveList(ctx, c.r, KeyCustomers, append(customers, customer))
	})
}

func (c *customerRepo) Update(ctx context.Context, customer domain.Customer) error {
	return c.r.RunInTx(ctx, func(ctx context.Context) error {
		customers, err := loadList[domain.Customer](ctx, c.r, KeyCustomers)
		if err != nil {
			return err
		}
		for i, existing := range customers {
			if existing.ID == customer.ID {
				customers[i] = customer
				return saveList(ctx, c.r, KeyCustomers, customers)
			}
		}
		return repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("customer %s not found", customer.ID), nil)
	})
}

func (c *customerRepo) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	customers, err := loadList[domain.Customer](ctx, c.r, KeyCustomers)
	if err != nil {
		return domain.Customer{}, err
	}
	for _, customer := range customers {
		if customer.ID == customerID {
			return customer, nil
		}
	}
	return domain.Customer{}, repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("customer %s not found", customerID), nil)
}

func (c *customerRepo) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	customers, err := loadList[domain.Customer](ctx, c.r, KeyCustomers)
	if err != nil {
		return domain.Customer{}, err
	}
	for _, customer := range customers {
		if strings.EqualFold(customer.Email, email) {
			return customer, nil
		}
	}
	return domain.Customer{}, repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("no customer with email %s", email), nil)
}

func (c *customerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	return loadList[domain.Customer](ctx, c.r, KeyCustomers)
}

// Orders -----------------------------------------------------------------

type orderRepo struct {
	r *Registry
}

func (o *orderRepo) Insert(ctx context.Context, order domain.Order) error {
	return o.r.RunInTx(ctx, func(ctx context.Context) error {
		orders, err := loadList[domain.Order](ctx, o.r, KeyOrders)
		if err != nil {
			return err
		}
		for _, existing := range orders {
			if existing.ID == order.ID {
				return repositories.NewError(repositories.ErrorConflict, fmt.Sprintf("order %s already exists", order.ID), nil)
			}
		}
		return saveList(ctx, o.r, KeyOrders, append(orders, order))
	})
}

func (o *orderRepo) Update(ctx context.Context, order domain.Order) error {
	return o.r.RunInTx(ctx, func(ctx context.Context) error {
		orders, err := loadList[domain.Order](ctx, o.r, KeyOrders)
		if err != nil {
			return err
		}
		for i, existing := range orders {
			if existing.ID == order.ID {
				orders[i] = order
				return saveList(ctx, o.r, KeyOrders, orders)
			}
		}
		return repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("order %s not found", order.ID), nil)
	})
}

func (o *orderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	orders, err := loadList[domain.Order](ctx, o.r, KeyOrders)
	if err != nil {
		return domain.Order{}, err
	}
	for _, order := range orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return domain.Order{}, repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("order %s not found", orderID), nil)
}

func (o *orderRepo) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	orders, err := loadList[domain.Order](ctx, o.r, KeyOrders)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if len(filter.Status) > 0 && !statusIn(order.Status, filter.Status) {
			continue
		}
		if !inRange(order.CreatedAt, filter.DateRange) {
			continue
		}
		matched = append(matched, order)
	}
	return matched, nil
}

// Bookings ---------------------------------------------------------------

type bookingRepo struct {
	r *Registry
}

func (b *bookingRepo) Insert(ctx context.Context, booking domain.Booking) error {
	return b.r.RunInTx(ctx, func(ctx context.Context) error {
		bookings, err := loadList[domain.Booking](ctx, b.r, KeyBookings)
		if err != nil {
			return err
		}
		for _, existing := range bookings {
			if existing.ID == booking.ID {
				return repositories.NewError(repositories.ErrorConflict, fmt.Sprintf("booking %s already exists", booking.ID), nil)
			}
		}
		return saveList(ctx, b.r, KeyBookings, append(bookings, booking))
	})
}

func (b *bookingRepo) Update(ctx context.Context, booking domain.Booking) error {
	return b.r.RunInTx(ctx, func(ctx context.Context) error {
		bookings, err := loadList[domain.Booking](ctx, b.r, KeyBookings)
		if err != nil {
			return err
		}
		for i, existing := range bookings {
			if existing.ID == booking.ID {
				bookings[i] = booking
				return saveList(ctx, b.r, KeyBookings, bookings)
			}
		}
		return repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("booking %s not found", booking.ID), nil)
	})
}

func (b *bookingRepo) FindByID(ctx context.Context, bookingID string) (domain.Booking, error) {
	bookings, err := loadList[domain.Booking](ctx, b.r, KeyBookings)
	if err != nil {
		return domain.Booking{}, err
	}
	for _, booking := range bookings {
		if booking.ID == bookingID {
			return booking, nil
		}
	}
	return domain.Booking{}, repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("booking %s not found", bookingID), nil)
}

func (b *bookingRepo) List(ctx context.Context, filter repositories.BookingListFilter) ([]domain.Booking, error) {
	bookings, err := loadList[domain.Booking](ctx, b.r, KeyBookings)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Booking, 0, len(bookings))
	for _, booking := range bookings {
		if filter.CustomerID != "" && booking.CustomerID != filter.CustomerID {
			continue
		}
		if len(filter.Status) > 0 && !statusIn(booking.Status, filter.Status) {
			continue
		}
		if !inRange(booking.CreatedAt, filter.DateRange) {
			continue
		}
		matched = append(matched, booking)
	}
	return matched, nil
}

// Inventory --------------------------------------------------------------

type inventoryRepo struct {
	r *Registry
}

func (i *inventoryRepo) Upsert(ctx context.Context, item domain.InventoryItem) error {
	return i.r.RunInTx(ctx, func(ctx context.Context) error {
		items, err := loadList[domain.InventoryItem](ctx, i.r, KeyInventory)
		if err != nil {
			return err
		}
		for idx, existing := range items {
			if existing.ItemID == item.ItemID {
				items[idx] = item
				return saveList(ctx, i.r, KeyInventory, items)
			}
		}
		return saveList(ctx, i.r, KeyInventory, append(items, item))
	})
}

func (i *inventoryRepo) FindByItemID(ctx context.Context, itemID string) (domain.InventoryItem, error) {
	items, err := loadList[domain.InventoryItem](ctx, i.r, KeyInventory)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	for _, item := range items {
		if item.ItemID == itemID {
			return item, nil
		}
	}
	return domain.InventoryItem{}, repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("inventory for item %s not found", itemID), nil)
}

func (i *inventoryRepo) List(ctx context.Context) ([]domain.InventoryItem, error) {
	return loadList[domain.InventoryItem](ctx, i.r, KeyInventory)
}

// Transactions -----------------------------------------------------------

type transactionRepo struct {
	r *Registry
}

func (t *transactionRepo) Insert(ctx context.Context, txn domain.Transaction) error {
	return t.r.RunInTx(ctx, func(ctx context.Context) error {
		txns, err := loadList[domain.Transaction](ctx, t.r, KeyTransactions)
		if err != nil {
			return err
		}
		for _, existing := range txns {
			if existing.ID == txn.ID {
				return repositories.NewError(repositories.ErrorConflict, fmt.Sprintf("transaction %s already exists", txn.ID), nil)
			}
		}
		return saveList(ctx, t.r, KeyTransactions, append(txns, txn))
	})
}

func (t *transactionRepo) FindByID(ctx context.Context, txnID string) (domain.Transaction, error) {
	txns, err := loadList[domain.Transaction](ctx, t.r, KeyTransactions)
	if err != nil {
		return domain.Transaction{}, err
	}
	for _, txn := range txns {
		if txn.ID == txnID {
			return txn, nil
		}
	}
	return domain.Transaction{}, repositories.NewError(repositories.ErrorNotFound, fmt.Sprintf("transaction %s not found", txnID), nil)
}

func (t *transactionRepo) List(ctx context.Context, filter repositories.TransactionListFilter) ([]domain.Transaction, error) {
	txns, err := loadList[domain.Transaction](ctx, t.r, KeyTransactions)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Transaction, 0, len(txns))
	for _, txn := range txns {
		if filter.CustomerID != "" && txn.CustomerID != filter.CustomerID {
			continue
		}
		if len(filter.Status) > 0 && !txnStatusIn(txn.Status, filter.Status) {
			continue
		}
		if !inRange(txn.CreatedAt, filter.DateRange) {
			continue
		}
		matched = append(matched, txn)
	}
	return matched, nil
}

// Shared filter helpers ---------------------------------------------------

func statusIn(status domain.RecordStatus, set []domain.RecordStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func txnStatusIn(status domain.TransactionStatus, set []domain.TransactionStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

// inRange applies the half-open [From, To) convention.
func inRange(ts time.Time, r domain.RangeQuery[time.Time]) bool {
	if r.From != nil && ts.Before(*r.From) {
		return false
	}
	if r.To != nil && !ts.Before(*r.To) {
		return false
	}
	return true
}
