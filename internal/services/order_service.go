package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/repositories"
)

// totalTolerance is the maximum accepted drift, in minor units, between a
// client-supplied total and the recomputed one.
const totalTolerance = 1

// OrderServiceDeps bundles the collaborators required by the order processor.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Ledger      LedgerService
	Inventory   InventoryService
	Tx          repositories.UnitOfWork
	Policy      domain.PricingPolicy
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	ledger    LedgerService
	inventory InventoryService
	tx        repositories.UnitOfWork
	policy    domain.PricingPolicy
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into an OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("order service: ledger service is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory service is required")
	}
	if deps.Tx == nil {
		return nil, errors.New("order service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	policy := deps.Policy
	if policy.ForeignMarkup <= 0 {
		policy = domain.NewPricingPolicy(0)
	}

	return &orderService{
		orders:    deps.Orders,
		ledger:    deps.Ledger,
		inventory: deps.Inventory,
		tx:        deps.Tx,
		policy:    policy,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Create validates the checkout request and applies its full effect — the
// pending order record, the customer ledger update, and one stock decrement
// per line — as a single unit. Any failure, including insufficient stock,
// leaves no partial state behind.
func (s *orderService) Create(ctx context.Context, cmd OrderCreateCommand) (domain.Order, error) {
	lines, total, err := s.validateCreate(cmd)
	if err != nil {
		return domain.Order{}, err
	}

	currency := cmd.Currency
	if currency == "" {
		currency = s.policy.CurrencyFor(cmd.Customer.Origin)
	}

	var created domain.Order
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock()
		order := domain.Order{
			ID:          "ord_" + s.newID(),
			Lines:       lines,
			Total:       total,
			Currency:    currency,
			Status:      domain.StatusPending,
			Fulfillment: cmd.Fulfillment,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		customer, err := s.ledger.UpsertByEmail(ctx, LedgerUpsertCommand{
			Profile:    cmd.Customer,
			DeltaSpend: total,
			OrderRef:   order.ID,
		})
		if err != nil {
			return err
		}
		order.CustomerID = customer.ID

		if err := s.orders.Insert(ctx, order); err != nil {
			return err
		}

		for _, line := range lines {
			if _, err := s.inventory.Adjust(ctx, line.ItemID, -line.Quantity); err != nil {
				return err
			}
		}

		created = order
		s.logger(ctx, "orders.created", map[string]any{
			"orderId":    order.ID,
			"customerId": order.CustomerID,
			"total":      order.Total,
			"currency":   string(order.Currency),
		})
		return nil
	})
	if err != nil {
		return domain.Order{}, mapRepoError(err)
	}
	return created, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepoError(err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{
		CustomerID: strings.TrimSpace(filter.CustomerID),
		Status:     filter.Status,
		DateRange:  filter.DateRange,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return orders, nil
}

// UpdateStatus advances the order through the forward-only state machine; it
// is the only mutator of status after creation.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, next domain.RecordStatus) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	if !next.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}

	var updated domain.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
		}
		order.Status = next
		order.UpdatedAt = s.clock()
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		updated = order
		s.logger(ctx, "orders.status", map[string]any{
			"orderId": order.ID,
			"status":  string(order.Status),
		})
		return nil
	})
	if err != nil {
		return domain.Order{}, mapRepoError(err)
	}
	return updated, nil
}

func (s *orderService) validateCreate(cmd OrderCreateCommand) ([]domain.OrderLine, int64, error) {
	if len(cmd.Lines) == 0 {
		return nil, 0, fmt.Errorf("%w: at least one line is required", ErrValidation)
	}
	if strings.TrimSpace(cmd.Customer.Email) == "" {
		return nil, 0, fmt.Errorf("%w: customer email is required", ErrValidation)
	}
	if cmd.Currency != "" && cmd.Currency != domain.CurrencyCOP && cmd.Currency != domain.CurrencyUSD {
		return nil, 0, fmt.Errorf("%w: unsupported currency %q", ErrValidation, cmd.Currency)
	}

	lines := make([]domain.OrderLine, 0, len(cmd.Lines))
	var computed int64
	for _, input := range cmd.Lines {
		itemID := strings.TrimSpace(input.ItemID)
		if itemID == "" {
			return nil, 0, fmt.Errorf("%w: line item id is required", ErrValidation)
		}
		if input.Quantity < 1 {
			return nil, 0, fmt.Errorf("%w: quantity for %s must be at least 1", ErrValidation, itemID)
		}
		if input.UnitPrice < 0 {
			return nil, 0, fmt.Errorf("%w: unit price for %s must not be negative", ErrValidation, itemID)
		}
		line := domain.OrderLine{
			ItemID:    itemID,
			Name:      strings.TrimSpace(input.Name),
			Quantity:  input.Quantity,
			UnitPrice: input.UnitPrice,
		}
		lines = append(lines, line)
		computed += int64(line.Quantity) * line.UnitPrice
	}

	// A zero client total means "compute it for me"; anything else must agree
	// with the recomputed sum within rounding tolerance.
	if cmd.Total != 0 {
		diff := cmd.Total - computed
		if diff < -totalTolerance || diff > totalTolerance {
			return nil, 0, fmt.Errorf("%w: total %d does not match computed %d", ErrValidation, cmd.Total, computed)
		}
	}
	return lines, computed, nil
}
