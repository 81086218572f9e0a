package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/repositories"
)

const (
	defaultPendingBacklogLimit = 5
	defaultDailyOrderLimit     = 50
)

// AlertThresholds tunes the operational alert rules.
type AlertThresholds struct {
	// PendingBacklogLimit is the pending-order count above which the kitchen
	// is considered behind.
	PendingBacklogLimit int
	// DailyOrderLimit is the same-day order count above which the day is
	// flagged as unusually busy.
	DailyOrderLimit int
}

// DefaultAlertThresholds returns the standard rule limits.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		PendingBacklogLimit: defaultPendingBacklogLimit,
		DailyOrderLimit:     defaultDailyOrderLimit,
	}
}

// AlertServiceDeps bundles the collaborators for alert evaluation.
type AlertServiceDeps struct {
	Inventory  InventoryService
	Orders     repositories.OrderRepository
	Tx         repositories.UnitOfWork
	Thresholds AlertThresholds
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type alertService struct {
	inventory  InventoryService
	orders     repositories.OrderRepository
	tx         repositories.UnitOfWork
	thresholds AlertThresholds
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewAlertService wires dependencies into an AlertService implementation.
func NewAlertService(deps AlertServiceDeps) (AlertService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("alert service: inventory service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("alert service: order repository is required")
	}
	if deps.Tx == nil {
		return nil, errors.New("alert service: unit of work is required")
	}
	thresholds := deps.Thresholds
	if thresholds.PendingBacklogLimit <= 0 {
		thresholds.PendingBacklogLimit = defaultPendingBacklogLimit
	}
	if thresholds.DailyOrderLimit <= 0 {
		thresholds.DailyOrderLimit = defaultDailyOrderLimit
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &alertService{
		inventory:  deps.Inventory,
		orders:     deps.Orders,
		tx:         deps.Tx,
		thresholds: thresholds,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Evaluate runs every rule against current state and returns the firing
// alerts as operator-facing messages. Rules are side-effect free; a quiet
// system yields an empty slice. All rule reads share one storage unit so a
// single evaluation never mixes state from concurrent writes.
func (s *alertService) Evaluate(ctx context.Context) ([]string, error) {
	now := s.clock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var (
		low     []domain.InventoryItem
		pending []domain.Order
		today   []domain.Order
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if low, err = s.inventory.LowStock(ctx); err != nil {
			return err
		}
		if pending, err = s.orders.List(ctx, repositories.OrderListFilter{
			Status: []domain.RecordStatus{domain.StatusPending},
		}); err != nil {
			return err
		}
		today, err = s.orders.List(ctx, repositories.OrderListFilter{
			DateRange: domain.RangeQuery[time.Time]{From: &dayStart, To: &now},
		})
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	alerts := make([]string, 0, 4)
	for _, item := range low {
		alerts = append(alerts, fmt.Sprintf(
			"low stock: %s has %d on hand (threshold %d)",
			item.ItemID, item.QuantityOnHand, item.MinStockThreshold,
		))
	}
	if len(pending) > s.thresholds.PendingBacklogLimit {
		alerts = append(alerts, fmt.Sprintf(
			"order backlog: %d orders pending (limit %d)",
			len(pending), s.thresholds.PendingBacklogLimit,
		))
	}
	if len(today) > s.thresholds.DailyOrderLimit {
		alerts = append(alerts, fmt.Sprintf(
			"high volume: %d orders today (limit %d)",
			len(today), s.thresholds.DailyOrderLimit,
		))
	}

	if len(alerts) > 0 {
		s.logger(ctx, "alerts.firing", map[string]any{"count": len(alerts)})
	}
	return alerts, nil
}
