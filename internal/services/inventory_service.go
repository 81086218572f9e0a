package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/repositories"
)

// InventoryServiceDeps bundles the collaborators required by the stock tracker.
type InventoryServiceDeps struct {
	Inventory   repositories.InventoryRepository
	Tx          repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	repo   repositories.InventoryRepository
	tx     repositories.UnitOfWork
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into an InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}
	if deps.Tx == nil {
		return nil, errors.New("inventory service: unit of work is required")
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

	return &inventoryService{
		repo: deps.Inventory,
		tx:   deps.Tx,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Adjust applies delta to an item's quantity on hand. A delta that would drive
// the quantity below zero is rejected with ErrInsufficientStock rather than
// clamped, so overselling is impossible. An unseen item is backfilled with
// zero stock before a positive delta is applied.
func (s *inventoryService) Adjust(ctx context.Context, itemID string, delta int) (domain.InventoryItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: item id is required", ErrValidation)
	}
	if delta == 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: delta must not be zero", ErrValidation)
	}

	var result domain.InventoryItem
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock()
		item, err := s.findOrBackfill(ctx, itemID, now)
		if err != nil {
			return err
		}

		next := item.QuantityOnHand + delta
		if next < 0 {
			return fmt.Errorf("%w: item %s has %d on hand, requested %d", ErrInsufficientStock, itemID, item.QuantityOnHand, -delta)
		}
		item.QuantityOnHand = next
		item.UpdatedAt = now

		if err := s.repo.Upsert(ctx, item); err != nil {
			return err
		}
		result = item

		if item.QuantityOnHand <= item.MinStockThreshold {
			s.logger(ctx, "inventory.low_stock", map[string]any{
				"itemId": item.ItemID,
				"onHand": item.QuantityOnHand,
			})
		}
		return nil
	})
	if err != nil {
		return domain.InventoryItem{}, mapRepoError(err)
	}
	return result, nil
}

// Restock increases stock and refreshes cost metadata. Restocking a previously
// unseen item creates its record.
func (s *inventoryService) Restock(ctx context.Context, cmd RestockCommand) (domain.InventoryItem, error) {
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: item id is required", ErrValidation)
	}
	if cmd.Quantity <= 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: restock quantity must be positive", ErrValidation)
	}
	if cmd.UnitCost < 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: unit cost must not be negative", ErrValidation)
	}

	var result domain.InventoryItem
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock()
		item, err := s.findOrBackfill(ctx, itemID, now)
		if err != nil {
			return err
		}

		item.QuantityOnHand += cmd.Quantity
		item.UnitCost = cmd.UnitCost
		item.LastRestockedAt = &now
		item.UpdatedAt = now

		if err := s.repo.Upsert(ctx, item); err != nil {
			return err
		}
		result = item
		s.logger(ctx, "inventory.restocked", map[string]any{
			"itemId":   item.ItemID,
			"quantity": cmd.Quantity,
			"onHand":   item.QuantityOnHand,
		})
		return nil
	})
	if err != nil {
		return domain.InventoryItem{}, mapRepoError(err)
	}
	return result, nil
}

// LowStock lists items at or below their minimum threshold, ordered by item id.
func (s *inventoryService) LowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	low := make([]domain.InventoryItem, 0, len(items))
	for _, item := range items {
		if item.QuantityOnHand <= item.MinStockThreshold {
			low = append(low, item)
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].ItemID < low[j].ItemID })
	return low, nil
}

func (s *inventoryService) List(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return items, nil
}

const defaultMinStockThreshold = 5

func (s *inventoryService) findOrBackfill(ctx context.Context, itemID string, now time.Time) (domain.InventoryItem, error) {
	item, err := s.repo.FindByItemID(ctx, itemID)
	if err == nil {
		return item, nil
	}
	var repoErr *repositories.Error
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		return domain.InventoryItem{}, err
	}
	return domain.InventoryItem{
		ID:                "inv_" + s.newID(),
		ItemID:            itemID,
		QuantityOnHand:    0,
		MinStockThreshold: defaultMinStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
