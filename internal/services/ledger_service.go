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

// LedgerServiceDeps bundles the collaborators required by the customer ledger.
type LedgerServiceDeps struct {
	Customers   repositories.CustomerRepository
	Tx          repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type ledgerService struct {
	customers repositories.CustomerRepository
	tx        repositories.UnitOfWork
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewLedgerService wires dependencies into a LedgerService implementation.
func NewLedgerService(deps LedgerServiceDeps) (LedgerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("ledger service: customer repository is required")
	}
	if deps.Tx == nil {
		return nil, errors.New("ledger service: unit of work is required")
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

	return &ledgerService{
		customers: deps.Customers,
		tx:        deps.Tx,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// UpsertByEmail looks up the customer by email, creating the record on first
// contact and otherwise adding the spend delta and transaction ref. Re-applying
// a ref that is already linked is a no-op, which makes retries of the same
// transaction safe.
func (s *ledgerService) UpsertByEmail(ctx context.Context, cmd LedgerUpsertCommand) (domain.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Profile.Email))
	if email == "" {
		return domain.Customer{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if cmd.DeltaSpend < 0 {
		return domain.Customer{}, fmt.Errorf("%w: spend delta must not be negative", ErrValidation)
	}
	if cmd.OrderRef != "" && cmd.BookingRef != "" {
		return domain.Customer{}, fmt.Errorf("%w: at most one of order/booking ref may be set", ErrValidation)
	}
	origin := cmd.Profile.Origin
	if origin == "" {
		origin = domain.OriginDomestic
	}
	if !origin.Valid() {
		return domain.Customer{}, fmt.Errorf("%w: unknown origin class %q", ErrValidation, cmd.Profile.Origin)
	}

	var result domain.Customer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock()

		existing, err := s.customers.FindByEmail(ctx, email)
		if err != nil {
			var repoErr *repositories.Error
			if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
				return err
			}
			created := domain.Customer{
				ID:            "cus_" + s.newID(),
				Name:          strings.TrimSpace(cmd.Profile.Name),
				Email:         email,
				Phone:         strings.TrimSpace(cmd.Profile.Phone),
				Origin:        origin,
				LifetimeSpend: cmd.DeltaSpend,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			appendRefs(&created, cmd.OrderRef, cmd.BookingRef)
			if err := s.customers.Insert(ctx, created); err != nil {
				return err
			}
			result = created
			s.logger(ctx, "ledger.customer.created", map[string]any{
				"customerId": created.ID,
				"origin":     string(created.Origin),
			})
			return nil
		}

		if cmd.OrderRef != "" && existing.HasOrderRef(cmd.OrderRef) {
			result = existing
			return nil
		}
		if cmd.BookingRef != "" && existing.HasBookingRef(cmd.BookingRef) {
			result = existing
			return nil
		}

		existing.LifetimeSpend += cmd.DeltaSpend
		appendRefs(&existing, cmd.OrderRef, cmd.BookingRef)
		if name := strings.TrimSpace(cmd.Profile.Name); name != "" {
			existing.Name = name
		}
		if phone := strings.TrimSpace(cmd.Profile.Phone); phone != "" {
			existing.Phone = phone
		}
		existing.UpdatedAt = now

		if err := s.customers.Update(ctx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		return domain.Customer{}, mapRepoError(err)
	}
	return result, nil
}

func (s *ledgerService) Get(ctx context.Context, customerID string) (domain.Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return domain.Customer{}, mapRepoError(err)
	}
	return customer, nil
}

func (s *ledgerService) SegmentByOrigin(ctx context.Context, origin domain.OriginClass) ([]domain.Customer, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("%w: unknown origin class %q", ErrValidation, origin)
	}
	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	segment := make([]domain.Customer, 0, len(customers))
	for _, customer := range customers {
		if customer.Origin == origin {
			segment = append(segment, customer)
		}
	}
	return segment, nil
}

func appendRefs(customer *domain.Customer, orderRef, bookingRef string) {
	if orderRef != "" {
		customer.OrderIDs = append(customer.OrderIDs, orderRef)
	}
	if bookingRef != "" {
		customer.BookingIDs = append(customer.BookingIDs, bookingRef)
	}
}
