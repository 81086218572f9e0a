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

// BookingServiceDeps bundles the collaborators required by the booking processor.
type BookingServiceDeps struct {
	Bookings    repositories.BookingRepository
	Ledger      LedgerService
	Tx          repositories.UnitOfWork
	Policy      domain.PricingPolicy
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type bookingService struct {
	bookings repositories.BookingRepository
	ledger   LedgerService
	tx       repositories.UnitOfWork
	policy   domain.PricingPolicy
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewBookingService wires dependencies into a BookingService implementation.
func NewBookingService(deps BookingServiceDeps) (BookingService, error) {
	if deps.Bookings == nil {
		return nil, errors.New("booking service: booking repository is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("booking service: ledger service is required")
	}
	if deps.Tx == nil {
		return nil, errors.New("booking service: unit of work is required")
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

	return &bookingService{
		bookings: deps.Bookings,
		ledger:   deps.Ledger,
		tx:       deps.Tx,
		policy:   policy,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Create validates the reservation and records it together with the customer
// ledger update in a single unit. The booking total is derived from the
// service base price through the pricing policy, per participant.
func (s *bookingService) Create(ctx context.Context, cmd BookingCreateCommand) (domain.Booking, error) {
	total, err := s.validateCreate(cmd)
	if err != nil {
		return domain.Booking{}, err
	}

	currency := cmd.Currency
	if currency == "" {
		currency = s.policy.CurrencyFor(cmd.Customer.Origin)
	}

	var created domain.Booking
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock()
		booking := domain.Booking{
			ID:           "bkg_" + s.newID(),
			ServiceID:    strings.TrimSpace(cmd.ServiceID),
			Date:         strings.TrimSpace(cmd.Date),
			Time:         strings.TrimSpace(cmd.Time),
			Participants: cmd.Participants,
			Total:        total,
			Currency:     currency,
			Status:       domain.StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		customer, err := s.ledger.UpsertByEmail(ctx, LedgerUpsertCommand{
			Profile:    cmd.Customer,
			DeltaSpend: total,
			BookingRef: booking.ID,
		})
		if err != nil {
			return err
		}
		booking.CustomerID = customer.ID

		if err := s.bookings.Insert(ctx, booking); err != nil {
			return err
		}

		created = booking
		s.logger(ctx, "bookings.created", map[string]any{
			"bookingId":    booking.ID,
			"customerId":   booking.CustomerID,
			"participants": booking.Participants,
			"total":        booking.Total,
		})
		return nil
	})
	if err != nil {
		return domain.Booking{}, mapRepoError(err)
	}
	return created, nil
}

func (s *bookingService) Get(ctx context.Context, bookingID string) (domain.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.Booking{}, fmt.Errorf("%w: booking id is required", ErrValidation)
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, mapRepoError(err)
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, filter BookingListFilter) ([]domain.Booking, error) {
	bookings, err := s.bookings.List(ctx, repositories.BookingListFilter{
		CustomerID: strings.TrimSpace(filter.CustomerID),
		Status:     filter.Status,
		DateRange:  filter.DateRange,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return bookings, nil
}

// UpdateStatus advances the booking through the shared forward-only lifecycle.
func (s *bookingService) UpdateStatus(ctx context.Context, bookingID string, next domain.RecordStatus) (domain.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.Booking{}, fmt.Errorf("%w: booking id is required", ErrValidation)
	}
	if !next.Valid() {
		return domain.Booking{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}

	var updated domain.Booking
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, next)
		}
		booking.Status = next
		booking.UpdatedAt = s.clock()
		if err := s.bookings.Update(ctx, booking); err != nil {
			return err
		}
		updated = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, mapRepoError(err)
	}
	return updated, nil
}

func (s *bookingService) validateCreate(cmd BookingCreateCommand) (int64, error) {
	if strings.TrimSpace(cmd.Customer.Email) == "" {
		return 0, fmt.Errorf("%w: customer email is required", ErrValidation)
	}
	if strings.TrimSpace(cmd.ServiceID) == "" {
		return 0, fmt.Errorf("%w: service id is required", ErrValidation)
	}
	if cmd.Participants < 1 {
		return 0, fmt.Errorf("%w: participant count must be at least 1", ErrValidation)
	}
	if cmd.ServicePrice < 0 {
		return 0, fmt.Errorf("%w: service price must not be negative", ErrValidation)
	}
	if cmd.Currency != "" && cmd.Currency != domain.CurrencyCOP && cmd.Currency != domain.CurrencyUSD {
		return 0, fmt.Errorf("%w: unsupported currency %q", ErrValidation, cmd.Currency)
	}

	computed := s.policy.ChargedPrice(cmd.ServicePrice, cmd.Customer.Origin) * int64(cmd.Participants)
	if cmd.Total != 0 {
		diff := cmd.Total - computed
		if diff < -totalTolerance || diff > totalTolerance {
			return 0, fmt.Errorf("%w: total %d does not match computed %d", ErrValidation, cmd.Total, computed)
		}
	}
	return computed, nil
}
