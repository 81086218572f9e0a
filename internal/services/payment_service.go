package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/payments"
	"github.com/eatsalad239/gato-blanco-ops/internal/repositories"
)

// Fee rates in basis points. The foreign surcharge applies on top of the
// method rate for foreign customers paying by anything but cash.
const (
	defaultCardFeeBP         = 250
	defaultWalletFeeBP       = 200
	defaultForeignSurchargeBP = 100
	defaultSettlementTimeout = 15 * time.Second
)

// Error kinds reported on PaymentResult for auditable failures.
const (
	errorKindDeclined = "payment_declined"
	errorKindTimeout  = "settlement_timeout"
	errorKindGateway  = "gateway_error"
)

// FeeSchedule captures the per-method fee rates in basis points.
type FeeSchedule struct {
	CardBP             int
	WalletBP           int
	ForeignSurchargeBP int
}

// DefaultFeeSchedule returns the venue's standard rates: card 2.5%, digital
// wallet 2.0%, cash free, +1.0% foreign surcharge on non-cash methods.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		CardBP:             defaultCardFeeBP,
		WalletBP:           defaultWalletFeeBP,
		ForeignSurchargeBP: defaultForeignSurchargeBP,
	}
}

// PaymentServiceDeps bundles the collaborators required by the payment processor.
type PaymentServiceDeps struct {
	Transactions      repositories.TransactionRepository
	Customers         repositories.CustomerRepository
	Gateway           payments.Gateway
	Wallet            payments.WalletCapability
	Checkout          payments.CheckoutProvider
	Fees              FeeSchedule
	SettlementTimeout time.Duration
	Clock             func() time.Time
	IDGenerator       func() string
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	txns      repositories.TransactionRepository
	customers repositories.CustomerRepository
	gateway   payments.Gateway
	wallet    payments.WalletCapability
	checkout  payments.CheckoutProvider
	fees      FeeSchedule
	timeout   time.Duration
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Transactions == nil {
		return nil, errors.New("payment service: transaction repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment service: settlement gateway is required")
	}

	fees := deps.Fees
	if fees == (FeeSchedule{}) {
		fees = DefaultFeeSchedule()
	}
	timeout := deps.SettlementTimeout
	if timeout <= 0 {
		timeout = defaultSettlementTimeout
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
	wallet := deps.Wallet
	if wallet == nil {
		wallet = payments.WalletCapabilityFunc(func(context.Context) bool { return false })
	}

	return &paymentService{
		txns:      deps.Transactions,
		customers: deps.Customers,
		gateway:   deps.Gateway,
		wallet:    wallet,
		checkout:  deps.Checkout,
		fees:      fees,
		timeout:   timeout,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Process validates the command, computes fees, dispatches to the method
// settlement path and records the resulting transaction. Validation failures
// never reach the ledger; post-dispatch declines and timeouts are recorded as
// failed transactions for audit.
func (s *paymentService) Process(ctx context.Context, cmd PaymentCommand) (PaymentResult, error) {
	if err := s.validateCommand(cmd); err != nil {
		return PaymentResult{}, err
	}

	origin, err := s.customerOrigin(ctx, cmd.CustomerID)
	if err != nil {
		return PaymentResult{}, err
	}

	feeAmount := s.feeFor(cmd.Amount, cmd.Method, origin)

	switch cmd.Method {
	case domain.MethodCash:
		// In-person settlement: no dispatch, no fee.
		txn, err := s.record(ctx, cmd, 0, domain.TxnCompleted, "")
		if err != nil {
			return PaymentResult{}, err
		}
		return PaymentResult{Success: true, TransactionID: txn.ID}, nil

	case domain.MethodCard:
		if err := validateCard(cmd.Card); err != nil {
			return PaymentResult{}, err
		}
	case domain.MethodWallet:
		if !s.wallet.WalletAvailable(ctx) {
			return PaymentResult{}, fmt.Errorf("%w: digital wallet not available on this platform", ErrMethodUnavailable)
		}
		if strings.TrimSpace(cmd.WalletToken) == "" {
			return PaymentResult{}, fmt.Errorf("%w: wallet token is required", ErrValidation)
		}
	}

	settleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, settleErr := s.gateway.Settle(settleCtx, payments.ChargeRequest{
		Amount:      cmd.Amount,
		Currency:    cmd.Currency,
		Method:      cmd.Method,
		Card:        cmd.Card,
		WalletToken: cmd.WalletToken,
		Reference:   s.referenceFor(cmd),
	})
	if settleErr != nil {
		kind := errorKindGateway
		if errors.Is(settleErr, context.DeadlineExceeded) || errors.Is(settleErr, context.Canceled) {
			kind = errorKindTimeout
		}
		txn, recordErr := s.record(ctx, cmd, feeAmount, domain.TxnFailed, "")
		if recordErr != nil {
			return PaymentResult{}, recordErr
		}
		s.logger(ctx, "payments.settlement_failed", map[string]any{
			"transactionId": txn.ID,
			"kind":          kind,
			"error":         settleErr.Error(),
		})
		return PaymentResult{Success: false, TransactionID: txn.ID, ErrorKind: kind}, nil
	}

	if !result.Approved {
		txn, recordErr := s.record(ctx, cmd, feeAmount, domain.TxnFailed, result.NetworkTransactionID)
		if recordErr != nil {
			return PaymentResult{}, recordErr
		}
		s.logger(ctx, "payments.declined", map[string]any{
			"transactionId": txn.ID,
			"reason":        result.DeclineReason,
		})
		return PaymentResult{Success: false, TransactionID: txn.ID, ErrorKind: errorKindDeclined}, nil
	}

	txn, err := s.record(ctx, cmd, feeAmount, domain.TxnCompleted, result.NetworkTransactionID)
	if err != nil {
		return PaymentResult{}, err
	}
	s.logger(ctx, "payments.settled", map[string]any{
		"transactionId": txn.ID,
		"method":        string(cmd.Method),
		"amount":        cmd.Amount,
		"fee":           feeAmount,
	})
	return PaymentResult{Success: true, TransactionID: txn.ID}, nil
}

// CreateCheckoutSession hands the amount off to the hosted checkout provider.
func (s *paymentService) CreateCheckoutSession(ctx context.Context, cmd CheckoutSessionCommand) (payments.HostedCheckout, error) {
	if s.checkout == nil {
		return payments.HostedCheckout{}, fmt.Errorf("%w: hosted checkout is not configured", ErrMethodUnavailable)
	}
	if cmd.Amount <= 0 {
		return payments.HostedCheckout{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	currency := cmd.Currency
	if currency == "" {
		currency = domain.CurrencyCOP
	}
	reference := strings.TrimSpace(cmd.Reference)
	if reference == "" {
		reference = "chk_" + s.newID()
	}
	return s.checkout.CreateSession(ctx, payments.HostedCheckoutRequest{
		Amount:      cmd.Amount,
		Currency:    currency,
		Description: strings.TrimSpace(cmd.Description),
		CustomerRef: strings.TrimSpace(cmd.CustomerID),
		Reference:   reference,
	})
}

// Analytics aggregates settled transactions over the period window.
func (s *paymentService) Analytics(ctx context.Context, period Period) (PaymentAnalytics, error) {
	from, to := period.WindowEnding(s.clock())
	txns, err := s.txns.List(ctx, repositories.TransactionListFilter{
		DateRange: domain.RangeQuery[time.Time]{From: &from, To: &to},
	})
	if err != nil {
		return PaymentAnalytics{}, mapRepoError(err)
	}

	analytics := PaymentAnalytics{
		Period:     period,
		ByMethod:   make(map[domain.PaymentMethod]int64),
		ByCurrency: make(map[domain.Currency]int64),
	}
	for _, txn := range txns {
		switch txn.Status {
		case domain.TxnCompleted:
			analytics.CompletedCount++
			analytics.TotalVolume += txn.Amount
			analytics.TotalFees += txn.FeeAmount
			analytics.ByMethod[txn.Method] += txn.Amount
			analytics.ByCurrency[txn.Currency] += txn.Amount
		case domain.TxnFailed:
			analytics.FailedCount++
		}
	}
	if analytics.CompletedCount > 0 {
		analytics.AverageAmount = float64(analytics.TotalVolume) / float64(analytics.CompletedCount)
	}
	if attempts := analytics.CompletedCount + analytics.FailedCount; attempts > 0 {
		analytics.SuccessRate = float64(analytics.CompletedCount) / float64(attempts)
	}
	return analytics, nil
}

func (s *paymentService) validateCommand(cmd PaymentCommand) error {
	if cmd.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !cmd.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, cmd.Method)
	}
	if cmd.Currency != domain.CurrencyCOP && cmd.Currency != domain.CurrencyUSD {
		return fmt.Errorf("%w: unsupported currency %q", ErrValidation, cmd.Currency)
	}
	if cmd.OrderID != "" && cmd.BookingID != "" {
		return fmt.Errorf("%w: at most one of order/booking id may be set", ErrValidation)
	}
	return nil
}

func (s *paymentService) customerOrigin(ctx context.Context, customerID string) (domain.OriginClass, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" || s.customers == nil {
		return domain.OriginDomestic, nil
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return "", mapRepoError(err)
	}
	return customer.Origin, nil
}

func (s *paymentService) feeFor(amount int64, method domain.PaymentMethod, origin domain.OriginClass) int64 {
	var bp int
	switch method {
	case domain.MethodCard:
		bp = s.fees.CardBP
	case domain.MethodWallet:
		bp = s.fees.WalletBP
	case domain.MethodCash:
		return 0
	}
	if origin == domain.OriginForeign {
		bp += s.fees.ForeignSurchargeBP
	}
	return amount * int64(bp) / 10000
}

func (s *paymentService) record(ctx context.Context, cmd PaymentCommand, feeAmount int64, status domain.TransactionStatus, reference string) (domain.Transaction, error) {
	txn := domain.Transaction{
		ID:         "txn_" + s.newID(),
		Amount:     cmd.Amount,
		Currency:   cmd.Currency,
		Method:     cmd.Method,
		FeeAmount:  feeAmount,
		OrderID:    strings.TrimSpace(cmd.OrderID),
		BookingID:  strings.TrimSpace(cmd.BookingID),
		CustomerID: strings.TrimSpace(cmd.CustomerID),
		Status:     status,
		Reference:  reference,
		CreatedAt:  s.clock(),
	}
	if err := s.txns.Insert(ctx, txn); err != nil {
		return domain.Transaction{}, mapRepoError(err)
	}
	return txn, nil
}

func (s *paymentService) referenceFor(cmd PaymentCommand) string {
	switch {
	case cmd.OrderID != "":
		return cmd.OrderID
	case cmd.BookingID != "":
		return cmd.BookingID
	}
	return ""
}

func validateCard(card *payments.CardDetails) error {
	if card == nil {
		return fmt.Errorf("%w: card details are required", ErrValidation)
	}
	if !payments.ValidCardNumber(card.Number) {
		return fmt.Errorf("%w: card number failed validation", ErrInvalidCard)
	}
	if card.ExpMonth < 1 || card.ExpMonth > 12 || card.ExpYear == 0 {
		return fmt.Errorf("%w: card expiry is missing or malformed", ErrInvalidCard)
	}
	if strings.TrimSpace(card.CVV) == "" {
		return fmt.Errorf("%w: cvv is required", ErrInvalidCard)
	}
	return nil
}
