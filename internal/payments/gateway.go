package payments

import (
	"context"
	"strings"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

// CardDetails carries raw card input for a settlement attempt. Instances live
// only for the duration of the call; nothing here is ever persisted.
type CardDetails struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVV      string
	Holder   string
}

// ChargeRequest is handed to a settlement gateway after local validation.
// Exactly one of Card or WalletToken is populated depending on the method.
type ChargeRequest struct {
	Amount      int64
	Currency    domain.Currency
	Method      domain.PaymentMethod
	Card        *CardDetails
	WalletToken string
	Reference   string
}

// ChargeResult is the gateway's verdict. Approved false with a nil error is a
// legitimate decline and must be recorded as a failed transaction.
type ChargeResult struct {
	Approved             bool
	DeclineReason        string
	NetworkTransactionID string
}

// Gateway is the card/wallet settlement collaborator. Implementations are
// expected to respect context cancellation: a timed-out call leaves no state
// behind on the gateway side that the engine needs to reconcile.
type Gateway interface {
	Settle(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// WalletCapability reports whether the platform can perform digital wallet
// payments. The check runs before dispatch; an unavailable wallet is a
// validation failure, not a decline.
type WalletCapability interface {
	WalletAvailable(ctx context.Context) bool
}

// WalletCapabilityFunc adapts a plain function to WalletCapability.
type WalletCapabilityFunc func(ctx context.Context) bool

// WalletAvailable implements WalletCapability.
func (f WalletCapabilityFunc) WalletAvailable(ctx context.Context) bool { return f(ctx) }

// ValidCardNumber runs the Luhn check over the card number, ignoring spaces
// and dashes. Numbers shorter than 12 digits are rejected outright.
func ValidCardNumber(number string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)
	if len(cleaned) < 12 || len(cleaned) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(cleaned) - 1; i >= 0; i-- {
		c := cleaned[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}
