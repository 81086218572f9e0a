package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// Logger defines the logging contract for gateway operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeMethodAPI interface {
	New(params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
}

type stripeGatewayClients struct {
	intents stripeIntentAPI
	methods stripeMethodAPI
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey  string
	Logger  Logger
	Clock   func() time.Time
	Clients *stripeGatewayClients
}

// StripeGateway settles card and wallet charges through Stripe Payment
// Intents. Card details pass straight through to Stripe tokenisation and are
// never retained.
type StripeGateway struct {
	api    stripeGatewayClients
	clock  func() time.Time
	logger Logger
}

// NewStripeGateway constructs a StripeGateway from the given configuration.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeGatewayClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, nil)
		clients = stripeGatewayClients{
			intents: sc.PaymentIntents,
			methods: sc.PaymentMethods,
		}
	}
	if clients.intents == nil || clients.methods == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeGateway{
		api: clients,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Settle creates and confirms a Payment Intent for the charge. Declines are
// reported through ChargeResult; transport and API failures surface as errors.
func (g *StripeGateway) Settle(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if g == nil {
		return ChargeResult{}, errors.New("stripe: gateway is nil")
	}

	methodID, err := g.resolvePaymentMethod(ctx, req)
	if err != nil {
		return ChargeResult{}, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(string(req.Currency))),
		PaymentMethod: stripe.String(methodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		params.SetIdempotencyKey(ref)
		params.Metadata = map[string]string{"reference": ref}
	}

	intent, err := g.api.intents.New(params)
	if err != nil {
		if result, ok := declineResult(err); ok {
			g.logger(ctx, "payments.stripe.declined", map[string]any{
				"reference": req.Reference,
				"reason":    result.DeclineReason,
			})
			return result, nil
		}
		return ChargeResult{}, fmt.Errorf("stripe: confirm intent: %w", err)
	}

	g.logger(ctx, "payments.stripe.settled", map[string]any{
		"paymentIntent": intent.ID,
		"status":        intent.Status,
	})

	approved := intent.Status == stripe.PaymentIntentStatusSucceeded ||
		intent.Status == stripe.PaymentIntentStatusProcessing
	result := ChargeResult{
		Approved:             approved,
		NetworkTransactionID: intent.ID,
	}
	if !approved {
		result.DeclineReason = string(intent.Status)
	}
	return result, nil
}

func (g *StripeGateway) resolvePaymentMethod(ctx context.Context, req ChargeRequest) (string, error) {
	if token := strings.TrimSpace(req.WalletToken); token != "" {
		return token, nil
	}
	if req.Card == nil {
		return "", errors.New("stripe: charge request carries neither card nor wallet token")
	}

	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(req.Card.Number),
			ExpMonth: stripe.Int64(int64(req.Card.ExpMonth)),
			ExpYear:  stripe.Int64(int64(req.Card.ExpYear)),
			CVC:      stripe.String(req.Card.CVV),
		},
	}
	params.Context = ctx

	method, err := g.api.methods.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: tokenise card: %w", err)
	}
	return method.ID, nil
}

func declineResult(err error) (ChargeResult, bool) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return ChargeResult{}, false
	}
	switch stripeErr.Code {
	case stripe.ErrorCodeCardDeclined, stripe.ErrorCodeExpiredCard,
		stripe.ErrorCodeIncorrectCVC, stripe.ErrorCodeProcessingError:
		result := ChargeResult{DeclineReason: string(stripeErr.Code)}
		if stripeErr.PaymentIntent != nil {
			result.NetworkTransactionID = stripeErr.PaymentIntent.ID
		}
		return result, true
	}
	return ChargeResult{}, false
}

var _ Gateway = (*StripeGateway)(nil)
