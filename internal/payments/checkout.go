package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

// HostedCheckoutRequest describes a cart hand-off to the hosted payment page.
type HostedCheckoutRequest struct {
	Amount      int64
	Currency    domain.Currency
	Description string
	CustomerRef string
	Reference   string
}

// HostedCheckout is the redirect triple handed back to the storefront. The
// engine does not track the hosted page beyond this contract.
type HostedCheckout struct {
	Reference           string
	AmountInMinorUnits  int64
	RedirectURL         string
	ExpiresAt           time.Time
}

// CheckoutProvider creates hosted checkout sessions with an external provider.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req HostedCheckoutRequest) (HostedCheckout, error)
}

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeCheckoutConfig configures the Stripe hosted checkout provider.
type StripeCheckoutConfig struct {
	APIKey     string
	SuccessURL string
	CancelURL  string
	Logger     Logger
	Clock      func() time.Time
	Sessions   stripeSessionAPI
}

// StripeCheckout implements CheckoutProvider using Stripe Checkout Sessions.
type StripeCheckout struct {
	sessions   stripeSessionAPI
	successURL string
	cancelURL  string
	clock      func() time.Time
	logger     Logger
}

// NewStripeCheckout constructs the provider, dialing Stripe unless a session
// client is injected (tests).
func NewStripeCheckout(cfg StripeCheckoutConfig) (*StripeCheckout, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Sessions == nil {
		return nil, errors.New("stripe: api key is required")
	}
	if strings.TrimSpace(cfg.SuccessURL) == "" || strings.TrimSpace(cfg.CancelURL) == "" {
		return nil, errors.New("stripe: success and cancel URLs are required")
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sc := client.New(apiKey, nil)
		sessions = sc.CheckoutSessions
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeCheckout{
		sessions:   sessions,
		successURL: strings.TrimSpace(cfg.SuccessURL),
		cancelURL:  strings.TrimSpace(cfg.CancelURL),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateSession creates a hosted checkout session and returns the redirect triple.
func (p *StripeCheckout) CreateSession(ctx context.Context, req HostedCheckoutRequest) (HostedCheckout, error) {
	if p == nil {
		return HostedCheckout{}, errors.New("stripe: checkout provider is nil")
	}
	if req.Amount <= 0 {
		return HostedCheckout{}, errors.New("stripe: checkout amount must be positive")
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Gato Blanco order"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(string(req.Currency))),
				UnitAmount: stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
			},
		}},
	}
	params.Context = ctx
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		params.SetIdempotencyKey(ref)
		params.ClientReferenceID = stripe.String(ref)
	}

	session, err := p.sessions.New(params)
	if err != nil {
		return HostedCheckout{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	p.logger(ctx, "payments.stripe.session.created", map[string]any{
		"sessionId": session.ID,
		"currency":  session.Currency,
	})

	expiresAt := p.clock().Add(30 * time.Minute)
	if session.ExpiresAt != 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = session.ID
	}

	return HostedCheckout{
		Reference:          reference,
		AmountInMinorUnits: req.Amount,
		RedirectURL:        session.URL,
		ExpiresAt:          expiresAt,
	}, nil
}

var _ CheckoutProvider = (*StripeCheckout)(nil)
