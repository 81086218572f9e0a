package domain

import (
	"errors"
	"math"
)

// DefaultForeignMarkup is the multiplier applied to base prices for foreign
// customers when no override is configured.
const DefaultForeignMarkup = 1.5

// ErrInvalidRate is returned by Convert when the exchange rate is not positive.
var ErrInvalidRate = errors.New("pricing: exchange rate must be positive")

// PricingPolicy converts base menu prices into charged prices given the
// customer's origin class. All methods are pure and deterministic.
type PricingPolicy struct {
	ForeignMarkup float64
}

// NewPricingPolicy builds a policy, falling back to the default markup when the
// supplied factor is not positive.
func NewPricingPolicy(foreignMarkup float64) PricingPolicy {
	if foreignMarkup <= 0 {
		foreignMarkup = DefaultForeignMarkup
	}
	return PricingPolicy{ForeignMarkup: foreignMarkup}
}

// ChargedPrice applies the foreign markup to the base price when the customer
// is foreign; domestic customers pay the base price unchanged. Results are
// rounded to the nearest minor unit.
func (p PricingPolicy) ChargedPrice(basePrice int64, origin OriginClass) int64 {
	if origin != OriginForeign {
		return basePrice
	}
	return int64(math.Round(float64(basePrice) * p.ForeignMarkup))
}

// CurrencyFor selects the billing currency for a customer segment: foreign
// customers are billed in USD, everyone else in COP.
func (p PricingPolicy) CurrencyFor(origin OriginClass) Currency {
	if origin == OriginForeign {
		return CurrencyUSD
	}
	return CurrencyCOP
}

// Convert performs a linear currency conversion with the supplied rate.
// Identical from/to currencies pass the amount through untouched. A rate of
// zero or below fails with ErrInvalidRate rather than silently defaulting.
func Convert(amount float64, from, to Currency, rate float64) (float64, error) {
	if from == to {
		return amount, nil
	}
	if rate <= 0 {
		return 0, ErrInvalidRate
	}
	return amount * rate, nil
}
