package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidPolicy = errors.New("invalid pricing policy")

// DefaultDiscountRate is the storefront-wide 20% promotion.
var DefaultDiscountRate = decimal.RequireFromString("0.2")

type PricingPolicy struct {
	DiscountRate decimal.Decimal
	ShippingCost decimal.Decimal
}

func (p PricingPolicy) Validate() error {
	if p.DiscountRate.IsNegative() || p.DiscountRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: discount rate %s outside [0, 1]", ErrInvalidPolicy, p.DiscountRate)
	}
	if p.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: negative shipping cost %s", ErrInvalidPolicy, p.ShippingCost)
	}
	return nil
}

// WithShipping returns a copy of the policy using a different flat fee.
func (p PricingPolicy) WithShipping(cost decimal.Decimal) PricingPolicy {
	p.ShippingCost = cost
	return p
}
