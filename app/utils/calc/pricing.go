package calc

import (
	"errors"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/shopspring/decimal"
)

// ErrNegativeTotal reports a policy whose discount exceeds subtotal plus
// shipping. The returned total is clamped to zero.
var ErrNegativeTotal = errors.New("pricing policy produced a negative total")

func Subtotal(items []models.LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

func CalculateDiscount(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate)
}

// CalculateShipping charges the flat fee only on a non-empty cart.
func CalculateShipping(subtotal, flatCost decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return flatCost
}

func CalculateGrandTotal(subtotal, discount, shipping decimal.Decimal) (decimal.Decimal, error) {
	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		return decimal.Zero, ErrNegativeTotal
	}
	return total, nil
}

// Compute derives every money amount for a cart. On ErrNegativeTotal the
// totals are still usable: Total is zero and PolicyViolation is set.
func Compute(items []models.LineItem, policy models.PricingPolicy) (models.Totals, error) {
	subtotal := Subtotal(items)
	discount := CalculateDiscount(subtotal, policy.DiscountRate)
	shipping := CalculateShipping(subtotal, policy.ShippingCost)
	total, err := CalculateGrandTotal(subtotal, discount, shipping)

	return models.Totals{
		Subtotal:        subtotal,
		Discount:        discount,
		Shipping:        shipping,
		Total:           total,
		PolicyViolation: errors.Is(err, ErrNegativeTotal),
	}, err
}
