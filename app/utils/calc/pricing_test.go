package calc_test

import (
	"testing"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/utils/calc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		items     []models.LineItem
		policy    models.PricingPolicy
		want      models.Totals
		violation bool
	}{
		{
			name: "discount and flat shipping",
			items: []models.LineItem{
				{ID: "a", Price: dec("10"), Quantity: 2},
				{ID: "b", Price: dec("5"), Quantity: 1},
			},
			policy: models.PricingPolicy{DiscountRate: dec("0.2"), ShippingCost: dec("8")},
			want: models.Totals{
				Subtotal: dec("25"),
				Discount: dec("5"),
				Shipping: dec("8"),
				Total:    dec("28"),
			},
		},
		{
			name:   "empty cart ships free",
			items:  nil,
			policy: models.PricingPolicy{DiscountRate: dec("0.2"), ShippingCost: dec("8")},
			want: models.Totals{
				Subtotal: decimal.Zero,
				Discount: decimal.Zero,
				Shipping: decimal.Zero,
				Total:    decimal.Zero,
			},
		},
		{
			name:   "fractional prices stay exact",
			items:  []models.LineItem{{ID: "x", Price: dec("0.1"), Quantity: 3}},
			policy: models.PricingPolicy{DiscountRate: dec("0"), ShippingCost: dec("0")},
			want: models.Totals{
				Subtotal: dec("0.3"),
				Discount: decimal.Zero,
				Shipping: decimal.Zero,
				Total:    dec("0.3"),
			},
		},
		{
			name:   "discount above subtotal plus shipping is clamped",
			items:  []models.LineItem{{ID: "a", Price: dec("10"), Quantity: 1}},
			policy: models.PricingPolicy{DiscountRate: dec("2"), ShippingCost: dec("5")},
			want: models.Totals{
				Subtotal:        dec("10"),
				Discount:        dec("20"),
				Shipping:        dec("5"),
				Total:           decimal.Zero,
				PolicyViolation: true,
			},
			violation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Compute(tt.items, tt.policy)
			if tt.violation {
				require.ErrorIs(t, err, calc.ErrNegativeTotal)
			} else {
				require.NoError(t, err)
			}

			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.want.Discount.Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, tt.want.Shipping.Equal(got.Shipping), "shipping %s", got.Shipping)
			assert.True(t, tt.want.Total.Equal(got.Total), "total %s", got.Total)
			assert.Equal(t, tt.want.PolicyViolation, got.PolicyViolation)
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	items := []models.LineItem{{ID: "absolu", Price: dec("89"), Quantity: 3}}
	policy := models.PricingPolicy{DiscountRate: dec("0.2"), ShippingCost: dec("12.5")}

	first, err := calc.Compute(items, policy)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := calc.Compute(items, policy)
		require.NoError(t, err)
		assert.True(t, first.Total.Equal(again.Total))
	}
	assert.Equal(t, "226.1", first.Total.String())
}

func TestCalculateShipping(t *testing.T) {
	assert.True(t, calc.CalculateShipping(decimal.Zero, dec("8")).IsZero())
	assert.True(t, calc.CalculateShipping(dec("0.01"), dec("8")).Equal(dec("8")))
}
