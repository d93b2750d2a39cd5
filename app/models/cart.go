package models

import "github.com/shopspring/decimal"

type Cart struct {
	Items []LineItem `json:"items"`
}

// EmptyCart returns a cart whose Items encode as [] rather than null.
func EmptyCart() Cart {
	return Cart{Items: []LineItem{}}
}

func (c Cart) Find(id string) (int, bool) {
	for i, item := range c.Items {
		if item.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Count is the number of units across all lines, used by the header badge.
func (c Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Clone copies the item slice so callers can't mutate store state.
func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	PolicyViolation bool            `json:"policyViolation,omitempty"`
}
