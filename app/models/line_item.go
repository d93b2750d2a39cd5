package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity bounds a single line. Anything above it is stored as
// MaxQuantity so that what is written always reads back unchanged.
const MaxQuantity = 9999

type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
}

// LineTotal is price times quantity for a single line.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Normalize coerces a line into its persisted form. The second return value
// is false when the line has no usable id and must be dropped.
func (li LineItem) Normalize() (LineItem, bool) {
	li.ID = strings.TrimSpace(li.ID)
	if li.ID == "" {
		return LineItem{}, false
	}
	if li.Price.IsNegative() {
		li.Price = decimal.Zero
	}
	if li.Quantity < 1 {
		li.Quantity = 1
	}
	if li.Quantity > MaxQuantity {
		li.Quantity = MaxQuantity
	}
	return li, true
}

// AddQuantity sums two line quantities, saturating at MaxQuantity.
func AddQuantity(a, b int) int {
	if b > MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

// NormalizeItems normalises every line, drops lines without an id and folds
// duplicate ids into their first occurrence by summing quantities.
func NormalizeItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[string]int, len(items))

	for _, raw := range items {
		item, ok := raw.Normalize()
		if !ok {
			continue
		}
		if i, seen := index[item.ID]; seen {
			out[i].Quantity = AddQuantity(out[i].Quantity, item.Quantity)
			continue
		}
		index[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}
