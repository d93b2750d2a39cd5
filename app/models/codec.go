package models

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

type persistedItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	Image    string      `json:"image,omitempty"`
}

type persistedHandoff struct {
	Mode      string          `json:"mode"`
	Items     []persistedItem `json:"items"`
	Timestamp int64           `json:"ts"`
}

func toPersisted(items []LineItem) []persistedItem {
	items = NormalizeItems(items)
	out := make([]persistedItem, 0, len(items))
	for _, item := range items {
		out = append(out, persistedItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    json.Number(item.Price.String()),
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return out
}

// EncodeCart serialises the normalised cart in its current persisted shape,
// {"items":[...]}, with prices written as JSON numbers.
func EncodeCart(c Cart) ([]byte, error) {
	return json.Marshal(struct {
		Items []persistedItem `json:"items"`
	}{Items: toPersisted(c.Items)})
}

// DecodeCart never fails: corrupt bytes, unknown shapes and bad lines all
// degrade to fewer (possibly zero) items. Both the current object shape and
// the legacy bare array are accepted.
func DecodeCart(raw []byte) Cart {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return EmptyCart()
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return EmptyCart()
	}

	var rawItems []any
	switch v := doc.(type) {
	case []any:
		rawItems = v
	case map[string]any:
		list, ok := v["items"].([]any)
		if !ok {
			return EmptyCart()
		}
		rawItems = list
	default:
		return EmptyCart()
	}

	return Cart{Items: NormalizeItems(decodeItems(rawItems))}
}

func decodeItems(rawItems []any) []LineItem {
	items := make([]LineItem, 0, len(rawItems))
	for _, entry := range rawItems {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, ok := coerceID(fields["id"])
		if !ok {
			continue
		}

		qtyField, hasQty := fields["quantity"]
		if !hasQty {
			qtyField = fields["qty"]
		}

		name, _ := fields["name"].(string)
		image, _ := fields["image"].(string)

		items = append(items, LineItem{
			ID:       id,
			Name:     name,
			Price:    CoercePrice(fields["price"]),
			Quantity: CoerceQuantity(qtyField),
			Image:    image,
		})
	}
	return items
}

func coerceID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		id = strings.TrimSpace(id)
		return id, id != ""
	case json.Number:
		return id.String(), true
	}
	return "", false
}

// CoercePrice turns a persisted price into a non-negative decimal. Strings
// such as "$89.00" are accepted the way the legacy cart parsed them.
func CoercePrice(v any) decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch p := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(p.String())
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(p)
	case string:
		cleaned := nonPriceChars.ReplaceAllString(p, "")
		if cleaned == "" {
			return decimal.Zero
		}
		d, err = decimal.NewFromString(cleaned)
	default:
		return decimal.Zero
	}
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// CoerceQuantity truncates to an integer, defaults anything below one (or
// unparsable) to one and caps at MaxQuantity.
func CoerceQuantity(v any) int {
	var q float64
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 1
		}
		q = f
	case float64:
		q = n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 1
		}
		q = f
	default:
		return 1
	}
	if math.IsNaN(q) || q < 1 {
		return 1
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return int(q)
}

// EncodeHandoff and DecodeHandoff mirror the cart codec for the buy-now
// payload. DecodeHandoff reports false when the payload is unusable.
func EncodeHandoff(p HandoffPayload) ([]byte, error) {
	return json.Marshal(persistedHandoff{
		Mode:      p.Mode,
		Items:     toPersisted(p.Items),
		Timestamp: p.Timestamp,
	})
}

func DecodeHandoff(raw []byte) (HandoffPayload, bool) {
	var head struct {
		Mode      string      `json:"mode"`
		Timestamp json.Number `json:"ts"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&head); err != nil {
		return HandoffPayload{}, false
	}
	ts, err := head.Timestamp.Int64()
	if err != nil {
		ts = 0
	}
	return HandoffPayload{
		Mode:      head.Mode,
		Items:     DecodeCart(raw).Items,
		Timestamp: ts,
	}, true
}
