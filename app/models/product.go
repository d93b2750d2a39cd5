package models

import "github.com/shopspring/decimal"

type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// LineItem denormalises the product into a cart line.
func (p Product) LineItem(qty int) LineItem {
	return LineItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: qty,
		Image:    p.Image,
	}
}

type Catalog struct {
	products []Product
	byID     map[string]int
}

func NewCatalog(products ...Product) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(products))}
	for _, p := range products {
		if i, ok := c.byID[p.ID]; ok {
			c.products[i] = p
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// DefaultCatalog is the Axen Labs demo lineup.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Product{ID: "absolu", Name: "ETHRIX Absolu", Price: decimal.NewFromInt(89), Image: "/images/products/ethrix-absolu.png"},
		Product{ID: "flux", Name: "ETHRIX Flux", Price: decimal.NewFromInt(64), Image: "/images/products/ethrix-flux.png"},
		Product{ID: "shield", Name: "Axion Shield", Price: decimal.NewFromInt(48), Image: "/images/products/axion-shield.png"},
	)
}

func (c *Catalog) Lookup(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
