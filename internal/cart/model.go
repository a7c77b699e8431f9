package cart

import (
	"time"

	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// ItemSnapshot copies the menu fields a cart line needs for display and
// order submission. It never points back into the catalog.
type ItemSnapshot struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Category     string            `json:"category"`
	Image        string            `json:"image,omitempty"`
	Kind         menu.Kind         `json:"kind"`
	BasePrice    pricing.Money     `json:"basePrice"`
	Capabilities []menu.Capability `json:"capabilities,omitempty"`
}

// Allows reports whether the snapshotted item allowed c.
func (s ItemSnapshot) Allows(c menu.Capability) bool {
	for _, k := range s.Capabilities {
		if k == c {
			return true
		}
	}
	return false
}

// CustomizedItem is a finalized customization. TotalPrice is fixed when the
// session is finalized and is never recomputed.
type CustomizedItem struct {
	Item       ItemSnapshot        `json:"item"`
	Selection  customize.Selection `json:"selection"`
	TotalPrice pricing.Money       `json:"totalPrice"`
}

// LineItem is one cart row. Price is per unit.
type LineItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       pricing.Money   `json:"price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image,omitempty"`
	Customized  *CustomizedItem `json:"customized,omitempty"`
}

// Subtotal is Price times Quantity.
func (l LineItem) Subtotal() pricing.Money {
	return l.Price * pricing.Money(l.Quantity)
}

// Cart is the stored cart document.
type Cart struct {
	ID        string     `json:"id"`
	Lines     []LineItem `json:"lines"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ItemCount sums line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Summary prices the cart with the given tax rate in basis points.
func (c Cart) Summary(taxBps int) pricing.Summary {
	lines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, pricing.Line{Qty: l.Quantity, UnitPrice: l.Price})
	}
	return pricing.Compute(lines, taxBps)
}

func (c Cart) find(lineID string) int {
	for i, l := range c.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}
