package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-zawadi/internal/cart"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Customer holds the pickup contact.
type Customer struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=10,max=32"`
}

// Item is a flattened order line. Price is the unit price in cents.
type Item struct {
	Name        string        `json:"name"`
	Quantity    int           `json:"quantity"`
	Price       pricing.Money `json:"price"`
	Description string        `json:"description,omitempty"`
	Modifiers   []string      `json:"modifiers,omitempty"`
}

// Order is a submitted cart.
type Order struct {
	ID                  uuid.UUID     `json:"id"`
	Number              string        `json:"orderNumber"`
	Customer            Customer      `json:"customer"`
	Items               []Item        `json:"items"`
	Subtotal            pricing.Money `json:"subtotal"`
	Tax                 pricing.Money `json:"tax"`
	Total               pricing.Money `json:"total"`
	Status              Status        `json:"status"`
	PickupTime          string        `json:"pickupTime,omitempty"`
	SpecialInstructions string        `json:"specialInstructions,omitempty"`
	POSGuid             *string       `json:"posOrderGuid,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
}

// CheckoutInput is the payload of POST /orders.
type CheckoutInput struct {
	CartID              string   `json:"cartId" validate:"required"`
	Customer            Customer `json:"customer"`
	PickupTime          string   `json:"pickupTime" validate:"max=64"`
	SpecialInstructions string   `json:"specialInstructions" validate:"max=500"`
}

// Flatten converts cart lines into order items. Customized lines carry their
// modifiers so downstream systems can print them.
func Flatten(lines []cart.LineItem) []Item {
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		item := Item{
			Name:        line.Name,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Description: line.Description,
		}
		if line.Customized != nil {
			item.Modifiers = cart.Modifiers(*line.Customized)
		}
		items = append(items, item)
	}
	return items
}

// Summary recomputes totals from flattened items.
func Summary(items []Item, taxBps int) pricing.Summary {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Qty: it.Quantity, UnitPrice: it.Price})
	}
	return pricing.Compute(lines, taxBps)
}
