package models

import (
	"fmt"
	"time"
)

// CartLine is one line of a dealer's cart as returned by the API. The display
// fields are optional in API responses and filled in by enrichment.
type CartLine struct {
	CartID    int64     `json:"cartId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	Subtotal  float64   `json:"subtotal"`
	AddedAt   time.Time `json:"addedAt"`

	ProductName string `json:"productName,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

// NeedsDisplayInfo reports whether any display field is missing.
func (l CartLine) NeedsDisplayInfo() bool {
	return l.ProductName == "" || l.Image == "" || l.Description == ""
}

// ApplyDisplayInfo fills the display fields that are still empty.
func (l *CartLine) ApplyDisplayInfo(info DisplayInfo) {
	if l.ProductName == "" {
		l.ProductName = info.Name
	}
	if l.Image == "" {
		l.Image = info.Image
	}
	if l.Description == "" {
		l.Description = info.Description
	}
}

// Recalculate sets Subtotal to Quantity*UnitPrice.
func (l *CartLine) Recalculate() {
	l.Subtotal = float64(l.Quantity) * l.UnitPrice
}

// IsLocal reports whether the line was synthesized on the client and is not
// known to the server yet.
func (l CartLine) IsLocal() bool {
	return l.CartID < 0
}

// CartResponse is the body returned by GET /api/cart/dealer/{dealerId}.
type CartResponse struct {
	Items []CartLine `json:"items"`
}

// AddCartItemRequest is the body of POST /api/cart/items.
type AddCartItemRequest struct {
	DealerID  int64   `json:"dealerId"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// QuantityAction is the action parameter of the quantity PATCH endpoint.
type QuantityAction string

const (
	ActionIncrement QuantityAction = "increment"
	ActionDecrement QuantityAction = "decrement"
	ActionSet       QuantityAction = "set"
)

func ParseQuantityAction(s string) (QuantityAction, error) {
	switch a := QuantityAction(s); a {
	case ActionIncrement, ActionDecrement, ActionSet:
		return a, nil
	default:
		return "", fmt.Errorf("unknown quantity action %q", s)
	}
}

// ApplyQuantity computes the quantity that results from applying action to
// current. remove is true when the line must disappear: a decrement at 1 or
// a set to zero or less.
func ApplyQuantity(current int, action QuantityAction, quantity int) (next int, remove bool, err error) {
	switch action {
	case ActionIncrement:
		return current + 1, false, nil
	case ActionDecrement:
		if current <= 1 {
			return 0, true, nil
		}
		return current - 1, false, nil
	case ActionSet:
		if quantity <= 0 {
			return 0, true, nil
		}
		return quantity, false, nil
	default:
		return current, false, fmt.Errorf("unknown quantity action %q", action)
	}
}

// TotalAmount sums UnitPrice*Quantity over lines.
func TotalAmount(lines []CartLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

// ItemCount sums Quantity over lines.
func ItemCount(lines []CartLine) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
