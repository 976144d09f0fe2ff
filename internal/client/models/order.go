package models

import "time"

type OrderItem struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Subtotal    float64 `json:"subtotal"`
}

// OrderRequest is the body of POST /api/order/orders.
type OrderRequest struct {
	DealerID    int64       `json:"dealerId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Note        string      `json:"note,omitempty"`
}

type Order struct {
	OrderID     int64       `json:"orderId"`
	OrderCode   string      `json:"orderCode,omitempty"`
	DealerID    int64       `json:"dealerId"`
	Status      string      `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	Note        string      `json:"note,omitempty"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// OrderItemsFromCart converts cart lines into order items.
func OrderItemsFromCart(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.UnitPrice * float64(l.Quantity),
		})
	}
	return items
}
