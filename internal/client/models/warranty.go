package models

import "time"

// WarrantyRequest is the body of POST /api/warranty.
type WarrantyRequest struct {
	DealerID      int64     `json:"dealerId"`
	ProductID     int64     `json:"productId,omitempty"`
	SerialNumber  string    `json:"serialNumber"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	PurchaseDate  time.Time `json:"purchaseDate"`
}

type Warranty struct {
	WarrantyID   int64     `json:"warrantyId"`
	WarrantyCode string    `json:"warrantyCode,omitempty"`
	SerialNumber string    `json:"serialNumber"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
