package models

import (
	"encoding/json"
	"fmt"
)

// Product is the body returned by GET /api/product/{id}.
type Product struct {
	ID          int64   `json:"id"`
	SKU         string  `json:"sku,omitempty"`
	Name        string  `json:"name"`
	Image       string  `json:"image,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	DealerPrice float64 `json:"dealerPrice,omitempty"`
}

// DisplayInfo is the subset of product data a cart line needs for display.
type DisplayInfo struct {
	ProductID   int64  `json:"productId"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

func (p Product) DisplayInfo() DisplayInfo {
	return DisplayInfo{ProductID: p.ID, Name: p.Name, Image: p.Image, Description: p.Description}
}

// PriceFor returns the dealer price when the catalog has one.
func (p Product) PriceFor() float64 {
	if p.DealerPrice > 0 {
		return p.DealerPrice
	}
	return p.Price
}

// AvailableCount is the body of the available-count endpoint. Servers answer
// either with a bare number or with {"count": n}.
type AvailableCount int

func (c *AvailableCount) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*c = AvailableCount(n)
		return nil
	}
	var obj struct {
		Count          *int `json:"count"`
		AvailableCount *int `json:"availableCount"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("available count: %w", err)
	}
	switch {
	case obj.Count != nil:
		*c = AvailableCount(*obj.Count)
	case obj.AvailableCount != nil:
		*c = AvailableCount(*obj.AvailableCount)
	default:
		return fmt.Errorf("available count: no count in %s", string(b))
	}
	return nil
}
