package products

import "time"

// Product is a sellable item attached to customers via the pipeline.
// PriceDisplay carries the rupiah-formatted price for API consumers.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Price        float64   `json:"price"`
	PriceDisplay string    `json:"price_display,omitempty"`
	Stock        int       `json:"stock"`
	CreatedAt    time.Time `json:"created_at"`
}
