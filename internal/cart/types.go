package cart

import (
	"time"

	"github.com/google/uuid"
)

// CartItemDTO is the API projection of one cart line.
type CartItemDTO struct {
	ID          uuid.UUID `json:"id"`
	VariantID   uuid.UUID `json:"variant_id"`
	SKU         string    `json:"sku"`
	ProductName string    `json:"product_name"`
	Color       *string   `json:"color,omitempty"`
	Size        *string   `json:"size,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	LineTotal   int64     `json:"line_total"`
}

// CartDTO is the API projection of a user's cart.
type CartDTO struct {
	ID        uuid.UUID     `json:"id"`
	Items     []CartItemDTO `json:"items"`
	Subtotal  int64         `json:"subtotal"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SnapshotLine is one validated, priced line handed to order placement. The
// unit price is the cart-recorded price, not the live catalog price.
type SnapshotLine struct {
	VariantID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   int64
}

// Snapshot is the immutable cart view order placement consumes.
type Snapshot struct {
	CartID   uuid.UUID
	Lines    []SnapshotLine
	Subtotal int64
}
