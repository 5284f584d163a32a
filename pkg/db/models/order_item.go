package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots one cart line at order-creation time. Price and product
// name are copies; later catalog edits never alter historical orders.
type OrderItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	Price       int64     `gorm:"column:price;not null"`
	ProductName string    `gorm:"column:product_name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
