package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is the purchasable SKU-level unit. Stock is the inventory
// ledger's single source of truth and is only mutated through guarded
// reserve/release statements.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	SKU       string    `gorm:"column:sku;type:text;not null;uniqueIndex"`
	Color     *string   `gorm:"column:color"`
	Size      *string   `gorm:"column:size"`
	Price     int64     `gorm:"column:price;not null"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
