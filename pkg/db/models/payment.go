package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lacasita-io/storefront-backend/pkg/enums"
)

// Payment records the single payment attempt allowed per order.
type Payment struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payments_order"`
	Provider      enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	Amount        int64                 `gorm:"column:amount;not null"`
	Status        enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	TransactionID *string               `gorm:"column:transaction_id"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
