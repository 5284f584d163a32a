package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lacasita-io/storefront-backend/pkg/enums"
	"github.com/lacasita-io/storefront-backend/pkg/types"
)

// Order is the durable aggregate produced by checkout. Monetary fields and
// the address snapshot are fixed at creation; only the state machine touches
// status and tracking fields afterwards.
type Order struct {
	ID                      uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber             int64                 `gorm:"column:order_number;not null;uniqueIndex"`
	UserID                  uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status                  enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Subtotal                int64                 `gorm:"column:subtotal;not null"`
	Tax                     int64                 `gorm:"column:tax;not null"`
	ShippingCost            int64                 `gorm:"column:shipping_cost;not null"`
	Total                   int64                 `gorm:"column:total;not null"`
	ShippingAddressID       *uuid.UUID            `gorm:"column:shipping_address_id;type:uuid"`
	ShippingAddressSnapshot types.AddressSnapshot `gorm:"column:shipping_address_snapshot;type:jsonb;serializer:json"`
	Notes                   *string               `gorm:"column:notes"`
	TrackingNumber          *string               `gorm:"column:tracking_number"`
	Carrier                 *string               `gorm:"column:carrier"`
	EstimatedDelivery       *time.Time            `gorm:"column:estimated_delivery"`
	Items                   []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment                 *Payment              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
