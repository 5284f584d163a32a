package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/lacasita-io/storefront-backend/pkg/enums"
)

// OrderCreatedEvent signals a newly placed order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Total       int64     `json:"total"`
	ItemCount   int       `json:"item_count"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderShippedEvent carries carrier details alongside the transition.
type OrderShippedEvent struct {
	OrderID           uuid.UUID  `json:"order_id"`
	OrderNumber       int64      `json:"order_number"`
	UserID            uuid.UUID  `json:"user_id"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// PaymentProcessedEvent reports the outcome of a payment attempt.
type PaymentProcessedEvent struct {
	PaymentID     uuid.UUID             `json:"payment_id"`
	OrderID       uuid.UUID             `json:"order_id"`
	UserID        uuid.UUID             `json:"user_id"`
	Provider      enums.PaymentProvider `json:"provider"`
	Status        enums.PaymentStatus   `json:"status"`
	Amount        int64                 `json:"amount"`
	TransactionID string                `json:"transaction_id,omitempty"`
}
