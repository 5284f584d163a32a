package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	"github.com/lacasita-io/storefront-backend/pkg/types"
)

// PlaceOrderInput carries the checkout request after validation.
type PlaceOrderInput struct {
	ShippingAddressID uuid.UUID
	Notes             *string
}

// UpdateStatusInput carries an admin-driven lifecycle transition.
type UpdateStatusInput struct {
	Status         enums.OrderStatus
	TrackingNumber *string
	Carrier        *string
}

// OrderItemDTO is the API projection of one snapshotted order line.
type OrderItemDTO struct {
	ID          uuid.UUID `json:"id"`
	VariantID   uuid.UUID `json:"variant_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Price       int64     `json:"price"`
}

// PaymentDTO is the API projection of the order's payment, when one exists.
type PaymentDTO struct {
	ID            uuid.UUID             `json:"id"`
	Provider      enums.PaymentProvider `json:"provider"`
	Amount        int64                 `json:"amount"`
	Status        enums.PaymentStatus   `json:"status"`
	TransactionID *string               `json:"transaction_id,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// OrderDTO is the API projection of an order aggregate.
type OrderDTO struct {
	ID                      uuid.UUID             `json:"id"`
	OrderNumber             int64                 `json:"order_number"`
	UserID                  uuid.UUID             `json:"user_id"`
	Status                  enums.OrderStatus     `json:"status"`
	Subtotal                int64                 `json:"subtotal"`
	Tax                     int64                 `json:"tax"`
	ShippingCost            int64                 `json:"shipping_cost"`
	Total                   int64                 `json:"total"`
	ShippingAddressSnapshot types.AddressSnapshot `json:"shipping_address"`
	Notes                   *string               `json:"notes,omitempty"`
	TrackingNumber          *string               `json:"tracking_number,omitempty"`
	Carrier                 *string               `json:"carrier,omitempty"`
	EstimatedDelivery       *time.Time            `json:"estimated_delivery,omitempty"`
	Items                   []OrderItemDTO        `json:"items"`
	Payment                 *PaymentDTO           `json:"payment,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
	UpdatedAt               time.Time             `json:"updated_at"`
}

// OrdersPageDTO is a cursor-paginated order listing.
type OrdersPageDTO struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toDTO(order *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:          item.ID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	dto := OrderDTO{
		ID:                      order.ID,
		OrderNumber:             order.OrderNumber,
		UserID:                  order.UserID,
		Status:                  order.Status,
		Subtotal:                order.Subtotal,
		Tax:                     order.Tax,
		ShippingCost:            order.ShippingCost,
		Total:                   order.Total,
		ShippingAddressSnapshot: order.ShippingAddressSnapshot,
		Notes:                   order.Notes,
		TrackingNumber:          order.TrackingNumber,
		Carrier:                 order.Carrier,
		EstimatedDelivery:       order.EstimatedDelivery,
		Items:                   items,
		CreatedAt:               order.CreatedAt,
		UpdatedAt:               order.UpdatedAt,
	}
	if order.Payment != nil {
		dto.Payment = &PaymentDTO{
			ID:            order.Payment.ID,
			Provider:      order.Payment.Provider,
			Amount:        order.Payment.Amount,
			Status:        order.Payment.Status,
			TransactionID: order.Payment.TransactionID,
			CreatedAt:     order.Payment.CreatedAt,
		}
	}
	return dto
}
