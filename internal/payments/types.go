package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
)

// PaymentDTO is the API projection of a payment attempt.
type PaymentDTO struct {
	ID            uuid.UUID             `json:"id"`
	OrderID       uuid.UUID             `json:"order_id"`
	Provider      enums.PaymentProvider `json:"provider"`
	Amount        int64                 `json:"amount"`
	Status        enums.PaymentStatus   `json:"status"`
	TransactionID *string               `json:"transaction_id,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// ProcessInput carries the gateway outcome reported for a pending payment.
type ProcessInput struct {
	Success       bool
	TransactionID *string
}

// MethodDTO describes one accepted payment rail.
type MethodDTO struct {
	Provider           enums.PaymentProvider `json:"provider"`
	RequiresProcessing bool                  `json:"requires_processing"`
}

func toDTO(payment *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            payment.ID,
		OrderID:       payment.OrderID,
		Provider:      payment.Provider,
		Amount:        payment.Amount,
		Status:        payment.Status,
		TransactionID: payment.TransactionID,
		CreatedAt:     payment.CreatedAt,
	}
}
