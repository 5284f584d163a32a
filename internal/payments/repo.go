package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
)

// Repository encapsulates payment persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payment repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository scoped to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the payment row. The unique index on order_id backs the
// one-payment-per-order rule when two creates race.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	if payment == nil {
		return gorm.ErrInvalidValue
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

// FindByOrderID loads the payment attached to an order.
func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, gorm.ErrInvalidValue
	}
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateOutcome records the processing result on a pending payment. Guarding
// on PENDING keeps a replayed process call from overwriting the outcome.
func (r *Repository) UpdateOutcome(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus, transactionID *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":         status,
			"transaction_id": transactionID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
