package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/pkg/db/models"
)

// Repository encapsulates address-book persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByIDAndUser loads an address only if it belongs to the user.
func (r *Repository) FindByIDAndUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	if addressID == uuid.Nil || userID == uuid.Nil {
		return nil, gorm.ErrInvalidValue
	}
	var addr models.Address
	if err := r.db.WithContext(ctx).
		First(&addr, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// ListByUser returns the user's address book, default address first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addrs []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&addrs).Error
	return addrs, err
}

// Create inserts a new address; when flagged default, previous defaults are cleared.
func (r *Repository) Create(ctx context.Context, addr *models.Address) error {
	if addr == nil {
		return gorm.ErrInvalidValue
	}
	if addr.ID == uuid.Nil {
		addr.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if addr.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("user_id = ? AND is_default", addr.UserID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(addr).Error
	})
}
