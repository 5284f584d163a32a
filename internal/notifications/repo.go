package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/pkg/db/models"
)

// Repository encapsulates notification persistence plus the user contact
// lookup the dispatcher needs for delivery.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a notification repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts one notification row.
func (r *Repository) Create(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return gorm.ErrInvalidValue
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListByUser returns the user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkRead stamps read_at on an unread notification owned by the user.
func (r *Repository) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindUserContact loads the contact fields delivery channels need.
func (r *Repository) FindUserContact(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, gorm.ErrInvalidValue
	}
	var user models.User
	if err := r.db.WithContext(ctx).
		Select("id", "email", "full_name", "phone").
		First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
