package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	"github.com/lacasita-io/storefront-backend/pkg/pagination"
)

// Repository encapsulates order aggregate persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository bound to the provided gorm DB.
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

// Create inserts the order header and its lines. The caller supplies the
// transaction; the sequential order number is claimed inside it.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return gorm.ErrInvalidValue
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.OrderNumber == 0 {
		number, err := r.nextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// nextOrderNumber claims a number from the order_numbers sequence on postgres,
// where concurrent checkouts must never collide. The sqlite fallback keeps the
// MAX+1 scan for the test databases, which have no sequences.
func (r *Repository) nextOrderNumber(ctx context.Context) (int64, error) {
	if r.db.Dialector.Name() == "postgres" {
		var number int64
		err := r.db.WithContext(ctx).
			Raw("SELECT nextval('order_numbers')").
			Scan(&number).Error
		if err != nil {
			return 0, err
		}
		return number, nil
	}

	var current int64
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("COALESCE(MAX(order_number), 999)").
		Take(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// FindByID loads the aggregate with its lines and payment.
func (r *Repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, gorm.ErrInvalidValue
	}
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC")
		}).
		Preload("Payment").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns a cursor-paginated page of orders, newest first. A nil userID
// filter returns every order (admin listing).
func (r *Repository) List(ctx context.Context, userID *uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items").
		Preload("Payment")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var rows []models.Order
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

// TransitionStatus performs the compare-and-swap that serializes concurrent
// lifecycle updates: the UPDATE only matches while the row still holds the
// expected previous status. Zero rows affected means another transition won.
func (r *Repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for column, value := range extra {
		updates[column] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
