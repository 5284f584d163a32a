package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/pkg/db/models"
)

// Repository provides read access to the product catalog. Catalog CRUD lives
// in the admin surface; the order core only validates and snapshots from it.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided gorm DB.
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

// FindVariantByID loads a variant together with its parent product.
func (r *Repository) FindVariantByID(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	if variantID == uuid.Nil {
		return nil, gorm.ErrInvalidValue
	}
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).
		Preload("Product").
		First(&variant, "id = ?", variantID).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantsByIDs loads the requested variants with their products. Missing
// IDs are simply absent from the result; callers decide how to react.
func (r *Repository) FindVariantsByIDs(ctx context.Context, variantIDs []uuid.UUID) ([]models.ProductVariant, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	var variants []models.ProductVariant
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id IN ?", variantIDs).
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}
