package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
)

// Ledger owns every stock mutation. Reserve and Release run inside the
// caller's transaction so reservations commit or roll back with the order.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs the inventory ledger bound to the provided gorm DB.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Reserve atomically decrements stock. The guard in the WHERE clause is the
// authoritative defense against concurrent oversell: when two checkouts race
// for the last unit, exactly one UPDATE matches a row.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE product_variants SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND stock >= ?`,
		qty, variantID, qty,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		available, err := l.availableTx(ctx, tx, variantID)
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"variant_id": variantID.String(),
				"available":  available,
			})
	}
	return nil
}

// Release returns previously reserved units, used when an order is cancelled.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE product_variants SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		qty, variantID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return nil
}

// Available reads the current stock level outside any transaction. Callers
// must treat the value as advisory; only Reserve is race-safe.
func (l *Ledger) Available(ctx context.Context, variantID uuid.UUID) (int, error) {
	return l.availableTx(ctx, l.db, variantID)
}

func (l *Ledger) availableTx(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (int, error) {
	var stock int
	err := tx.WithContext(ctx).
		Table("product_variants").
		Select("stock").
		Where("id = ?", variantID).
		Take(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return 0, err
	}
	return stock, nil
}
