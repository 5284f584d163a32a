package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  color TEXT,
  size TEXT,
  price INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO product_variants (id, product_id, sku, price, stock) VALUES (?, ?, ?, ?, ?)`,
		id, uuid.New(), "SKU-"+id.String()[:8], 10000, stock,
	).Error)
	return id
}

func variantStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var stock int
	require.NoError(t, db.Table("product_variants").Select("stock").Where("id = ?", id).Take(&stock).Error)
	return stock
}

func TestLedgerReserve(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	variantID := seedVariant(t, db, 10)

	require.NoError(t, ledger.Reserve(ctx, db, variantID, 3))
	require.Equal(t, 7, variantStock(t, db, variantID))

	// draining the remainder is allowed
	require.NoError(t, ledger.Reserve(ctx, db, variantID, 7))
	require.Equal(t, 0, variantStock(t, db, variantID))
}

func TestLedgerReserveInsufficient(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	variantID := seedVariant(t, db, 2)

	err := ledger.Reserve(ctx, db, variantID, 3)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, variantID.String(), details["variant_id"])
	require.Equal(t, 2, details["available"])

	// the failed reserve must not have touched stock
	require.Equal(t, 2, variantStock(t, db, variantID))
}

func TestLedgerReserveUnknownVariant(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)

	err := ledger.Reserve(context.Background(), db, uuid.New(), 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestLedgerReserveValidation(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	variantID := seedVariant(t, db, 5)

	require.Error(t, ledger.Reserve(ctx, nil, variantID, 1))
	require.Error(t, ledger.Reserve(ctx, db, uuid.Nil, 1))
	require.Error(t, ledger.Reserve(ctx, db, variantID, 0))
	require.Error(t, ledger.Reserve(ctx, db, variantID, -2))
	require.Equal(t, 5, variantStock(t, db, variantID))
}

func TestLedgerRelease(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	variantID := seedVariant(t, db, 1)

	require.NoError(t, ledger.Release(ctx, db, variantID, 4))
	require.Equal(t, 5, variantStock(t, db, variantID))

	err := ledger.Release(ctx, db, uuid.New(), 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestLedgerReserveInsideTransaction(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	variantID := seedVariant(t, db, 10)

	// a rolled-back transaction leaves stock untouched
	tx := db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, ledger.Reserve(ctx, tx, variantID, 6))
	require.NoError(t, tx.Rollback().Error)
	require.Equal(t, 10, variantStock(t, db, variantID))

	tx = db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, ledger.Reserve(ctx, tx, variantID, 6))
	require.NoError(t, tx.Commit().Error)
	require.Equal(t, 4, variantStock(t, db, variantID))
}

func TestLedgerAvailable(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)

	variantID := seedVariant(t, db, 8)

	available, err := ledger.Available(context.Background(), variantID)
	require.NoError(t, err)
	require.Equal(t, 8, available)

	_, err = ledger.Available(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
