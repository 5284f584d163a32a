package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/internal/catalog"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  is_published INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  color TEXT,
  size TEXT,
  price INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, variant_id)
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		CartRepo:    NewRepository(db),
		CatalogRepo: catalog.NewRepository(db),
	})
	require.NoError(t, err)
	return svc
}

func seedCatalogVariant(t *testing.T, db *gorm.DB, name string, price int64, stock int, published bool) uuid.UUID {
	t.Helper()

	productID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, name, is_published) VALUES (?, ?, ?)`,
		productID, name, published,
	).Error)

	variantID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO product_variants (id, product_id, sku, price, stock) VALUES (?, ?, ?, ?, ?)`,
		variantID, productID, "SKU-"+variantID.String()[:8], price, stock,
	).Error)
	return variantID
}

func TestCartGetCreatesLazily(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()

	dto, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, dto.ID)
	require.Empty(t, dto.Items)
	require.Zero(t, dto.Subtotal)

	// second access reuses the same cart
	again, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, dto.ID, again.ID)
}

func TestCartAddItem(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	variantID := seedCatalogVariant(t, db, "Linen Shirt", 45000, 10, true)

	dto, err := svc.AddItem(ctx, userID, variantID, 2)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	require.Equal(t, 2, dto.Items[0].Quantity)
	require.Equal(t, int64(45000), dto.Items[0].UnitPrice)
	require.Equal(t, int64(90000), dto.Subtotal)
	require.Equal(t, "Linen Shirt", dto.Items[0].ProductName)

	// adding the same variant merges quantities
	dto, err = svc.AddItem(ctx, userID, variantID, 3)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	require.Equal(t, 5, dto.Items[0].Quantity)
	require.Equal(t, int64(225000), dto.Subtotal)
}

func TestCartAddItemStockCap(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	variantID := seedCatalogVariant(t, db, "Wool Socks", 12000, 4, true)

	_, err := svc.AddItem(ctx, userID, variantID, 5)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// merged quantity above stock is rejected too
	_, err = svc.AddItem(ctx, userID, variantID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, variantID, 2)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
}

func TestCartAddItemUnpublishedProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	variantID := seedCatalogVariant(t, db, "Draft Item", 10000, 5, false)

	_, err := svc.AddItem(context.Background(), uuid.New(), variantID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCartUpdateItem(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	variantID := seedCatalogVariant(t, db, "Denim Jacket", 120000, 8, true)
	dto, err := svc.AddItem(ctx, userID, variantID, 2)
	require.NoError(t, err)
	itemID := dto.Items[0].ID

	dto, err = svc.UpdateItem(ctx, userID, itemID, 4)
	require.NoError(t, err)
	require.Equal(t, 4, dto.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, userID, itemID, 9)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// quantity zero removes the line
	dto, err = svc.UpdateItem(ctx, userID, itemID, 0)
	require.NoError(t, err)
	require.Empty(t, dto.Items)
}

func TestCartRemoveItem(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	variantID := seedCatalogVariant(t, db, "Canvas Bag", 35000, 6, true)
	dto, err := svc.AddItem(ctx, userID, variantID, 1)
	require.NoError(t, err)

	dto, err = svc.RemoveItem(ctx, userID, dto.Items[0].ID)
	require.NoError(t, err)
	require.Empty(t, dto.Items)

	_, err = svc.RemoveItem(ctx, userID, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCartClear(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	first := seedCatalogVariant(t, db, "Item A", 10000, 5, true)
	second := seedCatalogVariant(t, db, "Item B", 20000, 5, true)
	_, err := svc.AddItem(ctx, userID, first, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, second, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, userID))

	dto, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, dto.Items)
}

func TestCartSnapshot(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	variantID := seedCatalogVariant(t, db, "Leather Belt", 60000, 10, true)
	_, err := svc.AddItem(ctx, userID, variantID, 2)
	require.NoError(t, err)

	// the cart-recorded price stays authoritative after a catalog change
	require.NoError(t, db.Exec(`UPDATE product_variants SET price = 99000 WHERE id = ?`, variantID).Error)

	snapshot, err := svc.Snapshot(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 1)
	require.Equal(t, int64(60000), snapshot.Lines[0].UnitPrice)
	require.Equal(t, int64(120000), snapshot.Subtotal)
	require.Equal(t, "Leather Belt", snapshot.Lines[0].ProductName)
}

func TestCartSnapshotEmptyCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	_, err := svc.Snapshot(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCartSnapshotUnpublishedSinceAdd(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	variantID := seedCatalogVariant(t, db, "Seasonal Cap", 30000, 5, true)
	_, err := svc.AddItem(ctx, userID, variantID, 1)
	require.NoError(t, err)

	// the product was pulled from the catalog after the add
	require.NoError(t, db.Exec(
		`UPDATE products SET is_published = 0 WHERE id = (SELECT product_id FROM product_variants WHERE id = ?)`,
		variantID,
	).Error)

	_, err = svc.Snapshot(ctx, userID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, variantID.String(), details["variant_id"])
}

func TestCartSnapshotStaleStock(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	variantID := seedCatalogVariant(t, db, "Silk Scarf", 80000, 5, true)
	_, err := svc.AddItem(ctx, userID, variantID, 4)
	require.NoError(t, err)

	// stock dropped below the cart quantity since the add
	require.NoError(t, db.Exec(`UPDATE product_variants SET stock = 1 WHERE id = ?`, variantID).Error)

	_, err = svc.Snapshot(ctx, userID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
}
