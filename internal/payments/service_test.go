package payments

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/internal/address"
	"github.com/lacasita-io/storefront-backend/internal/cart"
	"github.com/lacasita-io/storefront-backend/internal/catalog"
	"github.com/lacasita-io/storefront-backend/internal/inventory"
	"github.com/lacasita-io/storefront-backend/internal/orders"
	"github.com/lacasita-io/storefront-backend/pkg/config"
	dbpkg "github.com/lacasita-io/storefront-backend/pkg/db"
	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
	"github.com/lacasita-io/storefront-backend/pkg/outbox"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  subtotal INTEGER NOT NULL,
  tax INTEGER NOT NULL,
  shipping_cost INTEGER NOT NULL,
  total INTEGER NOT NULL,
  shipping_address_id TEXT,
  shipping_address_snapshot TEXT,
  notes TEXT,
  tracking_number TEXT,
  carrier TEXT,
  estimated_delivery DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price INTEGER NOT NULL,
  product_name TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  provider TEXT NOT NULL,
  amount INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  transaction_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type paymentTestStack struct {
	db        *gorm.DB
	svc       Service
	orderRepo *orders.Repository
}

func newPaymentTestStack(t *testing.T) paymentTestStack {
	t.Helper()

	db := setupPaymentsTestDB(t)
	client := dbpkg.NewFromGorm(db)
	orderRepo := orders.NewRepository(db)
	outboxSvc := outbox.NewService(outbox.NewRepository(db), nil)

	cartRepo := cart.NewRepository(db)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		CartRepo:    cartRepo,
		CatalogRepo: catalog.NewRepository(db),
	})
	require.NoError(t, err)

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Client:      client,
		OrderRepo:   orderRepo,
		CartRepo:    cartRepo,
		CartService: cartSvc,
		AddressRepo: address.NewRepository(db),
		Ledger:      inventory.NewLedger(db),
		Outbox:      outboxSvc,
		Checkout:    config.CheckoutConfig{TaxRate: "0.19", ShippingFee: 15000, FreeShippingThreshold: 200000},
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Client:       client,
		PaymentRepo:  NewRepository(db),
		OrderRepo:    orderRepo,
		OrderService: orderSvc,
		Outbox:       outboxSvc,
	})
	require.NoError(t, err)

	return paymentTestStack{db: db, svc: svc, orderRepo: orderRepo}
}

func seedPendingOrder(t *testing.T, stack paymentTestStack, userID uuid.UUID, total int64) uuid.UUID {
	t.Helper()

	order := models.Order{
		UserID:       userID,
		Status:       enums.OrderStatusPending,
		Subtotal:     total,
		Total:        total,
		ShippingCost: 0,
		Tax:          0,
	}
	require.NoError(t, stack.orderRepo.Create(context.Background(), &order))
	return order.ID
}

func TestPaymentCreate(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 134000)

	dto, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderCreditCard)
	require.NoError(t, err)
	require.Equal(t, orderID, dto.OrderID)
	require.Equal(t, enums.PaymentProviderCreditCard, dto.Provider)
	require.Equal(t, enums.PaymentStatusPending, dto.Status)
	require.Equal(t, int64(134000), dto.Amount)
	require.Nil(t, dto.TransactionID)
}

func TestPaymentCreateDuplicate(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 50000)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderNequi)
	require.NoError(t, err)

	_, err = stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderCreditCard)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestPaymentCreateUnsupportedProvider(t *testing.T) {
	stack := newPaymentTestStack(t)
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 50000)

	_, err := stack.svc.Create(context.Background(), orderID, userID, enums.PaymentProvider("BITCOIN"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnsupportedProvider, typed.Code())
}

func TestPaymentCreateForbiddenForStranger(t *testing.T) {
	stack := newPaymentTestStack(t)
	orderID := seedPendingOrder(t, stack, uuid.New(), 50000)

	_, err := stack.svc.Create(context.Background(), orderID, uuid.New(), enums.PaymentProviderPSE)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestPaymentCreateRequiresPendingOrder(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 50000)

	require.NoError(t, stack.db.Exec(`UPDATE orders SET status = 'CANCELLED' WHERE id = ?`, orderID).Error)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderDebitCard)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestPaymentProcessApproves(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 80000)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderCreditCard)
	require.NoError(t, err)

	minted := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	stack.svc.(*service).now = func() time.Time { return minted }

	dto, err := stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusApproved, dto.Status)
	require.NotNil(t, dto.TransactionID)
	require.Equal(t, fmt.Sprintf("CC-%d", minted.UnixMilli()), *dto.TransactionID)

	// the approved payment moves the order to PAID
	order, err := stack.orderRepo.FindByID(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, order.Status)

	var types []string
	require.NoError(t, stack.db.Table("outbox_events").Pluck("event_type", &types).Error)
	require.Contains(t, types, "payment.processed")
	require.Contains(t, types, "order.status_changed")
}

func TestPaymentProcessDeclined(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 80000)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderCreditCard)
	require.NoError(t, err)

	external := "EXT-123"
	dto, err := stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: false, TransactionID: &external})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusFailed, dto.Status)
	require.NotNil(t, dto.TransactionID)
	require.Equal(t, "EXT-123", *dto.TransactionID)

	// a declined payment leaves the order PENDING
	order, err := stack.orderRepo.FindByID(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)

	var types []string
	require.NoError(t, stack.db.Table("outbox_events").Pluck("event_type", &types).Error)
	require.Contains(t, types, "payment.processed")
	require.NotContains(t, types, "order.status_changed")

	// the outcome is final either way
	_, err = stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestPaymentProcessKeepsGatewayTransactionID(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 60000)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderNequi)
	require.NoError(t, err)

	external := "  wompi-7f3a  "
	dto, err := stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true, TransactionID: &external})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusApproved, dto.Status)
	require.NotNil(t, dto.TransactionID)
	require.Equal(t, "wompi-7f3a", *dto.TransactionID)
}

func TestPaymentProcessMintsWhenGatewayIDBlank(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 60000)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderDaviplata)
	require.NoError(t, err)

	blank := "   "
	dto, err := stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true, TransactionID: &blank})
	require.NoError(t, err)
	require.NotNil(t, dto.TransactionID)
	require.True(t, strings.HasPrefix(*dto.TransactionID, "DAV-"))
}

func TestPaymentProcessTransactionPrefixes(t *testing.T) {
	cases := []struct {
		provider enums.PaymentProvider
		prefix   string
	}{
		{enums.PaymentProviderCreditCard, "CC-"},
		{enums.PaymentProviderDebitCard, "DC-"},
		{enums.PaymentProviderPSE, "PSE-"},
		{enums.PaymentProviderNequi, "NEQ-"},
		{enums.PaymentProviderDaviplata, "DAV-"},
	}

	for _, tc := range cases {
		t.Run(tc.provider.String(), func(t *testing.T) {
			stack := newPaymentTestStack(t)
			ctx := context.Background()
			userID := uuid.New()
			orderID := seedPendingOrder(t, stack, userID, 50000)

			_, err := stack.svc.Create(ctx, orderID, userID, tc.provider)
			require.NoError(t, err)

			dto, err := stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true})
			require.NoError(t, err)
			require.NotNil(t, dto.TransactionID)
			require.True(t, strings.HasPrefix(*dto.TransactionID, tc.prefix),
				"transaction id %q should start with %q", *dto.TransactionID, tc.prefix)
		})
	}
}

func TestPaymentProcessCashOnDelivery(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 50000)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderCashOnDelivery)
	require.NoError(t, err)

	// cash settles at handover, so both payment and order stay PENDING
	dto, err := stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPending, dto.Status)
	require.Nil(t, dto.TransactionID)

	order, err := stack.orderRepo.FindByID(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)

	var types []string
	require.NoError(t, stack.db.Table("outbox_events").Pluck("event_type", &types).Error)
	require.NotContains(t, types, "payment.processed")
}

func TestPaymentProcessReplay(t *testing.T) {
	stack := newPaymentTestStack(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 50000)

	_, err := stack.svc.Create(ctx, orderID, userID, enums.PaymentProviderPSE)
	require.NoError(t, err)
	_, err = stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true})
	require.NoError(t, err)

	_, err = stack.svc.Process(ctx, orderID, userID, ProcessInput{Success: true})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestPaymentProcessWithoutPayment(t *testing.T) {
	stack := newPaymentTestStack(t)
	userID := uuid.New()
	orderID := seedPendingOrder(t, stack, userID, 50000)

	_, err := stack.svc.Process(context.Background(), orderID, userID, ProcessInput{Success: true})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestPaymentMethods(t *testing.T) {
	stack := newPaymentTestStack(t)

	methods := stack.svc.Methods()
	require.Len(t, methods, 6)

	byProvider := map[enums.PaymentProvider]bool{}
	for _, m := range methods {
		byProvider[m.Provider] = m.RequiresProcessing
	}
	require.True(t, byProvider[enums.PaymentProviderCreditCard])
	require.True(t, byProvider[enums.PaymentProviderPSE])
	require.False(t, byProvider[enums.PaymentProviderCashOnDelivery])
}
