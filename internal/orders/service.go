package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/internal/address"
	"github.com/lacasita-io/storefront-backend/internal/cart"
	"github.com/lacasita-io/storefront-backend/internal/inventory"
	"github.com/lacasita-io/storefront-backend/pkg/config"
	dbpkg "github.com/lacasita-io/storefront-backend/pkg/db"
	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
	"github.com/lacasita-io/storefront-backend/pkg/logger"
	"github.com/lacasita-io/storefront-backend/pkg/metrics"
	"github.com/lacasita-io/storefront-backend/pkg/outbox"
	"github.com/lacasita-io/storefront-backend/pkg/outbox/payloads"
	"github.com/lacasita-io/storefront-backend/pkg/pagination"
	"github.com/lacasita-io/storefront-backend/pkg/types"
)

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Client      *dbpkg.Client
	OrderRepo   *Repository
	CartRepo    *cart.Repository
	CartService cart.Service
	AddressRepo *address.Repository
	Ledger      *inventory.Ledger
	Outbox      *outbox.Service
	Checkout    config.CheckoutConfig
	Logger      *logger.Logger
	Metrics     *metrics.CheckoutMetrics
}

// Service exposes order placement and the lifecycle state machine.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (OrderDTO, error)
	Cancel(ctx context.Context, orderID, userID uuid.UUID) (OrderDTO, error)
	Get(ctx context.Context, orderID, userID uuid.UUID, role enums.Role) (OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, role enums.Role, params pagination.Params) (OrdersPageDTO, error)
}

type service struct {
	client      *dbpkg.Client
	orderRepo   *Repository
	cartRepo    *cart.Repository
	cartService cart.Service
	addressRepo *address.Repository
	ledger      *inventory.Ledger
	outbox      *outbox.Service
	checkout    config.CheckoutConfig
	taxRate     decimal.Decimal
	logg        *logger.Logger
	metrics     *metrics.CheckoutMetrics
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.CartService == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service is required")
	}
	if params.AddressRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address repo is required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory ledger is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	taxRate, err := decimal.NewFromString(params.Checkout.TaxRate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax rate")
	}
	return &service{
		client:      params.Client,
		orderRepo:   params.OrderRepo,
		cartRepo:    params.CartRepo,
		cartService: params.CartService,
		addressRepo: params.AddressRepo,
		ledger:      params.Ledger,
		outbox:      params.Outbox,
		checkout:    params.Checkout,
		taxRate:     taxRate,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// PlaceOrder converts the user's cart into an order. The reservation, the
// aggregate insert, the cart clear, and the confirmation event share one
// transaction, so a failed line leaves no partial state behind.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (OrderDTO, error) {
	started := time.Now()

	snapshot, err := s.cartService.Snapshot(ctx, userID)
	if err != nil {
		s.recordPlacementFailure(err)
		return OrderDTO{}, err
	}

	addr, err := s.addressRepo.FindByIDAndUser(ctx, input.ShippingAddressID, userID)
	if err != nil {
		s.recordPlacementFailure(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "shipping address not found")
		}
		return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping address")
	}

	subtotal := snapshot.Subtotal
	tax := s.computeTax(subtotal)
	shipping := s.computeShipping(subtotal)
	total := subtotal + tax + shipping

	items := make([]models.OrderItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, models.OrderItem{
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
			ProductName: line.ProductName,
		})
	}

	addressID := addr.ID
	order := models.Order{
		UserID:            userID,
		Status:            enums.OrderStatusPending,
		Subtotal:          subtotal,
		Tax:               tax,
		ShippingCost:      shipping,
		Total:             total,
		ShippingAddressID: &addressID,
		ShippingAddressSnapshot: types.AddressSnapshot{
			Street:  addr.Street,
			City:    addr.City,
			State:   addr.State,
			ZipCode: addr.ZipCode,
			Country: addr.Country,
		},
		Notes: input.Notes,
		Items: items,
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range snapshot.Lines {
			if err := s.ledger.Reserve(ctx, tx, line.VariantID, line.Quantity); err != nil {
				return err
			}
		}
		if err := s.orderRepo.WithTx(tx).Create(ctx, &order); err != nil {
			return err
		}
		if err := s.cartRepo.WithTx(tx).Clear(ctx, snapshot.CartID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleUser.String()},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				Total:       total,
				ItemCount:   len(items),
			},
		})
	})
	if err != nil {
		s.recordPlacementFailure(err)
		return OrderDTO{}, err
	}

	s.metrics.ObservePlacement(total, time.Since(started))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"total":        total,
		})
		s.logg.Info(logCtx, "order placed")
	}
	return toDTO(&order), nil
}

// UpdateStatus applies one lifecycle transition. The swap is guarded on the
// previous status, so concurrent updates to the same order serialize: the
// loser observes zero affected rows and fails with a state conflict.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (OrderDTO, error) {
	if !input.Status.IsValid() {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return OrderDTO{}, err
	}

	from := order.Status
	to := input.Status
	if !CanTransition(from, to) {
		return OrderDTO{}, stateConflict(from, to)
	}

	// Tracking details stick to whichever transition carries them; carriers
	// often assign them well before the parcel ships.
	extra := map[string]any{}
	if input.TrackingNumber != nil {
		extra["tracking_number"] = *input.TrackingNumber
	}
	if input.Carrier != nil {
		extra["carrier"] = *input.Carrier
	}
	var estimatedDelivery *time.Time
	if to == enums.OrderStatusShipped {
		eta := time.Now().AddDate(0, 0, s.deliveryETADays())
		estimatedDelivery = &eta
		extra["estimated_delivery"] = eta
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		swapped, err := s.orderRepo.WithTx(tx).TransitionStatus(ctx, orderID, from, to, extra)
		if err != nil {
			return err
		}
		if !swapped {
			return stateConflict(from, to)
		}

		if to == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.ledger.Release(ctx, tx, item.VariantID, item.Quantity); err != nil {
					return err
				}
			}
		}

		actor := &outbox.ActorRef{UserID: order.UserID}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				From:        from,
				To:          to,
				ChangedAt:   time.Now(),
			},
		}); err != nil {
			return err
		}

		if to != enums.OrderStatusShipped {
			return nil
		}
		shipped := payloads.OrderShippedEvent{
			OrderID:           order.ID,
			OrderNumber:       order.OrderNumber,
			UserID:            order.UserID,
			EstimatedDelivery: estimatedDelivery,
		}
		if input.TrackingNumber != nil {
			shipped.TrackingNumber = *input.TrackingNumber
		}
		if input.Carrier != nil {
			shipped.Carrier = *input.Carrier
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderShipped,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data:          shipped,
		})
	})
	if err != nil {
		return OrderDTO{}, err
	}

	s.metrics.IncTransition(from.String(), to.String())

	updated, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return OrderDTO{}, err
	}
	return toDTO(updated), nil
}

// Cancel is the owner-facing cancellation: only the order's owner may cancel,
// and only while the order is still PENDING. Admins use UpdateStatus, which
// also permits cancelling PAID and PROCESSING orders.
func (s *service) Cancel(ctx context.Context, orderID, userID uuid.UUID) (OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return OrderDTO{}, err
	}
	if order.UserID != userID {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status != enums.OrderStatusPending {
		return OrderDTO{}, stateConflict(order.Status, enums.OrderStatusCancelled)
	}
	return s.UpdateStatus(ctx, orderID, UpdateStatusInput{Status: enums.OrderStatusCancelled})
}

// Get loads one order; non-admin callers only see their own.
func (s *service) Get(ctx context.Context, orderID, userID uuid.UUID, role enums.Role) (OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return OrderDTO{}, err
	}
	if role != enums.RoleAdmin && order.UserID != userID {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return toDTO(order), nil
}

// List returns the caller's orders, or every order for admins.
func (s *service) List(ctx context.Context, userID uuid.UUID, role enums.Role, params pagination.Params) (OrdersPageDTO, error) {
	var filter *uuid.UUID
	if role != enums.RoleAdmin {
		if userID == uuid.Nil {
			return OrdersPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
		}
		filter = &userID
	}
	rows, nextCursor, err := s.orderRepo.List(ctx, filter, params)
	if err != nil {
		return OrdersPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toDTO(&rows[i]))
	}
	return OrdersPageDTO{Items: items, NextCursor: nextCursor}, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) computeTax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(s.taxRate).Round(0).IntPart()
}

func (s *service) computeShipping(subtotal int64) int64 {
	if subtotal >= s.checkout.FreeShippingThreshold {
		return 0
	}
	return s.checkout.ShippingFee
}

func (s *service) deliveryETADays() int {
	if s.checkout.DeliveryETADays <= 0 {
		return 5
	}
	return s.checkout.DeliveryETADays
}

func (s *service) recordPlacementFailure(err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
		s.metrics.IncStockRejected()
	}
	s.metrics.IncPlacementFailure()
}

func stateConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed").
		WithDetails(map[string]any{
			"from": from.String(),
			"to":   to.String(),
		})
}
