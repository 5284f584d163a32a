package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/internal/orders"
	dbpkg "github.com/lacasita-io/storefront-backend/pkg/db"
	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
	"github.com/lacasita-io/storefront-backend/pkg/logger"
	"github.com/lacasita-io/storefront-backend/pkg/metrics"
	"github.com/lacasita-io/storefront-backend/pkg/outbox"
	"github.com/lacasita-io/storefront-backend/pkg/outbox/payloads"
)

// transactionPrefixes map each rail to the id prefix its simulated gateway uses.
var transactionPrefixes = map[enums.PaymentProvider]string{
	enums.PaymentProviderCreditCard:     "CC",
	enums.PaymentProviderDebitCard:      "DC",
	enums.PaymentProviderPSE:            "PSE",
	enums.PaymentProviderNequi:          "NEQ",
	enums.PaymentProviderDaviplata:      "DAV",
	enums.PaymentProviderCashOnDelivery: "COD",
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Client       *dbpkg.Client
	PaymentRepo  *Repository
	OrderRepo    *orders.Repository
	OrderService orders.Service
	Outbox       *outbox.Service
	Logger       *logger.Logger
	Metrics      *metrics.CheckoutMetrics
}

// Service exposes the in-process payment adapter.
type Service interface {
	Create(ctx context.Context, orderID, userID uuid.UUID, provider enums.PaymentProvider) (PaymentDTO, error)
	Process(ctx context.Context, orderID, userID uuid.UUID, input ProcessInput) (PaymentDTO, error)
	Methods() []MethodDTO
}

type service struct {
	client       *dbpkg.Client
	paymentRepo  *Repository
	orderRepo    *orders.Repository
	orderService orders.Service
	outbox       *outbox.Service
	logg         *logger.Logger
	metrics      *metrics.CheckoutMetrics
	now          func() time.Time
}

// NewService builds the payment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.PaymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment repo is required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	if params.OrderService == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order service is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	return &service{
		client:       params.Client,
		paymentRepo:  params.PaymentRepo,
		orderRepo:    params.OrderRepo,
		orderService: params.OrderService,
		outbox:       params.Outbox,
		logg:         params.Logger,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

// Create attaches a payment to a PENDING order. Exactly one payment may exist
// per order; a second attempt conflicts regardless of the first one's status.
func (s *service) Create(ctx context.Context, orderID, userID uuid.UUID, provider enums.PaymentProvider) (PaymentDTO, error) {
	if !provider.IsValid() {
		return PaymentDTO{}, pkgerrors.New(pkgerrors.CodeUnsupportedProvider, "unsupported payment provider").
			WithDetails(map[string]any{"provider": provider.String()})
	}

	order, err := s.loadOwnedOrder(ctx, orderID, userID)
	if err != nil {
		return PaymentDTO{}, err
	}
	if order.Status != enums.OrderStatusPending {
		return PaymentDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable").
			WithDetails(map[string]any{
				"from": order.Status.String(),
				"to":   enums.OrderStatusPaid.String(),
			})
	}

	if _, err := s.paymentRepo.FindByOrderID(ctx, orderID); err == nil {
		return PaymentDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "order already has a payment")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return PaymentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	payment := models.Payment{
		OrderID:  orderID,
		Provider: provider,
		Amount:   order.Total,
		Status:   enums.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(ctx, &payment); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_payments_order") {
			return PaymentDTO{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already has a payment")
		}
		return PaymentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return toDTO(&payment), nil
}

// Process records the gateway outcome reported by the caller. The gateway's
// transaction id is kept when supplied; otherwise one is minted. A successful
// outcome moves the order PENDING → PAID, a failed one records the FAILED
// payment and leaves the order PENDING. Cash on delivery settles at handover,
// so both payment and order stay PENDING.
func (s *service) Process(ctx context.Context, orderID, userID uuid.UUID, input ProcessInput) (PaymentDTO, error) {
	if _, err := s.loadOwnedOrder(ctx, orderID, userID); err != nil {
		return PaymentDTO{}, err
	}

	outcome := enums.PaymentStatusFailed
	if input.Success {
		outcome = enums.PaymentStatusApproved
	}

	payment, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment not found")
		}
		return PaymentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusPending {
		return PaymentDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already processed").
			WithDetails(map[string]any{
				"from": payment.Status.String(),
				"to":   outcome.String(),
			})
	}

	if payment.Provider == enums.PaymentProviderCashOnDelivery {
		return toDTO(payment), nil
	}

	transactionID := s.mintTransactionID(payment.Provider)
	if input.TransactionID != nil {
		if external := strings.TrimSpace(*input.TransactionID); external != "" {
			transactionID = external
		}
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.paymentRepo.WithTx(tx).UpdateOutcome(ctx, payment.ID, outcome, &transactionID)
		if err != nil {
			return err
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already processed").
				WithDetails(map[string]any{
					"from": enums.PaymentStatusPending.String(),
					"to":   outcome.String(),
				})
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentProcessed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleUser.String()},
			Data: payloads.PaymentProcessedEvent{
				PaymentID:     payment.ID,
				OrderID:       orderID,
				UserID:        userID,
				Provider:      payment.Provider,
				Status:        outcome,
				Amount:        payment.Amount,
				TransactionID: transactionID,
			},
		})
	})
	if err != nil {
		return PaymentDTO{}, err
	}

	s.metrics.IncPayment(payment.Provider.String(), outcome.String())

	if outcome == enums.PaymentStatusApproved {
		if _, err := s.orderService.UpdateStatus(ctx, orderID, orders.UpdateStatusInput{Status: enums.OrderStatusPaid}); err != nil {
			// the payment outcome stands; surface the order transition failure
			return PaymentDTO{}, err
		}
	}

	payment.Status = outcome
	payment.TransactionID = &transactionID
	return toDTO(payment), nil
}

// Methods lists every provider the adapter accepts.
func (s *service) Methods() []MethodDTO {
	providers := enums.PaymentProviders()
	out := make([]MethodDTO, 0, len(providers))
	for _, provider := range providers {
		out = append(out, MethodDTO{
			Provider:           provider,
			RequiresProcessing: provider != enums.PaymentProviderCashOnDelivery,
		})
	}
	return out
}

func (s *service) loadOwnedOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
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
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) mintTransactionID(provider enums.PaymentProvider) string {
	prefix, ok := transactionPrefixes[provider]
	if !ok {
		prefix = "TXN"
	}
	return fmt.Sprintf("%s-%d", prefix, s.now().UnixMilli())
}
