package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lacasita-io/storefront-backend/pkg/config"
	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
	"github.com/lacasita-io/storefront-backend/pkg/logger"
	"github.com/lacasita-io/storefront-backend/pkg/metrics"
	"github.com/lacasita-io/storefront-backend/pkg/outbox"
	"github.com/lacasita-io/storefront-backend/pkg/outbox/payloads"
)

// DispatcherParams groups dependencies for the outbox dispatcher.
type DispatcherParams struct {
	OutboxRepo   *outbox.Repository
	Notification Service
	ContactRepo  *Repository
	Email        EmailSender
	SMS          SMSSender
	Config       config.OutboxConfig
	Logger       *logger.Logger
	Metrics      *metrics.OutboxMetrics
}

// Dispatcher is the outbox consumer. It polls unpublished events, writes the
// in-app notification row, and fans out to the delivery channels. Delivery
// failures only mark the event for retry; they never touch the transaction
// that emitted the event, which committed long before.
type Dispatcher struct {
	outboxRepo   *outbox.Repository
	notification Service
	contactRepo  *Repository
	email        EmailSender
	sms          SMSSender
	cfg          config.OutboxConfig
	logg         *logger.Logger
	metrics      *metrics.OutboxMetrics
}

// NewDispatcher builds the dispatcher with the required dependencies.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.OutboxRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox repo is required")
	}
	if params.Notification == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification service is required")
	}
	if params.ContactRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact repo is required")
	}
	return &Dispatcher{
		outboxRepo:   params.OutboxRepo,
		notification: params.Notification,
		contactRepo:  params.ContactRepo,
		email:        params.Email,
		sms:          params.SMS,
		cfg:          params.Config,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil && d.logg != nil {
				d.logg.Error(ctx, "outbox poll failed", err)
			}
		}
	}
}

// RunOnce processes a single batch and reports how many events it handled.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	batchSize := d.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	events, err := d.outboxRepo.FetchUnpublished(batchSize)
	if err != nil {
		return 0, err
	}
	d.metrics.ObserveBatch(len(events))

	processed := 0
	for _, event := range events {
		if d.cfg.MaxAttempts > 0 && event.AttemptCount >= d.cfg.MaxAttempts {
			// poisoned event: park it so the queue keeps draining
			if d.logg != nil {
				logCtx := d.logg.WithFields(ctx, map[string]any{
					"event_id":   event.ID.String(),
					"event_type": event.EventType,
					"attempts":   event.AttemptCount,
				})
				d.logg.Warn(logCtx, "outbox event exceeded max attempts, parking")
			}
			if err := d.outboxRepo.MarkPublished(event.ID); err != nil {
				return processed, err
			}
			d.metrics.IncDispatched(event.EventType.String(), "parked")
			continue
		}

		if err := d.handle(ctx, event); err != nil {
			if d.logg != nil {
				logCtx := d.logg.WithFields(ctx, map[string]any{
					"event_id":   event.ID.String(),
					"event_type": event.EventType,
				})
				d.logg.Error(logCtx, "outbox event dispatch failed", err)
			}
			if markErr := d.outboxRepo.MarkFailed(event.ID, err); markErr != nil {
				return processed, markErr
			}
			d.metrics.IncDispatched(event.EventType.String(), "failure")
			continue
		}

		if err := d.outboxRepo.MarkPublished(event.ID); err != nil {
			return processed, err
		}
		d.metrics.IncDispatched(event.EventType.String(), "success")
		d.metrics.ObserveLag(event.CreatedAt, time.Now())
		processed++
	}
	return processed, nil
}

func (d *Dispatcher) handle(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch event.EventType {
	case enums.EventOrderCreated:
		var data payloads.OrderCreatedEvent
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return fmt.Errorf("decode order created payload: %w", err)
		}
		return d.handleOrderCreated(ctx, data)

	case enums.EventOrderStatusChanged:
		var data payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return fmt.Errorf("decode status changed payload: %w", err)
		}
		return d.handleStatusChanged(ctx, data)

	case enums.EventOrderShipped:
		var data payloads.OrderShippedEvent
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return fmt.Errorf("decode shipped payload: %w", err)
		}
		return d.handleShipped(ctx, data)

	case enums.EventPaymentProcessed:
		var data payloads.PaymentProcessedEvent
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return fmt.Errorf("decode payment payload: %w", err)
		}
		return d.handlePaymentProcessed(ctx, data)

	default:
		// unknown events are acknowledged, not retried forever
		if d.logg != nil {
			d.logg.Warn(d.logg.WithField(ctx, "event_type", event.EventType), "unknown outbox event type")
		}
		return nil
	}
}

func (d *Dispatcher) handleOrderCreated(ctx context.Context, data payloads.OrderCreatedEvent) error {
	title := "Order confirmed"
	message := fmt.Sprintf("Your order #%d was placed successfully.", data.OrderNumber)
	if err := d.notification.Create(ctx, data.UserID, enums.NotificationOrderConfirmed, title, message); err != nil {
		return err
	}
	return d.sendEmail(ctx, data.UserID, title, message)
}

func (d *Dispatcher) handleStatusChanged(ctx context.Context, data payloads.OrderStatusChangedEvent) error {
	title := "Order updated"
	message := fmt.Sprintf("Your order #%d is now %s.", data.OrderNumber, data.To)
	if err := d.notification.Create(ctx, data.UserID, enums.NotificationOrderStatusChanged, title, message); err != nil {
		return err
	}
	return d.sendEmail(ctx, data.UserID, title, message)
}

func (d *Dispatcher) handleShipped(ctx context.Context, data payloads.OrderShippedEvent) error {
	title := "Order shipped"
	message := fmt.Sprintf("Your order #%d is on its way.", data.OrderNumber)
	if data.TrackingNumber != "" {
		message = fmt.Sprintf("Your order #%d is on its way. Tracking: %s.", data.OrderNumber, data.TrackingNumber)
	}
	if err := d.notification.Create(ctx, data.UserID, enums.NotificationOrderShipped, title, message); err != nil {
		return err
	}
	if err := d.sendEmail(ctx, data.UserID, title, message); err != nil {
		return err
	}
	return d.sendSMS(ctx, data.UserID, message)
}

func (d *Dispatcher) handlePaymentProcessed(ctx context.Context, data payloads.PaymentProcessedEvent) error {
	title := "Payment received"
	message := fmt.Sprintf("Your %s payment was %s.", data.Provider, data.Status)
	if err := d.notification.Create(ctx, data.UserID, enums.NotificationPaymentProcessed, title, message); err != nil {
		return err
	}
	return d.sendEmail(ctx, data.UserID, title, message)
}

func (d *Dispatcher) sendEmail(ctx context.Context, userID uuid.UUID, subject, body string) error {
	if d.email == nil {
		return nil
	}
	user, err := d.contactRepo.FindUserContact(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user contact: %w", err)
	}
	return d.email.SendEmail(ctx, user.Email, subject, body)
}

func (d *Dispatcher) sendSMS(ctx context.Context, userID uuid.UUID, message string) error {
	if d.sms == nil {
		return nil
	}
	user, err := d.contactRepo.FindUserContact(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user contact: %w", err)
	}
	if user.Phone == nil || *user.Phone == "" {
		return nil
	}
	return d.sms.SendSMS(ctx, *user.Phone, message)
}
