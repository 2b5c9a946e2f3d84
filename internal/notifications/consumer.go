package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	"github.com/omarserrano/dishpatch-backend/pkg/logger"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox/idempotency"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches order events and turns them into customer notifications.
// The publisher delivers at least once, so every event is deduped on its
// envelope event ID before any notification row is written.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("order events subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderPlaced, enums.EventOrderStatusChanged:
	default:
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, enums.OutboxEventType(eventType), envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderPlaced:
		var payload payloads.OrderPlacedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order placed payload: %w", err)
		}
		return c.notifyOrderPlaced(ctx, payload, logCtx)
	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse status changed payload: %w", err)
		}
		return c.notifyStatusChanged(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) notifyOrderPlaced(ctx context.Context, payload payloads.OrderPlacedEvent, logCtx context.Context) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	orderID := payload.OrderID
	notification := &models.Notification{
		CustomerID: payload.CustomerID,
		OrderID:    &orderID,
		Type:       enums.NotificationTypeOrderConfirmation,
		Title:      "Order received",
		Message:    fmt.Sprintf("Your order is in. Total charged: $%d.%02d.", payload.TotalCents/100, payload.TotalCents%100),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(logCtx, "order_id", orderID.String()), "customer notified of placed order")
	return nil
}

func (c *Consumer) notifyStatusChanged(ctx context.Context, payload payloads.OrderStatusChangedEvent, logCtx context.Context) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	message, ok := statusMessage(payload.ToStatus)
	if !ok {
		c.logg.Info(logCtx, "status not customer facing")
		return nil
	}
	if payload.ToStatus == enums.OrderStatusCancelled && payload.Notes != "" {
		message = fmt.Sprintf("%s Reason: %s", message, payload.Notes)
	}
	orderID := payload.OrderID
	notification := &models.Notification{
		CustomerID: payload.CustomerID,
		OrderID:    &orderID,
		Type:       enums.NotificationTypeOrderUpdate,
		Title:      "Order update",
		Message:    message,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"order_id": orderID.String(),
		"status":   payload.ToStatus.String(),
	}), "customer notified of status change")
	return nil
}

func statusMessage(status enums.OrderStatus) (string, bool) {
	switch status {
	case enums.OrderStatusAccepted:
		return "The restaurant accepted your order.", true
	case enums.OrderStatusPreparing:
		return "Your order is being prepared.", true
	case enums.OrderStatusReady:
		return "Your order is ready for pickup by the courier.", true
	case enums.OrderStatusOutForDelivery:
		return "Your order is on its way.", true
	case enums.OrderStatusDelivered:
		return "Your order was delivered. Enjoy!", true
	case enums.OrderStatusCancelled:
		return "Your order was cancelled.", true
	default:
		return "", false
	}
}
