package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	"github.com/swiftdrop/driver-backend/pkg/events"
	"github.com/swiftdrop/driver-backend/pkg/events/idempotency"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const driverNotificationConsumer = "driver-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// FeedSink receives stored notifications for live fan-out. The registry is
// the production implementation.
type FeedSink interface {
	Publish(ctx context.Context, notification models.Notification) error
}

// Consumer watches domain events and turns them into driver notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	feeds        FeedSink
	logg         *logger.Logger
}

// NewConsumer builds the driver notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, feeds FeedSink, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if feeds == nil {
		return nil, fmt.Errorf("feed sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		feeds:        feeds,
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
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope events.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, driverNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := c.buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, driverNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		c.logg.Info(logCtx, "event not handled")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"driver_id":         notification.DriverID.String(),
		"notification_type": string(notification.Type),
	})
	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		_ = c.idempotency.Delete(ctx, driverNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	// The row is stored; a failed live fan-out is not worth a redelivery.
	if err := c.feeds.Publish(ctx, *notification); err != nil {
		c.logg.Warn(logCtx, "live feed publish failed: "+err.Error())
	}

	c.logg.Info(logCtx, "driver notified")
	return processResult{ack: true}
}

func (c *Consumer) buildNotification(eventType enums.EventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventDeliveryAssigned:
		var payload deliveryStatusPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			DriverID: payload.DriverID,
			Type:     enums.NotificationTypeDeliveryRequest,
			Title:    "New delivery assigned",
			Message:  fmt.Sprintf("Order %s has been assigned to you.", payload.OrderNumber),
			Data:     data,
		}, nil
	case enums.EventDeliveryCancelled:
		var payload deliveryStatusPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			DriverID: payload.DriverID,
			Type:     enums.NotificationTypeDeliveryCancelled,
			Title:    "Delivery cancelled",
			Message:  fmt.Sprintf("Order %s is no longer active.", payload.OrderNumber),
			Data:     data,
		}, nil
	case enums.EventDeliveryCompleted:
		var payload deliveryCompletedPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			DriverID: payload.DriverID,
			Type:     enums.NotificationTypeDeliveryCompleted,
			Title:    "Delivery completed",
			Message:  fmt.Sprintf("Order %s was delivered. Fee: %s %s.", payload.OrderNumber, payload.Currency, payload.Fee.StringFixed(2)),
			Data:     data,
		}, nil
	case enums.EventEarningRecorded:
		var payload earningRecordedPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			DriverID: payload.DriverID,
			Type:     enums.NotificationTypeEarnings,
			Title:    "Earning recorded",
			Message:  fmt.Sprintf("You earned %s %s for a completed delivery.", payload.Currency, payload.Amount.StringFixed(2)),
			Data:     data,
		}, nil
	case enums.EventActivationChanged:
		var payload presenceChangedPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			DriverID: payload.DriverID,
			Type:     enums.NotificationTypeActivation,
			Title:    "Availability updated",
			Message:  fmt.Sprintf("You are now %s.", payload.Status),
			Data:     data,
		}, nil
	default:
		return nil, nil
	}
}

type driverPayload interface {
	driver() uuid.UUID
}

func decodePayload(data json.RawMessage, target driverPayload) error {
	if err := json.Unmarshal(data, target); err != nil {
		return err
	}
	if target.driver() == uuid.Nil {
		return fmt.Errorf("driver id missing")
	}
	return nil
}

func (p deliveryStatusPayload) driver() uuid.UUID    { return p.DriverID }
func (p deliveryCompletedPayload) driver() uuid.UUID { return p.DriverID }
func (p earningRecordedPayload) driver() uuid.UUID   { return p.DriverID }
func (p presenceChangedPayload) driver() uuid.UUID   { return p.DriverID }

type deliveryStatusPayload struct {
	DeliveryID  uuid.UUID            `json:"delivery_id"`
	OrderNumber string               `json:"order_number"`
	DriverID    uuid.UUID            `json:"driver_id"`
	From        enums.DeliveryStatus `json:"from"`
	To          enums.DeliveryStatus `json:"to"`
}

type deliveryCompletedPayload struct {
	DeliveryID  uuid.UUID       `json:"delivery_id"`
	OrderNumber string          `json:"order_number"`
	DriverID    uuid.UUID       `json:"driver_id"`
	Fee         decimal.Decimal `json:"fee"`
	Currency    enums.Currency  `json:"currency"`
}

type earningRecordedPayload struct {
	EarningID  uuid.UUID       `json:"earning_id"`
	DriverID   uuid.UUID       `json:"driver_id"`
	DeliveryID uuid.UUID       `json:"delivery_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   enums.Currency  `json:"currency"`
}

type presenceChangedPayload struct {
	DriverID uuid.UUID            `json:"driver_id"`
	Status   enums.PresenceStatus `json:"status"`
}
