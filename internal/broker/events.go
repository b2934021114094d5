package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes keyed events to a topic
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	bookings Publisher
	payments Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(bookings, payments Publisher) *EventPublisher {
	return &EventPublisher{bookings: bookings, payments: payments}
}

// NewBookingEvent builds the event describing b's current state
func NewBookingEvent(eventType string, b *models.Booking) *models.BookingEvent {
	event := &models.BookingEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now().UTC(),
		},
		BookingID:  b.ID,
		UserID:     b.UserID,
		AssetID:    b.AssetID,
		Status:     b.Status,
		TotalPrice: b.TotalPrice,
	}
	if b.OrderID != nil {
		event.OrderID = *b.OrderID
	}
	if b.PaymentID != nil {
		event.PaymentID = *b.PaymentID
	}
	return event
}

// PublishBookingEvent publishes a booking lifecycle event
func (ep *EventPublisher) PublishBookingEvent(ctx context.Context, event *models.BookingEvent) error {
	key := fmt.Sprintf("booking-%s", event.BookingID)
	return ep.bookings.PublishEvent(ctx, key, event)
}

// PublishPaymentEvent queues a verified gateway notification for the worker
func (ep *EventPublisher) PublishPaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderID)
	return ep.payments.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onPaymentCaptured func(context.Context, *models.PaymentEvent) error
	onPaymentFailed   func(context.Context, *models.PaymentEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnPaymentCaptured registers a handler for PaymentCaptured events
func (eh *EventHandler) OnPaymentCaptured(handler func(context.Context, *models.PaymentEvent) error) {
	eh.onPaymentCaptured = handler
}

// OnPaymentFailed registers a handler for PaymentFailed events
func (eh *EventHandler) OnPaymentFailed(handler func(context.Context, *models.PaymentEvent) error) {
	eh.onPaymentFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal payment event: %w", err)
	}

	eh.logger.Info("Handling event",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID))

	switch event.EventType {
	case models.EventTypePaymentCaptured:
		if eh.onPaymentCaptured != nil {
			return eh.onPaymentCaptured(ctx, &event)
		}
	case models.EventTypePaymentFailed:
		if eh.onPaymentFailed != nil {
			return eh.onPaymentFailed(ctx, &event)
		}
	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", event.EventType))
	}

	return nil
}
