package service

import (
	"context"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Gateway webhook events that affect bookings
var webhookEventTypes = map[string]string{
	"payment.captured": models.EventTypePaymentCaptured,
	"order.paid":       models.EventTypePaymentCaptured,
	"payment.failed":   models.EventTypePaymentFailed,
}

// WebhookService authenticates gateway webhooks and queues them for the
// payment worker
type WebhookService struct {
	gateway PaymentGateway
	events  PaymentEvents
	logger  *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(gateway PaymentGateway, events PaymentEvents) *WebhookService {
	return &WebhookService{gateway: gateway, events: events, logger: util.GetLogger()}
}

// Handle verifies body against signature and publishes the payment event it
// describes. It reports whether the event was queued; events that do not
// concern bookings are acknowledged and dropped.
func (s *WebhookService) Handle(ctx context.Context, body []byte, signature, eventID string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "WebhookService.Handle")
	defer span.End()

	if err := s.gateway.VerifyWebhook(body, signature); err != nil {
		util.WebhookEventsTotal.WithLabelValues("rejected").Inc()
		return false, err
	}

	raw := string(body)
	if !gjson.Valid(raw) {
		return false, apperr.Validation("Invalid webhook payload")
	}

	gatewayEvent := gjson.Get(raw, "event").String()
	util.WebhookEventsTotal.WithLabelValues(gatewayEvent).Inc()

	eventType, ok := webhookEventTypes[gatewayEvent]
	if !ok {
		s.logger.Debug("Ignoring webhook event", zap.String("event", gatewayEvent))
		return false, nil
	}

	payment := gjson.Get(raw, "payload.payment.entity")
	orderID := payment.Get("order_id").String()
	if orderID == "" {
		orderID = gjson.Get(raw, "payload.order.entity.id").String()
	}
	if orderID == "" {
		return false, apperr.Validation("Webhook payload has no order id")
	}

	if eventID == "" {
		eventID = uuid.New().String()
	}

	event := &models.PaymentEvent{
		BaseEvent: models.BaseEvent{
			EventID:   eventID,
			EventType: eventType,
			Timestamp: time.Now().UTC(),
		},
		GatewayEvent: gatewayEvent,
		OrderID:      orderID,
		PaymentID:    payment.Get("id").String(),
		Reason:       payment.Get("error_description").String(),
	}

	if err := s.events.PublishPaymentEvent(ctx, event); err != nil {
		s.logger.Error("Failed to queue webhook event",
			zap.String("event_id", eventID),
			zap.String("order_id", orderID),
			zap.Error(err))
		return false, err
	}

	s.logger.Info("Webhook event queued",
		zap.String("event_id", eventID),
		zap.String("event", gatewayEvent),
		zap.String("order_id", orderID))
	return true, nil
}
