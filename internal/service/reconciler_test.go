package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"booking-service/internal/apperr"
	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signWebhook(body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedPayload(orderID, paymentID string) string {
	return `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"` + paymentID +
		`","order_id":"` + orderID + `","status":"captured"}}}}`
}

func TestWebhookQueuesCapturedPayment(t *testing.T) {
	f := newFixture(t, false)
	svc := NewWebhookService(f.gateway, f.events)
	body := capturedPayload("order_1", "pay_1")

	queued, err := svc.Handle(context.Background(), []byte(body), signWebhook(body), "evt_1")
	require.NoError(t, err)
	assert.True(t, queued)

	require.Len(t, f.events.Payments, 1)
	event := f.events.Payments[0]
	assert.Equal(t, "evt_1", event.EventID)
	assert.Equal(t, models.EventTypePaymentCaptured, event.EventType)
	assert.Equal(t, "order_1", event.OrderID)
	assert.Equal(t, "pay_1", event.PaymentID)
}

func TestWebhookFailedPaymentAndOrderPaid(t *testing.T) {
	f := newFixture(t, false)
	svc := NewWebhookService(f.gateway, f.events)

	failed := `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","error_description":"Card declined"}}}}`
	paid := `{"event":"order.paid","payload":{"order":{"entity":{"id":"order_3"}}}}`

	_, err := svc.Handle(context.Background(), []byte(failed), signWebhook(failed), "")
	require.NoError(t, err)
	_, err = svc.Handle(context.Background(), []byte(paid), signWebhook(paid), "evt_3")
	require.NoError(t, err)

	require.Len(t, f.events.Payments, 2)
	assert.Equal(t, models.EventTypePaymentFailed, f.events.Payments[0].EventType)
	assert.Equal(t, "Card declined", f.events.Payments[0].Reason)
	assert.NotEmpty(t, f.events.Payments[0].EventID)
	assert.Equal(t, models.EventTypePaymentCaptured, f.events.Payments[1].EventType)
	assert.Equal(t, "order_3", f.events.Payments[1].OrderID)
}

func TestWebhookRejections(t *testing.T) {
	f := newFixture(t, false)
	svc := NewWebhookService(f.gateway, f.events)
	body := capturedPayload("order_1", "pay_1")

	_, err := svc.Handle(context.Background(), []byte(body), "bad", "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidSignature))

	ignored := `{"event":"refund.created","payload":{}}`
	queued, err := svc.Handle(context.Background(), []byte(ignored), signWebhook(ignored), "")
	assert.NoError(t, err)
	assert.False(t, queued)

	noOrder := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`
	_, err = svc.Handle(context.Background(), []byte(noOrder), signWebhook(noOrder), "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.Empty(t, f.events.Payments)

	f.events.Err = errors.New("kafka down")
	_, err = svc.Handle(context.Background(), []byte(body), signWebhook(body), "")
	assert.Error(t, err)
}

func paymentEvent(id, eventType, orderID, paymentID string) *models.PaymentEvent {
	return &models.PaymentEvent{
		BaseEvent: models.BaseEvent{EventID: id, EventType: eventType},
		OrderID:   orderID,
		PaymentID: paymentID,
	}
}

func TestReconcilerConfirmsCapturedOrder(t *testing.T) {
	f := newFixture(t, false)
	r := NewReconciler(f.store, f.store, f.events)
	b := f.book(t, "taker-1")
	order, err := f.payments.CreateOrder(context.Background(), "taker-1", &CreateOrderRequest{Amount: 1500, BookingID: b.ID})
	require.NoError(t, err)

	event := paymentEvent("evt_1", models.EventTypePaymentCaptured, order.ID, "pay_hook")
	require.NoError(t, r.HandlePaymentCaptured(context.Background(), event))
	require.NoError(t, r.HandlePaymentCaptured(context.Background(), event))

	current, _ := f.store.GetBookingByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingStatusConfirmed, current.Status)
	assert.Equal(t, "pay_hook", *current.PaymentID)
	assert.Equal(t, []string{models.EventTypeBookingCreated, models.EventTypeBookingConfirmed}, f.events.BookingEventTypes())

	processed, _ := f.store.IsEventProcessed(context.Background(), "evt_1")
	assert.True(t, processed)

	// the checkout callback arriving after the webhook is a replay
	confirmed, err := f.payments.Verify(context.Background(), "taker-1", f.verifyRequest(b.ID, order.ID, "pay_hook"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
}

func TestReconcilerMarksFailedThenRetrySucceeds(t *testing.T) {
	f := newFixture(t, false)
	r := NewReconciler(f.store, f.store, f.events)
	b := f.book(t, "taker-1")
	order, err := f.payments.CreateOrder(context.Background(), "taker-1", &CreateOrderRequest{Amount: 1500, BookingID: b.ID})
	require.NoError(t, err)

	require.NoError(t, r.HandlePaymentFailed(context.Background(),
		paymentEvent("evt_f", models.EventTypePaymentFailed, order.ID, "pay_bad")))

	current, _ := f.store.GetBookingByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingStatusFailed, current.Status)

	confirmed, err := f.payments.Verify(context.Background(), "taker-1", f.verifyRequest(b.ID, order.ID, "pay_good"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)

	// a late failure must not undo the confirmation
	require.NoError(t, r.HandlePaymentFailed(context.Background(),
		paymentEvent("evt_f2", models.EventTypePaymentFailed, order.ID, "pay_bad")))
	current, _ = f.store.GetBookingByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingStatusConfirmed, current.Status)
}

func TestReconcilerUnknownOrder(t *testing.T) {
	f := newFixture(t, false)
	r := NewReconciler(f.store, f.store, f.events)

	assert.NoError(t, r.HandlePaymentCaptured(context.Background(),
		paymentEvent("evt_x", models.EventTypePaymentCaptured, "order_unknown", "pay_x")))

	processed, _ := f.store.IsEventProcessed(context.Background(), "evt_x")
	assert.True(t, processed)
	assert.Empty(t, f.events.Bookings)
}
