package worker

import (
	"context"
	"encoding/json"
	"testing"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/testutil"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replaySource hands every queued message to the handler once and records
// the handler's verdict
type replaySource struct {
	messages []kafka.Message
	results  []error
	closed   bool
}

func (s *replaySource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		s.results = append(s.results, handler(ctx, msg))
	}
	return nil
}

func (s *replaySource) Close() error {
	s.closed = true
	return nil
}

func message(t *testing.T, event *models.PaymentEvent) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("order-" + event.OrderID), Value: raw}
}

func seedBooking(t *testing.T, s *testutil.MemStore, id, orderID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateBooking(ctx, &models.Booking{
		ID: id, UserID: "taker-1", AssetID: "asset-1", TotalPrice: 1500, Status: models.BookingStatusPending,
	}))
	_, err := s.AttachOrder(ctx, id, "taker-1", orderID, []string{models.BookingStatusPending})
	require.NoError(t, err)
}

func TestPaymentWorkerAppliesEvents(t *testing.T) {
	s := testutil.NewMemStore()
	events := &testutil.Recorder{}
	seedBooking(t, s, "b-1", "order_1")
	seedBooking(t, s, "b-2", "order_2")

	source := &replaySource{messages: []kafka.Message{
		message(t, &models.PaymentEvent{
			BaseEvent: models.BaseEvent{EventID: "evt_1", EventType: models.EventTypePaymentCaptured},
			OrderID:   "order_1", PaymentID: "pay_1",
		}),
		message(t, &models.PaymentEvent{
			BaseEvent: models.BaseEvent{EventID: "evt_2", EventType: models.EventTypePaymentFailed},
			OrderID:   "order_2", PaymentID: "pay_2", Reason: "Card declined",
		}),
		{Value: []byte("not json")},
	}}

	w := NewPaymentWorker(source, service.NewReconciler(s, s, events))
	require.NoError(t, w.Start(context.Background()))

	require.Len(t, source.results, 3)
	assert.NoError(t, source.results[0])
	assert.NoError(t, source.results[1])
	assert.Error(t, source.results[2])

	confirmed, _ := s.GetBookingByID(context.Background(), "b-1")
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	failed, _ := s.GetBookingByID(context.Background(), "b-2")
	assert.Equal(t, models.BookingStatusFailed, failed.Status)

	require.NoError(t, w.Stop())
	assert.True(t, source.closed)
}
