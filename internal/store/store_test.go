package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"booking-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "user_id", "asset_id", "start_date", "end_date", "total_price", "status",
	"order_id", "payment_id", "idempotency_key", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func bookingRow(status string, orderID, paymentID interface{}) []driver.Value {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []driver.Value{
		"b-1", "u-1", "a-1", start, start.Add(72 * time.Hour), int64(1500), status,
		orderID, paymentID, nil, start, start,
	}
}

func TestCreateBooking(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	b := &models.Booking{
		ID:         "b-1",
		UserID:     "u-1",
		AssetID:    "a-1",
		StartDate:  now,
		EndDate:    now.Add(24 * time.Hour),
		TotalPrice: 500,
		Status:     models.BookingStatusPending,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs("b-1", "u-1", "a-1", b.StartDate, b.EndDate, int64(500), "pending", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, s.CreateBooking(context.Background(), b))
	assert.Equal(t, now, b.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingDuplicateKey(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.CreateBooking(context.Background(), &models.Booking{ID: "b-1"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetBookingByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := s.GetBookingByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookingByIdempotencyKeyAbsent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND idempotency_key = $2")).
		WithArgs("u-1", "key-1").
		WillReturnRows(sqlmock.NewRows(columns))

	b, err := s.GetBookingByIdempotencyKey(context.Background(), "u-1", "key-1")
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestUpdateStatusIfNoMatch(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status = $1")).
		WithArgs("cancelled", "b-1", "u-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := s.UpdateStatusIf(context.Background(), "b-1", "u-1",
		[]string{models.BookingStatusPending}, models.BookingStatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmBooking(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("AND (order_id IS NULL OR order_id = $2)")).
		WithArgs("confirmed", "order_1", "pay_1", "b-1", "u-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(bookingRow("confirmed", "order_1", "pay_1")...))

	b, err := s.ConfirmBooking(context.Background(), "b-1", "u-1", "order_1", "pay_1",
		[]string{models.BookingStatusPending, models.BookingStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	require.NotNil(t, b.PaymentID)
	assert.Equal(t, "pay_1", *b.PaymentID)
	assert.Equal(t, int64(1500), b.TotalPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmBookingOrderTaken(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.ConfirmBooking(context.Background(), "b-2", "u-1", "order_1", "pay_1", []string{"pending"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAttachOrderDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET order_id = $1")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.AttachOrder(context.Background(), "b-1", "u-1", "order_1", []string{"pending"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestListBookingsForOwner(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN assets a ON a.id = b.asset_id")).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(bookingRow("pending", nil, nil)...))

	bookings, err := s.ListBookingsForOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Nil(t, bookings[0].OrderID)
}

func TestGetAssetsByIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM assets WHERE id IN ($1, $2)")).
		WithArgs("a-1", "a-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "price_per_day", "available", "created_at"}).
			AddRow("a-1", "owner-1", "Scooter", int64(500), true, time.Now()).
			AddRow("a-2", "owner-2", "Bike", int64(300), false, time.Now()))

	assets, err := s.GetAssetsByIDs(context.Background(), []string{"a-1", "a-2"})
	require.NoError(t, err)
	assert.Len(t, assets, 2)
	assert.Equal(t, int64(500), assets[0].PerDayRate)
}

func TestEventProcessed(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_events")).
		WithArgs("evt-2", models.EventTypePaymentCaptured).
		WillReturnResult(sqlmock.NewResult(0, 1))

	processed, err := s.IsEventProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.NoError(t, s.MarkEventProcessed(context.Background(), "evt-2", models.EventTypePaymentCaptured))
	assert.NoError(t, mock.ExpectationsWereMet())
}
