package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"booking-service/internal/models"

	"github.com/lib/pq"
)

const bookingColumns = `id, user_id, asset_id, start_date, end_date, total_price, status,
	order_id, payment_id, idempotency_key, created_at, updated_at`

const prefixedBookingColumns = `b.id, b.user_id, b.asset_id, b.start_date, b.end_date, b.total_price, b.status,
	b.order_id, b.payment_id, b.idempotency_key, b.created_at, b.updated_at`

// CreateBooking inserts a new booking and fills its timestamps
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, asset_id, start_date, end_date, total_price, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := s.db.GetContext(ctx, b, query,
		b.ID, b.UserID, b.AssetID, b.StartDate, b.EndDate, b.TotalPrice, b.Status, b.IdempotencyKey)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	return s.getBooking(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id)
}

// GetBookingForUser retrieves a booking scoped to its renter
func (s *Store) GetBookingForUser(ctx context.Context, id, userID string) (*models.Booking, error) {
	return s.getBooking(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = $1 AND user_id = $2", id, userID)
}

// GetBookingByOrderID retrieves the booking a gateway order was attached to
func (s *Store) GetBookingByOrderID(ctx context.Context, orderID string) (*models.Booking, error) {
	return s.getBooking(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE order_id = $1", orderID)
}

// GetConfirmedBooking retrieves a confirmed booking owned by userID
func (s *Store) GetConfirmedBooking(ctx context.Context, id, userID string) (*models.Booking, error) {
	return s.getBooking(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = $1 AND user_id = $2 AND status = $3",
		id, userID, models.BookingStatusConfirmed)
}

// GetBookingByIdempotencyKey retrieves a booking by the renter's idempotency key
func (s *Store) GetBookingByIdempotencyKey(ctx context.Context, userID, key string) (*models.Booking, error) {
	b, err := s.getBooking(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id = $1 AND idempotency_key = $2", userID, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// ListBookingsByUser retrieves bookings for a renter
func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return bookings, err
}

// ListBookingsForOwner retrieves bookings whose asset is owned by ownerID.
// Bookings without a matching asset are dropped by the inner join.
func (s *Store) ListBookingsForOwner(ctx context.Context, ownerID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT `+prefixedBookingColumns+`
		FROM bookings b
		JOIN assets a ON a.id = b.asset_id
		WHERE a.owner_id = $1
		ORDER BY b.created_at DESC`, ownerID)
	return bookings, err
}

// UpdateStatusIf moves a renter's booking to status `to` only while its
// current status is one of `from`.
func (s *Store) UpdateStatusIf(ctx context.Context, id, userID string, from []string, to string) (*models.Booking, error) {
	return s.getBooking(ctx, `
		UPDATE bookings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = ANY($4)
		RETURNING `+bookingColumns,
		to, id, userID, pq.Array(from))
}

// UpdateStatusByOrderIf moves the booking carrying orderID to status `to`
// only while its current status is one of `from`.
func (s *Store) UpdateStatusByOrderIf(ctx context.Context, orderID string, from []string, to string) (*models.Booking, error) {
	return s.getBooking(ctx, `
		UPDATE bookings SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND status = ANY($3)
		RETURNING `+bookingColumns,
		to, orderID, pq.Array(from))
}

// AttachOrder records the gateway order on a renter's unconfirmed booking
func (s *Store) AttachOrder(ctx context.Context, id, userID, orderID string, from []string) (*models.Booking, error) {
	b, err := s.getBooking(ctx, `
		UPDATE bookings SET order_id = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = ANY($4)
		RETURNING `+bookingColumns,
		orderID, id, userID, pq.Array(from))
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return b, err
}

// ConfirmBooking confirms a renter's booking with a verified payment. The
// update only matches while the booking is in one of `from` and carries
// either no order or the same order.
func (s *Store) ConfirmBooking(ctx context.Context, id, userID, orderID, paymentID string, from []string) (*models.Booking, error) {
	b, err := s.getBooking(ctx, `
		UPDATE bookings
		SET status = $1, order_id = $2, payment_id = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5 AND status = ANY($6)
		  AND (order_id IS NULL OR order_id = $2)
		RETURNING `+bookingColumns,
		models.BookingStatusConfirmed, orderID, paymentID, id, userID, pq.Array(from))
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return b, err
}

// ConfirmBookingByOrder confirms the booking carrying orderID
func (s *Store) ConfirmBookingByOrder(ctx context.Context, orderID, paymentID string, from []string) (*models.Booking, error) {
	return s.getBooking(ctx, `
		UPDATE bookings
		SET status = $1, payment_id = COALESCE(NULLIF($2, ''), payment_id), updated_at = NOW()
		WHERE order_id = $3 AND status = ANY($4)
		RETURNING `+bookingColumns,
		models.BookingStatusConfirmed, paymentID, orderID, pq.Array(from))
}

// CountBookingsPerDay groups bookings by creation date
func (s *Store) CountBookingsPerDay(ctx context.Context) ([]models.DailyCount, error) {
	rows := []models.DailyCount{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*) AS count
		FROM bookings
		GROUP BY day
		ORDER BY day`)
	return rows, err
}

func (s *Store) getBooking(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking query: %w", err)
	}
	return &b, nil
}
