package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"booking-service/internal/apperr"
	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Statuses a renter may still act on. Confirmed and cancelled are terminal.
var openStatuses = []string{models.BookingStatusPending, models.BookingStatusFailed}

// BookingService owns the booking lifecycle and the read paths over it
type BookingService struct {
	bookings    BookingRepository
	catalog     *AssetCatalog
	events      BookingEvents
	hideForeign bool
	logger      *zap.Logger
}

// NewBookingService creates a new booking service. With hideForeign set,
// reads of a booking the caller has no relationship with answer not-found
// instead of forbidden.
func NewBookingService(
	bookings BookingRepository,
	catalog *AssetCatalog,
	events BookingEvents,
	hideForeign bool,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		catalog:     catalog,
		events:      events,
		hideForeign: hideForeign,
		logger:      util.GetLogger(),
	}
}

// CreateBookingRequest represents a request to book an asset
type CreateBookingRequest struct {
	AssetID        string `json:"assetId"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	IdempotencyKey string `json:"-"`
}

// Create prices and records a pending booking for renterID. Overlapping
// bookings of the same asset are not rejected.
func (s *BookingService) Create(ctx context.Context, renterID string, req *CreateBookingRequest) (_ *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Create",
		attribute.String("user_id", renterID),
		attribute.String("asset_id", req.AssetID))
	defer func() { util.EndSpan(span, err) }()

	if strings.TrimSpace(req.AssetID) == "" || strings.TrimSpace(req.StartDate) == "" || strings.TrimSpace(req.EndDate) == "" {
		util.BookingFailuresTotal.WithLabelValues("missing_fields").Inc()
		return nil, apperr.Validation("assetId, startDate, and endDate required")
	}

	if req.IdempotencyKey != "" {
		existing, err := s.bookings.GetBookingByIdempotencyKey(ctx, renterID, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate booking request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("booking_id", existing.ID))
			return existing, nil
		}
	}

	asset, err := s.catalog.GetAsset(ctx, req.AssetID)
	if err != nil {
		util.BookingFailuresTotal.WithLabelValues("asset_lookup").Inc()
		return nil, err
	}
	if !asset.Available {
		util.BookingFailuresTotal.WithLabelValues("asset_unavailable").Inc()
		return nil, apperr.Conflict("Asset is not available")
	}

	quote, err := ComputeTotal(asset.PerDayRate, req.StartDate, req.EndDate)
	if err != nil {
		util.BookingFailuresTotal.WithLabelValues("invalid_dates").Inc()
		return nil, err
	}

	booking := &models.Booking{
		ID:         uuid.New().String(),
		UserID:     renterID,
		AssetID:    asset.ID,
		StartDate:  quote.Start,
		EndDate:    quote.End,
		TotalPrice: quote.Total,
		Status:     models.BookingStatusPending,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		booking.IdempotencyKey = &key
	}

	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, store.ErrDuplicate) && req.IdempotencyKey != "" {
			existing, lookupErr := s.bookings.GetBookingByIdempotencyKey(ctx, renterID, req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		util.BookingFailuresTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("user_id", renterID),
		zap.String("asset_id", asset.ID),
		zap.Int64("days", quote.Days),
		zap.Int64("total_price", booking.TotalPrice))

	s.publish(ctx, models.EventTypeBookingCreated, booking)
	return booking, nil
}

// Cancel cancels a renter's own pending or failed booking
func (s *BookingService) Cancel(ctx context.Context, bookingID, renterID string) (_ *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Cancel", attribute.String("booking_id", bookingID))
	defer func() { util.EndSpan(span, err) }()

	booking, err := s.bookings.UpdateStatusIf(ctx, bookingID, renterID, openStatuses, models.BookingStatusCancelled)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.explainRejectedTransition(ctx, bookingID, renterID, "cancel")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	util.BookingsCancelledTotal.Inc()
	s.logger.Info("Booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("user_id", renterID))

	s.publish(ctx, models.EventTypeBookingCancelled, booking)
	return booking, nil
}

// UpdateStatus overwrites the status of a renter's own open booking with a
// client-reported state. Confirmation is only reachable through payment
// verification. An empty status leaves the booking unchanged.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID, renterID, status string) (_ *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.UpdateStatus",
		attribute.String("booking_id", bookingID),
		attribute.String("status", status))
	defer func() { util.EndSpan(span, err) }()

	if status == "" {
		booking, err := s.bookings.GetBookingForUser(ctx, bookingID, renterID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Booking not found")
		}
		return booking, err
	}

	if !models.IsBookingStatus(status) {
		return nil, apperr.Validation("Invalid status")
	}
	if status == models.BookingStatusConfirmed {
		return nil, apperr.Validation("Bookings are confirmed through payment verification")
	}

	booking, err := s.bookings.UpdateStatusIf(ctx, bookingID, renterID, openStatuses, status)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.explainRejectedTransition(ctx, bookingID, renterID, "update")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if status == models.BookingStatusCancelled {
		util.BookingsCancelledTotal.Inc()
	}
	s.logger.Info("Booking status updated",
		zap.String("booking_id", bookingID),
		zap.String("user_id", renterID),
		zap.String("status", status))

	s.publish(ctx, models.EventTypeBookingStatusUpdated, booking)
	return booking, nil
}

// explainRejectedTransition turns a conditional update that matched nothing
// into the error the caller should see
func (s *BookingService) explainRejectedTransition(ctx context.Context, bookingID, renterID, action string) error {
	current, err := s.bookings.GetBookingForUser(ctx, bookingID, renterID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Booking not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}

	util.BookingFailuresTotal.WithLabelValues("invalid_transition").Inc()
	switch current.Status {
	case models.BookingStatusConfirmed:
		return apperr.Conflict(fmt.Sprintf("Cannot %s a confirmed booking", action))
	case models.BookingStatusCancelled:
		return apperr.Conflict("Booking already cancelled")
	default:
		return apperr.Conflict("Booking was modified concurrently, retry")
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *models.Booking) {
	if err := s.events.PublishBookingEvent(ctx, broker.NewBookingEvent(eventType, b)); err != nil {
		s.logger.Error("Failed to publish booking event",
			zap.String("event_type", eventType),
			zap.String("booking_id", b.ID),
			zap.Error(err))
	}
}
