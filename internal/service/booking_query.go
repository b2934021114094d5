package service

import (
	"context"
	"errors"
	"fmt"

	"booking-service/internal/apperr"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Get returns a single booking if p may read it: takers their own bookings,
// listers bookings on assets they own, admins any booking.
func (s *BookingService) Get(ctx context.Context, p *models.Principal, bookingID string) (_ *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Get",
		attribute.String("booking_id", bookingID),
		attribute.String("role", p.Role))
	defer func() { util.EndSpan(span, err) }()

	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Booking not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	asset, err := s.catalog.GetAsset(ctx, booking.AssetID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	booking.Asset = asset

	if !canRead(p, booking) {
		s.logger.Warn("Booking read denied",
			zap.String("booking_id", bookingID),
			zap.String("user_id", p.ID),
			zap.String("role", p.Role))
		if s.hideForeign {
			return nil, apperr.NotFound("Booking not found")
		}
		return nil, apperr.Forbidden("Forbidden")
	}

	return booking, nil
}

func canRead(p *models.Principal, b *models.Booking) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTaker:
		return b.UserID == p.ID
	case models.RoleLister:
		return b.Asset != nil && b.Asset.OwnerID == p.ID
	default:
		return false
	}
}

// ListMine returns the renter's bookings with their asset snapshots
func (s *BookingService) ListMine(ctx context.Context, renterID string) ([]models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.ListMine")
	defer span.End()

	bookings, err := s.bookings.ListBookingsByUser(ctx, renterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	if _, err := s.attachAssets(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListForOwnerAssets returns bookings on assets owned by ownerID. Bookings
// are joined with their assets first and only then filtered by owner, so a
// booking whose asset has disappeared is dropped rather than leaked.
func (s *BookingService) ListForOwnerAssets(ctx context.Context, ownerID string) ([]models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.ListForOwnerAssets")
	defer span.End()

	bookings, err := s.bookings.ListBookingsForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	assets, err := s.attachAssets(ctx, bookings)
	if err != nil {
		return nil, err
	}

	owned := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if a := assets[b.AssetID]; a != nil && a.OwnerID == ownerID {
			owned = append(owned, b)
		}
	}
	return owned, nil
}

// GetReviewable returns the renter's booking only once it is confirmed. The
// review subsystem uses it to decide whether a review may be written.
func (s *BookingService) GetReviewable(ctx context.Context, bookingID, renterID string) (*models.Booking, error) {
	booking, err := s.bookings.GetConfirmedBooking(ctx, bookingID, renterID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Booking not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// BookingsPerDay counts bookings by creation date, oldest first
func (s *BookingService) BookingsPerDay(ctx context.Context) ([]models.DailyCount, error) {
	rows, err := s.bookings.CountBookingsPerDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	return rows, nil
}

func (s *BookingService) attachAssets(ctx context.Context, bookings []models.Booking) (map[string]*models.Asset, error) {
	if len(bookings) == 0 {
		return map[string]*models.Asset{}, nil
	}

	ids := make([]string, len(bookings))
	for i := range bookings {
		ids[i] = bookings[i].AssetID
	}

	assets, err := s.catalog.GetAssetsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		bookings[i].Asset = assets[bookings[i].AssetID]
	}
	return assets, nil
}
