package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	orderLockTTL        = 30 * time.Second
	genericOrderFailure = "Could not create order"
)

// PaymentService creates gateway orders and confirms bookings once a payment
// signature checks out
type PaymentService struct {
	bookings       BookingRepository
	gateway        PaymentGateway
	orders         OrderCache
	events         BookingEvents
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	bookings BookingRepository,
	gateway PaymentGateway,
	orders OrderCache,
	events BookingEvents,
	idempotencyTTL time.Duration,
) *PaymentService {
	return &PaymentService{
		bookings:       bookings,
		gateway:        gateway,
		orders:         orders,
		events:         events,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest asks for a gateway order. Receipt, when given, is the
// caller's idempotency token.
type CreateOrderRequest struct {
	Amount    int64  `json:"amountInSmallestUnit"`
	Receipt   string `json:"receipt"`
	BookingID string `json:"bookingId"`
}

// CreateOrder creates a gateway order for the renter. With a booking id the
// amount must equal the booking total and the order is attached to the
// booking once the gateway has accepted it.
func (s *PaymentService) CreateOrder(ctx context.Context, renterID string, req *CreateOrderRequest) (_ *models.PaymentOrder, err error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreateOrder",
		attribute.Int64("amount", req.Amount),
		attribute.String("booking_id", req.BookingID))
	defer func() { util.EndSpan(span, err) }()

	if req.Amount <= 0 {
		util.PaymentOrderFailuresTotal.WithLabelValues("invalid_amount").Inc()
		return nil, apperr.Validation("Invalid amount")
	}

	if req.BookingID != "" {
		if err := s.checkPayable(ctx, req.BookingID, renterID, req.Amount); err != nil {
			util.PaymentOrderFailuresTotal.WithLabelValues("booking").Inc()
			return nil, err
		}
	}

	receipt := strings.TrimSpace(req.Receipt)
	if receipt == "" {
		return s.createAndAttach(ctx, renterID, req, fmt.Sprintf("rcpt_%d", time.Now().UnixMilli()))
	}

	key := renterID + ":" + receipt
	if order := s.cachedOrder(ctx, key); order != nil {
		return s.reuseOrder(ctx, renterID, req, order)
	}

	token, acquired, err := s.orders.AcquireLock(ctx, "order:"+key, orderLockTTL)
	if err != nil {
		s.logger.Warn("Order lock unavailable, continuing without it", zap.Error(err))
	} else if !acquired {
		return nil, apperr.Conflict("Order creation already in progress")
	} else {
		defer func() {
			if err := s.orders.ReleaseLock(context.Background(), "order:"+key, token); err != nil {
				s.logger.Warn("Failed to release order lock", zap.Error(err))
			}
		}()
		if order := s.cachedOrder(ctx, key); order != nil {
			return s.reuseOrder(ctx, renterID, req, order)
		}
	}

	order, err := s.createAndAttach(ctx, renterID, req, receipt)
	if err != nil {
		return nil, err
	}

	if err := s.orders.CacheOrder(ctx, key, order, s.idempotencyTTL); err != nil {
		s.logger.Warn("Failed to cache order", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

func (s *PaymentService) checkPayable(ctx context.Context, bookingID, renterID string, amount int64) error {
	booking, err := s.bookings.GetBookingForUser(ctx, bookingID, renterID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Booking not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}
	if !isOpen(booking.Status) {
		return apperr.Conflict(fmt.Sprintf("Cannot pay for a %s booking", booking.Status))
	}
	if booking.TotalPrice != amount {
		return apperr.Validation("Amount does not match booking total")
	}
	return nil
}

func (s *PaymentService) createAndAttach(ctx context.Context, renterID string, req *CreateOrderRequest, receipt string) (*models.PaymentOrder, error) {
	start := time.Now()
	order, err := s.gateway.CreateOrder(ctx, req.Amount, receipt)
	util.PaymentOrderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.PaymentOrderFailuresTotal.WithLabelValues(apperr.KindOf(err).String()).Inc()
		return nil, err
	}
	if order.Currency != "" && order.Currency != s.gateway.Currency() {
		util.PaymentOrderFailuresTotal.WithLabelValues("currency").Inc()
		return nil, apperr.Gateway(genericOrderFailure,
			fmt.Errorf("order %s created in %s, expected %s", order.ID, order.Currency, s.gateway.Currency()))
	}
	util.PaymentOrdersCreatedTotal.Inc()

	if req.BookingID == "" {
		return order, nil
	}
	if err := s.attach(ctx, renterID, req.BookingID, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

// reuseOrder answers a retried receipt with the order created for it. The
// retry must ask for the same amount, and a booking named by the retry gets
// the order attached.
func (s *PaymentService) reuseOrder(ctx context.Context, renterID string, req *CreateOrderRequest, order *models.PaymentOrder) (*models.PaymentOrder, error) {
	if order.Amount != req.Amount {
		util.PaymentOrderFailuresTotal.WithLabelValues("receipt_reused").Inc()
		return nil, apperr.Conflict("Receipt was already used for a different amount")
	}
	if req.BookingID != "" {
		if err := s.attach(ctx, renterID, req.BookingID, order.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (s *PaymentService) attach(ctx context.Context, renterID, bookingID, orderID string) error {
	if _, err := s.bookings.AttachOrder(ctx, bookingID, renterID, orderID, openStatuses); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Conflict("Booking is no longer awaiting payment")
		}
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("Payment order is already attached to another booking")
		}
		return fmt.Errorf("failed to attach order: %w", err)
	}

	s.logger.Info("Order attached to booking",
		zap.String("booking_id", bookingID),
		zap.String("order_id", orderID))
	return nil
}

func (s *PaymentService) cachedOrder(ctx context.Context, key string) *models.PaymentOrder {
	order, err := s.orders.GetCachedOrder(ctx, key)
	if err != nil {
		s.logger.Warn("Order cache read failed", zap.Error(err))
		return nil
	}
	if order != nil {
		s.logger.Info("Duplicate order request detected", zap.String("order_id", order.ID))
	}
	return order
}

// VerifyPaymentRequest is the checkout callback payload
type VerifyPaymentRequest struct {
	OrderID   string
	PaymentID string
	Signature string
	BookingID string
}

// Verify checks the payment signature and confirms the renter's booking.
// Replaying a payload that already confirmed the booking returns it again.
func (s *PaymentService) Verify(ctx context.Context, renterID string, req *VerifyPaymentRequest) (_ *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Verify",
		attribute.String("booking_id", req.BookingID),
		attribute.String("order_id", req.OrderID))
	defer func() { util.EndSpan(span, err) }()

	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, apperr.Validation("Missing payment fields")
	}
	if req.BookingID == "" {
		return nil, apperr.Validation("Missing bookingId")
	}

	if err := s.gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		util.PaymentVerificationsTotal.WithLabelValues(apperr.KindOf(err).String()).Inc()
		s.logger.Warn("Payment verification rejected",
			zap.String("booking_id", req.BookingID),
			zap.String("order_id", req.OrderID),
			zap.String("reason", apperr.KindOf(err).String()))
		return nil, err
	}

	booking, err := s.bookings.ConfirmBooking(ctx, req.BookingID, renterID, req.OrderID, req.PaymentID, openStatuses)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.resolveUnconfirmed(ctx, renterID, req)
	case errors.Is(err, store.ErrDuplicate):
		util.PaymentVerificationsTotal.WithLabelValues("conflict").Inc()
		return nil, apperr.Conflict("Payment order does not belong to this booking")
	case err != nil:
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	util.PaymentVerificationsTotal.WithLabelValues("confirmed").Inc()
	util.BookingsConfirmedTotal.Inc()
	s.logger.Info("Booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("user_id", renterID),
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", req.PaymentID))

	if err := s.events.PublishBookingEvent(ctx, broker.NewBookingEvent(models.EventTypeBookingConfirmed, booking)); err != nil {
		s.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
	}
	return booking, nil
}

// resolveUnconfirmed explains why a verified payment matched no open booking
func (s *PaymentService) resolveUnconfirmed(ctx context.Context, renterID string, req *VerifyPaymentRequest) (*models.Booking, error) {
	current, err := s.bookings.GetBookingForUser(ctx, req.BookingID, renterID)
	if errors.Is(err, store.ErrNotFound) {
		util.PaymentVerificationsTotal.WithLabelValues("not_found").Inc()
		return nil, apperr.NotFound("Booking not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	if current.Status == models.BookingStatusConfirmed &&
		current.PaymentID != nil && *current.PaymentID == req.PaymentID &&
		(current.OrderID == nil || *current.OrderID == req.OrderID) {
		util.PaymentVerificationsTotal.WithLabelValues("replayed").Inc()
		s.logger.Info("Payment verification replayed",
			zap.String("booking_id", current.ID),
			zap.String("payment_id", req.PaymentID))
		return current, nil
	}

	util.PaymentVerificationsTotal.WithLabelValues("conflict").Inc()
	switch {
	case current.Status == models.BookingStatusConfirmed:
		return nil, apperr.Conflict("Booking already confirmed with a different payment")
	case current.Status == models.BookingStatusCancelled:
		return nil, apperr.Conflict("Cannot confirm a cancelled booking")
	case current.OrderID != nil && *current.OrderID != req.OrderID:
		return nil, apperr.Conflict("Payment order does not belong to this booking")
	default:
		return nil, apperr.Conflict("Booking was modified concurrently, retry")
	}
}

func isOpen(status string) bool {
	for _, s := range openStatuses {
		if s == status {
			return true
		}
	}
	return false
}
