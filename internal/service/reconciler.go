package service

import (
	"context"
	"errors"
	"fmt"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// Reconciler applies queued gateway notifications to bookings. Each event is
// applied at most once.
type Reconciler struct {
	bookings BookingRepository
	eventLog EventLog
	events   BookingEvents
	logger   *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(bookings BookingRepository, eventLog EventLog, events BookingEvents) *Reconciler {
	return &Reconciler{
		bookings: bookings,
		eventLog: eventLog,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// HandlePaymentCaptured confirms the booking the captured order belongs to
func (r *Reconciler) HandlePaymentCaptured(ctx context.Context, event *models.PaymentEvent) error {
	ctx, span := util.StartSpan(ctx, "Reconciler.HandlePaymentCaptured")
	defer span.End()

	done, err := r.alreadyProcessed(ctx, event)
	if err != nil || done {
		return err
	}

	booking, err := r.bookings.ConfirmBookingByOrder(ctx, event.OrderID, event.PaymentID, openStatuses)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.logUnapplied(ctx, event)
	case err != nil:
		return fmt.Errorf("failed to confirm booking: %w", err)
	default:
		util.BookingsConfirmedTotal.Inc()
		r.logger.Info("Booking confirmed from webhook",
			zap.String("booking_id", booking.ID),
			zap.String("order_id", event.OrderID),
			zap.String("payment_id", event.PaymentID))
		r.publish(ctx, models.EventTypeBookingConfirmed, booking)
	}

	r.markProcessed(ctx, event)
	return nil
}

// HandlePaymentFailed marks a still-pending booking as failed so the renter
// can retry or cancel it
func (r *Reconciler) HandlePaymentFailed(ctx context.Context, event *models.PaymentEvent) error {
	ctx, span := util.StartSpan(ctx, "Reconciler.HandlePaymentFailed")
	defer span.End()

	done, err := r.alreadyProcessed(ctx, event)
	if err != nil || done {
		return err
	}

	booking, err := r.bookings.UpdateStatusByOrderIf(ctx, event.OrderID,
		[]string{models.BookingStatusPending}, models.BookingStatusFailed)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.logUnapplied(ctx, event)
	case err != nil:
		return fmt.Errorf("failed to mark booking failed: %w", err)
	default:
		util.BookingFailuresTotal.WithLabelValues("payment_failed").Inc()
		r.logger.Warn("Booking payment failed",
			zap.String("booking_id", booking.ID),
			zap.String("order_id", event.OrderID),
			zap.String("reason", event.Reason))
		r.publish(ctx, models.EventTypeBookingStatusUpdated, booking)
	}

	r.markProcessed(ctx, event)
	return nil
}

func (r *Reconciler) alreadyProcessed(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	processed, err := r.eventLog.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return false, fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		r.logger.Info("Event already processed", zap.String("event_id", event.EventID))
	}
	return processed, nil
}

// logUnapplied records why an event changed nothing: the order is unknown or
// the booking already left the states the event applies to
func (r *Reconciler) logUnapplied(ctx context.Context, event *models.PaymentEvent) {
	current, err := r.bookings.GetBookingByOrderID(ctx, event.OrderID)
	if err != nil {
		r.logger.Warn("Payment event for unknown order",
			zap.String("event_id", event.EventID),
			zap.String("order_id", event.OrderID))
		return
	}
	r.logger.Info("Payment event left booking unchanged",
		zap.String("event_id", event.EventID),
		zap.String("booking_id", current.ID),
		zap.String("status", current.Status))
}

func (r *Reconciler) markProcessed(ctx context.Context, event *models.PaymentEvent) {
	if err := r.eventLog.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		r.logger.Error("Failed to mark event processed", zap.Error(err))
	}
}

func (r *Reconciler) publish(ctx context.Context, eventType string, b *models.Booking) {
	if err := r.events.PublishBookingEvent(ctx, broker.NewBookingEvent(eventType, b)); err != nil {
		r.logger.Error("Failed to publish booking event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
