package models

import "time"

// Event types
const (
	EventTypeBookingCreated       = "BOOKING_CREATED"
	EventTypeBookingConfirmed     = "BOOKING_CONFIRMED"
	EventTypeBookingCancelled     = "BOOKING_CANCELLED"
	EventTypeBookingStatusUpdated = "BOOKING_STATUS_UPDATED"
	EventTypePaymentCaptured      = "PAYMENT_CAPTURED"
	EventTypePaymentFailed        = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingEvent is published on every booking lifecycle transition
type BookingEvent struct {
	BaseEvent
	BookingID  string `json:"booking_id"`
	UserID     string `json:"user_id"`
	AssetID    string `json:"asset_id"`
	Status     string `json:"status"`
	TotalPrice int64  `json:"total_price"`
	OrderID    string `json:"order_id,omitempty"`
	PaymentID  string `json:"payment_id,omitempty"`
}

// PaymentEvent carries a verified gateway webhook notification
type PaymentEvent struct {
	BaseEvent
	GatewayEvent string `json:"gateway_event"`
	OrderID      string `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	Reason       string `json:"reason,omitempty"`
}
