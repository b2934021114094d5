package models

import "time"

// Asset represents a rentable item supplied by the catalog
type Asset struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"ownerId"`
	Title      string    `db:"title" json:"title"`
	PerDayRate int64     `db:"price_per_day" json:"perDayRate"`
	Available  bool      `db:"available" json:"available"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Booking is a time-boxed reservation of one asset by one renter
type Booking struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user"`
	AssetID        string    `db:"asset_id" json:"assetId"`
	StartDate      time.Time `db:"start_date" json:"startDate"`
	EndDate        time.Time `db:"end_date" json:"endDate"`
	TotalPrice     int64     `db:"total_price" json:"totalPrice"`
	Status         string    `db:"status" json:"status"`
	OrderID        *string   `db:"order_id" json:"orderId"`
	PaymentID      *string   `db:"payment_id" json:"paymentId"`
	IdempotencyKey *string   `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`

	Asset *Asset `db:"-" json:"asset,omitempty"`
}

// Booking statuses
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusFailed    = "failed"
)

// IsBookingStatus reports whether s is a known booking status
func IsBookingStatus(s string) bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusFailed:
		return true
	}
	return false
}

// PaymentOrder is the gateway-side payment intent handle
type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status,omitempty"`
}

// Roles issued by the identity provider
const (
	RoleTaker  = "taker"
	RoleLister = "lister"
	RoleAdmin  = "admin"
)

// Principal is the authenticated caller
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// DailyCount is one row of the bookings-per-day report
type DailyCount struct {
	Day   string `db:"day" json:"day"`
	Count int64  `db:"count" json:"count"`
}
