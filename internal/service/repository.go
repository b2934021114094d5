package service

import (
	"context"
	"time"

	"booking-service/internal/models"
)

// BookingRepository is the booking persistence used by the services.
// Mutations are conditional: they match only while the booking is in one of
// the `from` statuses and return store.ErrNotFound otherwise.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingForUser(ctx context.Context, id, userID string) (*models.Booking, error)
	GetBookingByOrderID(ctx context.Context, orderID string) (*models.Booking, error)
	GetConfirmedBooking(ctx context.Context, id, userID string) (*models.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, userID, key string) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListBookingsForOwner(ctx context.Context, ownerID string) ([]models.Booking, error)
	UpdateStatusIf(ctx context.Context, id, userID string, from []string, to string) (*models.Booking, error)
	UpdateStatusByOrderIf(ctx context.Context, orderID string, from []string, to string) (*models.Booking, error)
	AttachOrder(ctx context.Context, id, userID, orderID string, from []string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, id, userID, orderID, paymentID string, from []string) (*models.Booking, error)
	ConfirmBookingByOrder(ctx context.Context, orderID, paymentID string, from []string) (*models.Booking, error)
	CountBookingsPerDay(ctx context.Context) ([]models.DailyCount, error)
}

// AssetRepository is the system of record for the asset catalog
type AssetRepository interface {
	GetAssetByID(ctx context.Context, id string) (*models.Asset, error)
	GetAssets(ctx context.Context) ([]models.Asset, error)
	GetAssetsByIDs(ctx context.Context, ids []string) ([]models.Asset, error)
}

// EventLog records which broker events were already applied
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AssetCache is the read-through cache in front of the catalog
type AssetCache interface {
	GetCachedAsset(ctx context.Context, assetID string) (*models.Asset, error)
	CacheAsset(ctx context.Context, asset *models.Asset, ttl time.Duration) error
}

// OrderCache remembers created orders per idempotency token and serializes
// concurrent creation for the same token
type OrderCache interface {
	GetCachedOrder(ctx context.Context, key string) (*models.PaymentOrder, error)
	CacheOrder(ctx context.Context, key string, order *models.PaymentOrder, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// BookingEvents publishes booking lifecycle events
type BookingEvents interface {
	PublishBookingEvent(ctx context.Context, event *models.BookingEvent) error
}

// PaymentEvents queues verified gateway notifications
type PaymentEvents interface {
	PublishPaymentEvent(ctx context.Context, event *models.PaymentEvent) error
}

// PaymentGateway creates orders and checks gateway signatures
type PaymentGateway interface {
	Currency() string
	CreateOrder(ctx context.Context, amount int64, receipt string) (*models.PaymentOrder, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	VerifyWebhook(body []byte, signature string) error
}
