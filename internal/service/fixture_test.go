package service

import (
	"context"
	"testing"
	"time"

	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/testutil"

	"github.com/stretchr/testify/require"
)

const (
	keySecret     = "rzp_secret"
	webhookSecret = "rzp_webhook_secret"
)

type fixture struct {
	store    *testutil.MemStore
	cache    *testutil.MemCache
	events   *testutil.Recorder
	orders   *testutil.FakeOrders
	gateway  *gateway.Razorpay
	catalog  *AssetCatalog
	bookings *BookingService
	payments *PaymentService
}

func newFixture(t *testing.T, hideForeign bool) *fixture {
	t.Helper()

	f := &fixture{
		store:  testutil.NewMemStore(),
		cache:  testutil.NewMemCache(),
		events: &testutil.Recorder{},
		orders: &testutil.FakeOrders{},
	}
	f.store.PutAsset(models.Asset{ID: "asset-1", OwnerID: "lister-1", Title: "Royal Enfield", PerDayRate: 500, Available: true})
	f.store.PutAsset(models.Asset{ID: "asset-2", OwnerID: "lister-2", Title: "Activa", PerDayRate: 100, Available: true})
	f.store.PutAsset(models.Asset{ID: "asset-free", OwnerID: "lister-1", Title: "Bicycle", PerDayRate: 0, Available: true})
	f.store.PutAsset(models.Asset{ID: "asset-off", OwnerID: "lister-1", Title: "In service", PerDayRate: 300, Available: false})

	f.gateway = gateway.NewWithOrders(gateway.Config{
		KeyID:         "rzp_test_key",
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		Currency:      "INR",
		Timeout:       time.Second,
	}, f.orders)
	f.catalog = NewAssetCatalog(f.store, f.cache, time.Minute)
	f.bookings = NewBookingService(f.store, f.catalog, f.events, hideForeign)
	f.payments = NewPaymentService(f.store, f.gateway, f.cache, f.events, time.Hour)
	return f
}

// book creates a three day booking of asset-1 for renter
func (f *fixture) book(t *testing.T, renter string) *models.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), renter, &CreateBookingRequest{
		AssetID:   "asset-1",
		StartDate: "2026-05-01",
		EndDate:   "2026-05-04",
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) verifyRequest(bookingID, orderID, paymentID string) *VerifyPaymentRequest {
	return &VerifyPaymentRequest{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: gateway.Sign(keySecret, orderID, paymentID),
		BookingID: bookingID,
	}
}
