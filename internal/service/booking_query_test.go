package service

import (
	"context"
	"testing"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func principal(id, role string) *models.Principal {
	return &models.Principal{ID: id, Role: role}
}

func TestGetAccessMatrix(t *testing.T) {
	f := newFixture(t, false)
	b := f.book(t, "taker-1")

	cases := []struct {
		name string
		p    *models.Principal
		kind apperr.Kind
	}{
		{"owning taker", principal("taker-1", models.RoleTaker), apperr.KindInternal},
		{"other taker", principal("taker-2", models.RoleTaker), apperr.KindForbidden},
		{"asset owner", principal("lister-1", models.RoleLister), apperr.KindInternal},
		{"other lister", principal("lister-2", models.RoleLister), apperr.KindForbidden},
		{"admin", principal("admin-1", models.RoleAdmin), apperr.KindInternal},
		{"unknown role", principal("x", "guest"), apperr.KindForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.bookings.Get(context.Background(), tc.p, b.ID)
			if tc.kind == apperr.KindInternal {
				require.NoError(t, err)
				assert.Equal(t, b.ID, got.ID)
				require.NotNil(t, got.Asset)
				assert.Equal(t, "Royal Enfield", got.Asset.Title)
				return
			}
			assert.Nil(t, got)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
}

func TestGetHidesForeignBookings(t *testing.T) {
	f := newFixture(t, true)
	b := f.book(t, "taker-1")

	_, err := f.bookings.Get(context.Background(), principal("taker-2", models.RoleTaker), b.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.bookings.Get(context.Background(), principal("lister-2", models.RoleLister), b.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetMissingBooking(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.bookings.Get(context.Background(), principal("admin-1", models.RoleAdmin), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetListerWithoutAsset(t *testing.T) {
	f := newFixture(t, false)
	b, err := f.bookings.Create(context.Background(), "taker-1", &CreateBookingRequest{
		AssetID: "asset-2", StartDate: "2026-05-01", EndDate: "2026-05-02",
	})
	require.NoError(t, err)

	f.store.DeleteAsset("asset-2")
	f.cache.Fail = true

	_, err = f.bookings.Get(context.Background(), principal("lister-2", models.RoleLister), b.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestListMine(t *testing.T) {
	f := newFixture(t, false)
	first := f.book(t, "taker-1")
	second := f.book(t, "taker-1")
	f.book(t, "taker-2")

	list, err := f.bookings.ListMine(context.Background(), "taker-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	for _, b := range list {
		require.NotNil(t, b.Asset)
		assert.Equal(t, "asset-1", b.Asset.ID)
	}

	empty, err := f.bookings.ListMine(context.Background(), "taker-3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListForOwnerAssets(t *testing.T) {
	f := newFixture(t, false)
	mine := f.book(t, "taker-1")
	_, err := f.bookings.Create(context.Background(), "taker-2", &CreateBookingRequest{
		AssetID: "asset-2", StartDate: "2026-05-01", EndDate: "2026-05-02",
	})
	require.NoError(t, err)

	list, err := f.bookings.ListForOwnerAssets(context.Background(), "lister-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
	assert.Equal(t, "lister-1", list[0].Asset.OwnerID)

	none, err := f.bookings.ListForOwnerAssets(context.Background(), "lister-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetReviewable(t *testing.T) {
	f := newFixture(t, false)
	b := f.book(t, "taker-1")

	_, err := f.bookings.GetReviewable(context.Background(), b.ID, "taker-1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.payments.Verify(context.Background(), "taker-1", f.verifyRequest(b.ID, "order_1", "pay_1"))
	require.NoError(t, err)

	got, err := f.bookings.GetReviewable(context.Background(), b.ID, "taker-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)

	_, err = f.bookings.GetReviewable(context.Background(), b.ID, "taker-2")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBookingsPerDay(t *testing.T) {
	f := newFixture(t, false)
	a := f.book(t, "taker-1")
	b := f.book(t, "taker-1")
	c := f.book(t, "taker-2")

	f.store.SetCreatedAt(a.ID, time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC))
	f.store.SetCreatedAt(b.ID, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	f.store.SetCreatedAt(c.ID, time.Date(2026, 4, 2, 23, 0, 0, 0, time.UTC))

	rows, err := f.bookings.BookingsPerDay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.DailyCount{
		{Day: "2026-04-01", Count: 1},
		{Day: "2026-04-02", Count: 2},
	}, rows)
}
