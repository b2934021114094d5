// Package testutil provides in-memory stand-ins for the Postgres store, the
// Redis client and the Kafka publisher. The store mirrors the conditional
// update semantics of the SQL queries under a single mutex.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/store"
)

// MemStore is an in-memory booking, asset and processed-event store
type MemStore struct {
	mu       sync.Mutex
	now      func() time.Time
	assets   map[string]models.Asset
	bookings map[string]models.Booking
	order    []string
	events   map[string]string
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		now:      func() time.Time { return time.Now().UTC() },
		assets:   map[string]models.Asset{},
		bookings: map[string]models.Booking{},
		events:   map[string]string{},
	}
}

// PutAsset adds or replaces an asset
func (m *MemStore) PutAsset(a models.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now()
	}
	m.assets[a.ID] = a
}

// DeleteAsset removes an asset, leaving its bookings dangling
func (m *MemStore) DeleteAsset(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assets, id)
}

// BookingCount returns the number of stored bookings
func (m *MemStore) BookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *MemStore) GetAssetByID(_ context.Context, id string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (m *MemStore) GetAssets(_ context.Context) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) GetAssetsByIDs(_ context.Context, ids []string) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Asset{}
	for _, id := range ids {
		if a, ok := m.assets[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemStore) CreateBooking(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bookings[b.ID]; ok {
		return store.ErrDuplicate
	}
	if b.IdempotencyKey != nil {
		for _, existing := range m.bookings {
			if existing.UserID == b.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *b.IdempotencyKey {
				return store.ErrDuplicate
			}
		}
	}

	now := m.now()
	b.CreatedAt, b.UpdatedAt = now, now
	m.bookings[b.ID] = clone(*b)
	m.order = append(m.order, b.ID)
	return nil
}

func (m *MemStore) GetBookingByID(_ context.Context, id string) (*models.Booking, error) {
	return m.find(func(b *models.Booking) bool { return b.ID == id })
}

func (m *MemStore) GetBookingForUser(_ context.Context, id, userID string) (*models.Booking, error) {
	return m.find(func(b *models.Booking) bool { return b.ID == id && b.UserID == userID })
}

func (m *MemStore) GetBookingByOrderID(_ context.Context, orderID string) (*models.Booking, error) {
	return m.find(func(b *models.Booking) bool { return b.OrderID != nil && *b.OrderID == orderID })
}

func (m *MemStore) GetConfirmedBooking(_ context.Context, id, userID string) (*models.Booking, error) {
	return m.find(func(b *models.Booking) bool {
		return b.ID == id && b.UserID == userID && b.Status == models.BookingStatusConfirmed
	})
}

func (m *MemStore) GetBookingByIdempotencyKey(_ context.Context, userID, key string) (*models.Booking, error) {
	b, err := m.find(func(b *models.Booking) bool {
		return b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key
	})
	if err == store.ErrNotFound {
		return nil, nil
	}
	return b, err
}

func (m *MemStore) ListBookingsByUser(_ context.Context, userID string) ([]models.Booking, error) {
	return m.list(func(b *models.Booking) bool { return b.UserID == userID }), nil
}

func (m *MemStore) ListBookingsForOwner(_ context.Context, ownerID string) ([]models.Booking, error) {
	m.mu.Lock()
	owned := map[string]bool{}
	for id, a := range m.assets {
		owned[id] = a.OwnerID == ownerID
	}
	m.mu.Unlock()
	return m.list(func(b *models.Booking) bool { return owned[b.AssetID] }), nil
}

func (m *MemStore) UpdateStatusIf(_ context.Context, id, userID string, from []string, to string) (*models.Booking, error) {
	return m.update(func(b *models.Booking) bool {
		return b.ID == id && b.UserID == userID && in(b.Status, from)
	}, func(b *models.Booking) { b.Status = to })
}

func (m *MemStore) UpdateStatusByOrderIf(_ context.Context, orderID string, from []string, to string) (*models.Booking, error) {
	return m.update(func(b *models.Booking) bool {
		return b.OrderID != nil && *b.OrderID == orderID && in(b.Status, from)
	}, func(b *models.Booking) { b.Status = to })
}

func (m *MemStore) AttachOrder(_ context.Context, id, userID, orderID string, from []string) (*models.Booking, error) {
	if m.orderTaken(id, orderID) {
		return nil, store.ErrDuplicate
	}
	return m.update(func(b *models.Booking) bool {
		return b.ID == id && b.UserID == userID && in(b.Status, from)
	}, func(b *models.Booking) { b.OrderID = &orderID })
}

func (m *MemStore) ConfirmBooking(_ context.Context, id, userID, orderID, paymentID string, from []string) (*models.Booking, error) {
	if m.orderTaken(id, orderID) {
		return nil, store.ErrDuplicate
	}
	return m.update(func(b *models.Booking) bool {
		return b.ID == id && b.UserID == userID && in(b.Status, from) &&
			(b.OrderID == nil || *b.OrderID == orderID)
	}, func(b *models.Booking) {
		b.Status = models.BookingStatusConfirmed
		b.OrderID = &orderID
		b.PaymentID = &paymentID
	})
}

func (m *MemStore) ConfirmBookingByOrder(_ context.Context, orderID, paymentID string, from []string) (*models.Booking, error) {
	return m.update(func(b *models.Booking) bool {
		return b.OrderID != nil && *b.OrderID == orderID && in(b.Status, from)
	}, func(b *models.Booking) {
		b.Status = models.BookingStatusConfirmed
		if paymentID != "" {
			b.PaymentID = &paymentID
		}
	})
}

func (m *MemStore) CountBookingsPerDay(_ context.Context) ([]models.DailyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, b := range m.bookings {
		counts[b.CreatedAt.UTC().Format("2006-01-02")]++
	}
	rows := make([]models.DailyCount, 0, len(counts))
	for day, n := range counts {
		rows = append(rows, models.DailyCount{Day: day, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })
	return rows, nil
}

func (m *MemStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *MemStore) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[eventID]; !ok {
		m.events[eventID] = eventType
	}
	return nil
}

// SetCreatedAt backdates a booking, for report tests
func (m *MemStore) SetCreatedAt(id string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		b.CreatedAt = t
		m.bookings[id] = b
	}
}

func (m *MemStore) find(match func(*models.Booking) bool) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		b := m.bookings[id]
		if match(&b) {
			c := clone(b)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// list returns matches newest first, like the SQL ORDER BY created_at DESC
func (m *MemStore) list(match func(*models.Booking) bool) []models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for i := len(m.order) - 1; i >= 0; i-- {
		b := m.bookings[m.order[i]]
		if match(&b) {
			out = append(out, clone(b))
		}
	}
	return out
}

func (m *MemStore) update(match func(*models.Booking) bool, apply func(*models.Booking)) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		b := clone(m.bookings[id])
		if !match(&b) {
			continue
		}
		apply(&b)
		b.UpdatedAt = m.now()
		m.bookings[id] = b
		c := clone(b)
		return &c, nil
	}
	return nil, store.ErrNotFound
}

// orderTaken mirrors the partial unique index on bookings.order_id
func (m *MemStore) orderTaken(bookingID, orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.bookings {
		if id != bookingID && b.OrderID != nil && *b.OrderID == orderID {
			return true
		}
	}
	return false
}

func clone(b models.Booking) models.Booking {
	if b.OrderID != nil {
		v := *b.OrderID
		b.OrderID = &v
	}
	if b.PaymentID != nil {
		v := *b.PaymentID
		b.PaymentID = &v
	}
	if b.IdempotencyKey != nil {
		v := *b.IdempotencyKey
		b.IdempotencyKey = &v
	}
	b.Asset = nil
	return b
}

func in(s string, set []string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
