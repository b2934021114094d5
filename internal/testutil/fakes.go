package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"booking-service/internal/models"

	"github.com/google/uuid"
)

// MemCache stands in for the Redis client
type MemCache struct {
	mu     sync.Mutex
	assets map[string]models.Asset
	orders map[string]models.PaymentOrder
	locks  map[string]string

	// Fail makes every call return an error, as if Redis were down
	Fail bool
}

// NewMemCache creates an empty cache
func NewMemCache() *MemCache {
	return &MemCache{
		assets: map[string]models.Asset{},
		orders: map[string]models.PaymentOrder{},
		locks:  map[string]string{},
	}
}

var errCacheDown = errors.New("cache unavailable")

func (c *MemCache) GetCachedAsset(_ context.Context, id string) (*models.Asset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return nil, errCacheDown
	}
	a, ok := c.assets[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (c *MemCache) CacheAsset(_ context.Context, a *models.Asset, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return errCacheDown
	}
	c.assets[a.ID] = *a
	return nil
}

func (c *MemCache) GetCachedOrder(_ context.Context, key string) (*models.PaymentOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return nil, errCacheDown
	}
	o, ok := c.orders[key]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (c *MemCache) CacheOrder(_ context.Context, key string, o *models.PaymentOrder, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return errCacheDown
	}
	c.orders[key] = *o
	return nil
}

func (c *MemCache) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return "", false, errCacheDown
	}
	if _, held := c.locks[key]; held {
		return "", false, nil
	}
	token := uuid.New().String()
	c.locks[key] = token
	return token, true, nil
}

func (c *MemCache) ReleaseLock(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == token {
		delete(c.locks, key)
	}
	return nil
}

// HoldLock marks key as locked by someone else
func (c *MemCache) HoldLock(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locks[key] = "other"
}

// Recorder captures published events
type Recorder struct {
	mu       sync.Mutex
	Bookings []*models.BookingEvent
	Payments []*models.PaymentEvent
	Err      error
}

func (r *Recorder) PublishBookingEvent(_ context.Context, e *models.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Bookings = append(r.Bookings, e)
	return r.Err
}

func (r *Recorder) PublishPaymentEvent(_ context.Context, e *models.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Payments = append(r.Payments, e)
	return nil
}

// BookingEventTypes lists the types of the recorded booking events in order
func (r *Recorder) BookingEventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Bookings))
	for i, e := range r.Bookings {
		out[i] = e.EventType
	}
	return out
}

// FakeOrders stands in for the Razorpay orders resource. Each call returns a
// new order echoing the requested amount, currency and receipt. Currency,
// when set, replaces the requested one in the response.
type FakeOrders struct {
	mu       sync.Mutex
	Calls    int
	Err      error
	Currency string
}

func (f *FakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	amount, _ := data["amount"].(int64)
	currency := data["currency"]
	if f.Currency != "" {
		currency = f.Currency
	}
	return map[string]interface{}{
		"id":       "order_" + uuid.New().String()[:8],
		"amount":   float64(amount),
		"currency": currency,
		"receipt":  data["receipt"],
		"status":   "created",
	}, nil
}

// CallCount returns the number of Create calls
func (f *FakeOrders) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
