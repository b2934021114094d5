package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetCachedAsset returns the cached asset snapshot, nil on a cache miss
func (c *Client) GetCachedAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	var asset models.Asset
	found, err := c.getJSON(ctx, fmt.Sprintf("asset:%s", assetID), &asset)
	if err != nil || !found {
		return nil, err
	}
	return &asset, nil
}

// CacheAsset stores an asset snapshot with TTL
func (c *Client) CacheAsset(ctx context.Context, asset *models.Asset, ttl time.Duration) error {
	return c.setJSON(ctx, fmt.Sprintf("asset:%s", asset.ID), asset, ttl)
}

// GetCachedOrder returns the order created earlier for an idempotency key,
// nil when none was recorded
func (c *Client) GetCachedOrder(ctx context.Context, key string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	found, err := c.getJSON(ctx, fmt.Sprintf("idempotency:order:%s", key), &order)
	if err != nil || !found {
		return nil, err
	}
	return &order, nil
}

// CacheOrder records the order created for an idempotency key
func (c *Client) CacheOrder(ctx context.Context, key string, order *models.PaymentOrder, ttl time.Duration) error {
	return c.setJSON(ctx, fmt.Sprintf("idempotency:order:%s", key), order, ttl)
}

// AcquireLock acquires a distributed lock. The returned token must be passed
// to ReleaseLock.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// ReleaseLock releases a distributed lock if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}
