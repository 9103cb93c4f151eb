package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps the durable session storage: one serialized cart per
// user, plus the small checkout handoff keys. Writes are last-write-
// wins; two concurrent sessions for the same user are not coordinated.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client. ttl bounds how long an
// abandoned cart and its checkout context survive.
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
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

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func checkoutKey(userID string) string {
	return fmt.Sprintf("checkout:%s", userID)
}

func trackingKey(userID string) string {
	return fmt.Sprintf("tracking:%s", userID)
}

// SaveCart stores the full serialized cart under the user's cart key
func (c *Client) SaveCart(ctx context.Context, userID string, data []byte) error {
	return c.rdb.Set(ctx, cartKey(userID), data, c.ttl).Err()
}

// LoadCart returns the serialized cart, or (nil, nil) when absent
func (c *Client) LoadCart(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, cartKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteCart removes the persisted cart
func (c *Client) DeleteCart(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, cartKey(userID)).Err()
}

// SaveCheckoutContext stores the serialized checkout handoff state
func (c *Client) SaveCheckoutContext(ctx context.Context, userID string, data []byte) error {
	return c.rdb.Set(ctx, checkoutKey(userID), data, c.ttl).Err()
}

// LoadCheckoutContext returns the serialized checkout context, or
// (nil, nil) when absent
func (c *Client) LoadCheckoutContext(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, checkoutKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteCheckoutContext removes the checkout handoff state
func (c *Client) DeleteCheckoutContext(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, checkoutKey(userID)).Err()
}

// SaveTrackingSnapshot caches the last known tracking state for the
// user's most recent order
func (c *Client) SaveTrackingSnapshot(ctx context.Context, userID string, data []byte) error {
	return c.rdb.Set(ctx, trackingKey(userID), data, c.ttl).Err()
}

// LoadTrackingSnapshot returns the cached tracking state, or
// (nil, nil) when absent
func (c *Client) LoadTrackingSnapshot(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, trackingKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
