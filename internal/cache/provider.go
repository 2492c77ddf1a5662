// Package cache provides short-lived shared state: order submission
// idempotency markers and recovered-checkout lookups.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Provider is the shared key/value contract with TTL semantics.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// SubmitKey marks a cart as already submitted so a double-post of the
// review form cannot create a second order.
func SubmitKey(cartID string) string {
	return fmt.Sprintf("order_submit:%s", cartID)
}

// CheckoutKey caches the cart id a checkout identifier resolved to.
func CheckoutKey(checkoutID string) string {
	return fmt.Sprintf("checkout_recover:%s", checkoutID)
}
