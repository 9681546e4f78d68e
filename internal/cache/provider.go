package cache

// Package cache provides caching functionality for webhook delivery dedup.

import (
	"context"
	"fmt"
	"time"
)

// Provider defines the interface for caching processed webhook deliveries.
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

// WebhookKey identifies one logical webhook delivery. Gateways do not send a
// delivery ID, so the key is the order reference plus the raw gateway status:
// a retry of the same outcome hits the cache, a different outcome does not.
func WebhookKey(gateway, orderID, rawStatus string) string {
	return fmt.Sprintf("webhook:%s:%s:%s", gateway, orderID, rawStatus)
}
