// Package cache provides a small key/value cache used for provider lookups
// that change rarely, such as plan prices.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching services. Get returns "" and no
// error on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
