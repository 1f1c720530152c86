package cache

import (
	"context"
	"testing"
	"time"
)

func TestNewRedisCache_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := NewRedisCache(ctx, RedisConfig{Address: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, nil)
	if err == nil {
		_ = c.Close()
		t.Fatal("NewRedisCache() expected an error for an unreachable server")
	}
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	r := &RedisCache{prefix: "flacroncv:"}
	if got := r.key("plan-price:p1"); got != "flacroncv:plan-price:p1" {
		t.Errorf("key() = %q", got)
	}
}
