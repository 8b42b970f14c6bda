//go:build integration

package cache

import (
	"context"
	"testing"
	"time"
)

// Requires a local Redis: docker run --rm -p 6379:6379 redis
func TestRedisCacheIntegration(t *testing.T) {
	ctx := context.Background()

	c, err := NewRedisCache(ctx, "localhost:6379", "", 0)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer c.Close()

	key := "qpermute-test:" + time.Now().Format("150405.000")
	defer c.Delete(ctx, key)

	// Miss before Set
	_, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Fatal("Get should miss before Set")
	}

	// Round trip with TTL
	if err := c.Set(ctx, key, []byte("verdict"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit {
		t.Fatal("Get should hit after Set")
	}
	if string(data) != "verdict" {
		t.Errorf("Get data = %q, want verdict", data)
	}

	// Delete removes the entry
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("Get should miss after Delete")
	}
}
