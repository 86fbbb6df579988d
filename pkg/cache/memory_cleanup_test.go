package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheCleanupSweepsExpired(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(5 * time.Millisecond))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "short", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mc.Set(ctx, "long", "v", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mc.mutex.Lock()
		n := len(mc.data)
		mc.mutex.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expired entry was never swept")
}

func TestMemoryCacheHealth(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	if err := mc.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
