package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesAndRefills(t *testing.T) {
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !l.Allow("av", 2, 1) {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if l.Allow("av", 2, 1) {
		t.Fatalf("bucket should be empty")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("av", 2, 1) {
		t.Fatalf("expected refill after 1.5s")
	}
	if l.Allow("av", 2, 1) {
		t.Fatalf("only one token should have been refilled")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) || !l.Allow("b", 1, 0) {
		t.Fatalf("separate keys must have separate budgets")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("key a exhausted")
	}
}
