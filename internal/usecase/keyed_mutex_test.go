package usecase

import (
	"fmt"
	"sync"
	"testing"
)

func TestKeyedMutexReleasesIdleKeys(t *testing.T) {
	k := newKeyedMutex()
	for i := 0; i < 50; i++ {
		unlock := k.Lock(fmt.Sprintf("SYM%d", i))
		unlock()
	}
	if n := k.len(); n != 0 {
		t.Fatalf("expected no idle entries, have %d", n)
	}
}

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("AAPL")
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("two holders of the same key at once: %d", maxSeen)
	}
	if n := k.len(); n != 0 {
		t.Fatalf("entry leaked after contention: %d", n)
	}
}
