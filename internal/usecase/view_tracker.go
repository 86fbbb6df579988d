package usecase

import (
	"sort"
	"sync"
	"time"

	"StockBoard/internal/domain/models"
)

// ViewTracker remembers which symbols readers asked for recently so the
// scheduler keeps them warm.
type ViewTracker struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewViewTracker(window time.Duration) *ViewTracker {
	return &ViewTracker{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// Touch records a view of symbol.
func (v *ViewTracker) Touch(symbol string) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return
	}
	v.mu.Lock()
	v.seen[symbol] = v.now()
	v.mu.Unlock()
}

// Recent returns symbols viewed within the window, sorted. Older entries are dropped.
func (v *ViewTracker) Recent() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	cutoff := v.now().Add(-v.window)
	out := make([]string, 0, len(v.seen))
	for sym, at := range v.seen {
		if at.Before(cutoff) {
			delete(v.seen, sym)
			continue
		}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
