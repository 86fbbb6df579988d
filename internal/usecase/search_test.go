package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockBoard/internal/domain/models"
	"StockBoard/pkg/cache"
)

type fakeSearcher struct {
	calls   atomic.Int32
	queries sync.Map
	gate    chan struct{}
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	f.calls.Add(1)
	f.queries.Store(query, true)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if query == "ZZZZ" {
		return nil, nil
	}
	return []models.SymbolMatch{
		{Symbol: "AAPL", Name: "Apple Inc", Type: "Equity", Region: "United States", Currency: "USD", MatchScore: 0.8},
		{Symbol: "AAP", Name: "Advance Auto Parts", Type: "Equity", Region: "United States", Currency: "USD", MatchScore: 1},
	}, nil
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	src := &fakeSearcher{}
	s := NewSearchService(src)
	ctx := context.Background()

	lower, err := s.Search(ctx, "aap")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	upper, err := s.Search(ctx, " AAP ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(lower) != len(upper) || lower[0] != upper[0] {
		t.Fatalf("results differ: %+v vs %+v", lower, upper)
	}
	if _, ok := src.queries.Load("AAP"); !ok {
		t.Fatalf("upstream should see the normalised query")
	}
}

func TestSearchCoalescesConcurrentQueries(t *testing.T) {
	src := &fakeSearcher{gate: make(chan struct{})}
	s := NewSearchService(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]models.SymbolMatch, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := "aap"
			if i%2 == 0 {
				q = "AAP"
			}
			results[i], _ = s.Search(ctx, q)
		}(i)
	}

	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
	for i, r := range results {
		if len(r) != 2 || r[0].Symbol != "AAPL" {
			t.Fatalf("result %d differs: %+v", i, r)
		}
	}
}

func TestSearchCachesResults(t *testing.T) {
	src := &fakeSearcher{}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	s := NewSearchService(src, WithSearchCache(mem, time.Minute))
	ctx := context.Background()

	_, _ = s.Search(ctx, "AAP")
	got, err := s.Search(ctx, "aap")
	if err != nil || len(got) != 2 {
		t.Fatalf("cached search: %+v %v", got, err)
	}
	if src.calls.Load() != 1 {
		t.Fatalf("expected cached second call, got %d upstream calls", src.calls.Load())
	}
}

func TestSearchEmptyAndErrors(t *testing.T) {
	src := &fakeSearcher{}
	s := NewSearchService(src)
	ctx := context.Background()

	got, err := s.Search(ctx, "zzzz")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("no matches should be an empty list, got %+v %v", got, err)
	}
	if _, err := s.Search(ctx, "  "); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("blank query: %v", err)
	}

	src.err = models.ErrRateLimited
	if _, err := s.Search(ctx, "MSFT"); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("upstream failure should surface, got %v", err)
	}
}
