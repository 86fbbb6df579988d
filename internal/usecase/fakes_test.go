package usecase

import (
	"context"
	"sync"
	"time"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
)

// fakeClock is a manually advanced clock shared by components under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// fakeQuoteSource returns scripted prices or errors and counts calls.
type fakeQuoteSource struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
	calls  map[string]int
	delay  time.Duration
}

func newFakeQuoteSource() *fakeQuoteSource {
	return &fakeQuoteSource{prices: map[string]float64{}, calls: map[string]int{}}
}

func (f *fakeQuoteSource) set(symbol string, price float64) {
	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
}

func (f *fakeQuoteSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeQuoteSource) count(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func (f *fakeQuoteSource) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	f.mu.Lock()
	f.calls[symbol]++
	price, ok := f.prices[symbol]
	err, delay := f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return models.Quote{}, ctx.Err()
		}
	}
	if err != nil {
		return models.Quote{}, err
	}
	if !ok {
		return models.Quote{}, models.ErrNotFound
	}
	return models.Quote{Symbol: symbol, Price: price, PreviousClose: price - 1, Change: 1}, nil
}

// fakeHistorySource serves a fixed set of daily bars.
type fakeHistorySource struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	err   error
	calls int
	sizes []domrepo.OutputSize
}

func newFakeHistorySource() *fakeHistorySource {
	return &fakeHistorySource{bars: map[string][]models.Bar{}}
}

func (f *fakeHistorySource) FetchDailyBars(_ context.Context, symbol string, size domrepo.OutputSize) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.sizes = append(f.sizes, size)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Bar, len(f.bars[symbol]))
	copy(out, f.bars[symbol])
	return out, nil
}

// memBarStore is an in-memory BarStore.
type memBarStore struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	saved int
}

func newMemBarStore() *memBarStore { return &memBarStore{bars: map[string][]models.Bar{}} }

func (s *memBarStore) Load(_ context.Context, symbol string) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Bar(nil), s.bars[symbol]...), nil
}

func (s *memBarStore) Save(_ context.Context, bars []models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bars {
		s.bars[b.Symbol] = append(s.bars[b.Symbol], b)
	}
	s.saved += len(bars)
	return nil
}

func (s *memBarStore) Close() error { return nil }

// capturePublisher records published alert events.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.AlertTriggeredEvent
}

func (p *capturePublisher) PublishAlertTriggered(_ context.Context, ev models.AlertTriggeredEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(symbol, date string, o, h, l, c float64, v int64) models.Bar {
	return models.Bar{Symbol: symbol, Date: day(date), Open: o, High: h, Low: l, Close: c, Volume: v}
}

// memAlertStore is an in-memory AlertStore.
type memAlertStore struct {
	mu     sync.Mutex
	rules  map[int64]models.AlertRule
	lastID int64
	err    error
}

func newMemAlertStore() *memAlertStore { return &memAlertStore{rules: map[int64]models.AlertRule{}} }

func (s *memAlertStore) LoadAlerts(context.Context) ([]models.AlertRule, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	return out, s.lastID, nil
}

func (s *memAlertStore) SaveAlert(_ context.Context, r models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rules[r.ID] = r
	s.lastID = max(s.lastID, r.ID)
	return nil
}

func (s *memAlertStore) DeleteAlert(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)
	return s.err
}

// memWatchlistStore is an in-memory WatchlistStore.
type memWatchlistStore struct {
	mu    sync.Mutex
	lists map[int64]models.Watchlist
	seq   domrepo.WatchlistSequence
}

func newMemWatchlistStore() *memWatchlistStore {
	return &memWatchlistStore{lists: map[int64]models.Watchlist{}}
}

func (s *memWatchlistStore) LoadWatchlists(context.Context) ([]models.Watchlist, domrepo.WatchlistSequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Watchlist, 0, len(s.lists))
	for _, w := range s.lists {
		out = append(out, w)
	}
	return out, s.seq, nil
}

func (s *memWatchlistStore) SaveWatchlist(_ context.Context, w models.Watchlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[w.ID] = w
	s.seq.LastListID = max(s.seq.LastListID, w.ID)
	for _, it := range w.Items {
		s.seq.LastItemID = max(s.seq.LastItemID, it.ID)
	}
	return nil
}

func (s *memWatchlistStore) DeleteWatchlist(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, id)
	return nil
}
