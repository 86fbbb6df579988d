package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	"StockBoard/pkg/cache"
	applogger "StockBoard/pkg/logger"
	"StockBoard/pkg/metrics"
)

const quoteMirrorPrefix = "quote"

// QuoteCacheOption configures QuoteCache.
type QuoteCacheOption func(*QuoteCache)

// WithQuoteTimeout bounds each upstream quote call.
func WithQuoteTimeout(d time.Duration) QuoteCacheOption {
	return func(c *QuoteCache) { c.timeout = d }
}

// WithQuoteMirror writes every refreshed quote to svc and reads it back on a
// cold miss while the upstream is down.
func WithQuoteMirror(svc cache.Service, ttl time.Duration) QuoteCacheOption {
	return func(c *QuoteCache) {
		c.mirror = svc
		c.mirrorTTL = ttl
	}
}

func WithQuoteMetrics(m domrepo.Metrics) QuoteCacheOption {
	return func(c *QuoteCache) { c.metrics = m }
}

func WithQuoteLogger(l *applogger.Logger) QuoteCacheOption {
	return func(c *QuoteCache) { c.log = l }
}

func withQuoteClock(now func() time.Time) QuoteCacheOption {
	return func(c *QuoteCache) { c.now = now }
}

// quoteEntry holds one symbol's latest quote. Readers load the pointer
// without locking; refreshes serialise on mu and swap the pointer.
type quoteEntry struct {
	mu  sync.Mutex
	cur atomic.Pointer[models.Quote]
}

// QuoteCache keeps the latest quote per symbol and refreshes it from the upstream on demand.
type QuoteCache struct {
	source    domrepo.QuoteSource
	freshness time.Duration
	timeout   time.Duration
	mirror    cache.Service
	mirrorTTL time.Duration
	metrics   domrepo.Metrics
	log       *applogger.Logger
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]*quoteEntry
}

func NewQuoteCache(source domrepo.QuoteSource, freshness time.Duration, opts ...QuoteCacheOption) *QuoteCache {
	c := &QuoteCache{
		source:    source,
		freshness: freshness,
		timeout:   10 * time.Second,
		metrics:   metrics.Nop{},
		log:       applogger.Nop(),
		now:       time.Now,
		entries:   make(map[string]*quoteEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a fresh quote from memory, or refreshes it. When the refresh
// fails and an older quote exists, that quote is returned with Stale set.
func (c *QuoteCache) Get(ctx context.Context, symbol string) (models.QuoteResult, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.QuoteResult{}, fmt.Errorf("empty symbol: %w", models.ErrInvalidInput)
	}

	e := c.entry(symbol)
	if q := e.cur.Load(); q != nil && c.fresh(*q) {
		return models.QuoteResult{Quote: *q}, nil
	}

	q, err := c.refresh(ctx, symbol, e)
	if err == nil {
		return models.QuoteResult{Quote: q}, nil
	}

	if cur := e.cur.Load(); cur != nil {
		c.log.Warn("quote cache: serving stale quote",
			applogger.String("symbol", symbol),
			applogger.Duration("age_ms", cur.Age(c.now())),
			applogger.Error(err),
		)
		return models.QuoteResult{Quote: *cur, Stale: true}, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		c.forget(symbol, e)
		return models.QuoteResult{}, err
	}

	if lkg, ok := c.fromMirror(ctx, symbol); ok {
		c.store(e, lkg)
		c.log.Warn("quote cache: serving mirrored quote",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.QuoteResult{Quote: lkg, Stale: true}, nil
	}
	c.forget(symbol, e)
	return models.QuoteResult{}, err
}

// Refresh fetches symbol from the upstream and replaces the cached entry.
func (c *QuoteCache) Refresh(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Quote{}, fmt.Errorf("empty symbol: %w", models.ErrInvalidInput)
	}
	e := c.entry(symbol)
	q, err := c.refresh(ctx, symbol, e)
	if err != nil {
		c.forget(symbol, e)
	}
	return q, err
}

// Peek returns the cached quote without any network call.
func (c *QuoteCache) Peek(symbol string) (models.Quote, bool) {
	symbol = models.NormalizeSymbol(symbol)
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok {
		return models.Quote{}, false
	}
	q := e.cur.Load()
	if q == nil {
		return models.Quote{}, false
	}
	return *q, true
}

// Usable reports whether q is recent enough to evaluate alerts against:
// younger than twice the freshness window.
func (c *QuoteCache) Usable(q models.Quote, now time.Time) bool {
	return q.Age(now) < 2*c.freshness
}

func (c *QuoteCache) fresh(q models.Quote) bool {
	return q.Age(c.now()) < c.freshness
}

func (c *QuoteCache) entry(symbol string) *quoteEntry {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[symbol]; !ok {
		e = &quoteEntry{}
		c.entries[symbol] = e
	}
	return e
}

// forget drops e when it never held a quote, so failed lookups of unknown
// symbols do not accumulate. An entry with a refresh in flight is kept.
func (c *QuoteCache) forget(symbol string, e *quoteEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[symbol] != e || !e.mu.TryLock() {
		return
	}
	if e.cur.Load() == nil {
		delete(c.entries, symbol)
	}
	e.mu.Unlock()
}

func (c *QuoteCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QuoteCache) refresh(ctx context.Context, symbol string, e *quoteEntry) (models.Quote, error) {
	requested := c.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	// someone else refreshed while we waited for the lock
	if cur := e.cur.Load(); cur != nil && cur.FetchedAt.After(requested) {
		return *cur, nil
	}

	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	q, err := c.source.FetchQuote(fctx, symbol)
	cancel()
	c.metrics.RecordLatency("quote_refresh", time.Since(start).Seconds())
	c.metrics.RecordRefresh(symbol, err == nil)
	if err != nil {
		c.metrics.RecordError("quote_refresh")
		return models.Quote{}, fmt.Errorf("refresh %s: %w", symbol, err)
	}

	q.Symbol = symbol
	q.FetchedAt = c.now()
	q = c.store(e, q)
	c.metrics.RecordLastPrice(symbol, q.Price)

	if c.mirror != nil {
		if err := c.mirror.Set(ctx, cache.GenerateKey(quoteMirrorPrefix, symbol), q, c.mirrorTTL); err != nil {
			c.log.Warn("quote cache: mirror write failed",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
	}
	return q, nil
}

// store swaps q in, never letting fetched_at move backwards.
func (c *QuoteCache) store(e *quoteEntry, q models.Quote) models.Quote {
	if prev := e.cur.Load(); prev != nil && q.FetchedAt.Before(prev.FetchedAt) {
		q.FetchedAt = prev.FetchedAt
	}
	e.cur.Store(&q)
	return q
}

func (c *QuoteCache) fromMirror(ctx context.Context, symbol string) (models.Quote, bool) {
	if c.mirror == nil {
		return models.Quote{}, false
	}
	var q models.Quote
	if err := c.mirror.Get(ctx, cache.GenerateKey(quoteMirrorPrefix, symbol), &q); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.log.Warn("quote cache: mirror read failed",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return models.Quote{}, false
	}
	return q, true
}
