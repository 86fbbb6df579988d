package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	applogger "StockBoard/pkg/logger"
	"StockBoard/pkg/util"
)

// Series is a most-recent-first slice of bars for one symbol and interval.
type Series struct {
	Symbol   string
	Interval domrepo.Interval
	Stale    bool
	Bars     []models.AggregateBar
}

// SeriesStoreOption configures SeriesStore.
type SeriesStoreOption func(*SeriesStore)

// WithBarStore loads bars from and writes new bars through to a durable store.
func WithBarStore(bs domrepo.BarStore) SeriesStoreOption {
	return func(s *SeriesStore) { s.durable = bs }
}

func WithSeriesLogger(l *applogger.Logger) SeriesStoreOption {
	return func(s *SeriesStore) { s.log = l }
}

func WithSeriesTimeout(d time.Duration) SeriesStoreOption {
	return func(s *SeriesStore) { s.timeout = d }
}

func withSeriesClock(now func() time.Time) SeriesStoreOption {
	return func(s *SeriesStore) { s.now = now }
}

// aggCache holds the closed buckets of one interval. boundary is the start
// of the first bucket not in closed; boundaryIdx is the index of the first
// daily bar dated at or after boundary.
type aggCache struct {
	closed      []models.AggregateBar
	boundary    time.Time
	boundaryIdx int
}

type seriesState struct {
	fetchMu sync.Mutex // one upstream fetch per symbol at a time

	mu          sync.RWMutex
	bars        []models.Bar // ascending by date, unique dates
	loaded      bool
	fetchedAt   time.Time
	fullFetched bool
	agg         map[domrepo.Interval]*aggCache
}

// SeriesStore keeps per-symbol daily bars and derives weekly/monthly buckets from them.
type SeriesStore struct {
	source          domrepo.HistorySource
	durable         domrepo.BarStore
	refreshInterval time.Duration
	timeout         time.Duration
	log             *applogger.Logger
	now             func() time.Time

	mu      sync.Mutex
	symbols map[string]*seriesState
}

func NewSeriesStore(source domrepo.HistorySource, refreshInterval time.Duration, opts ...SeriesStoreOption) *SeriesStore {
	s := &SeriesStore{
		source:          source,
		refreshInterval: refreshInterval,
		timeout:         15 * time.Second,
		log:             applogger.Nop(),
		now:             time.Now,
		symbols:         make(map[string]*seriesState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bars returns up to limit bars of the requested interval, most recent first.
func (s *SeriesStore) Bars(ctx context.Context, symbol string, interval domrepo.Interval, limit int) (Series, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return Series{}, fmt.Errorf("empty symbol: %w", models.ErrInvalidInput)
	}
	if !domrepo.IsValidInterval(interval) {
		return Series{}, fmt.Errorf("interval %q: %w", interval, models.ErrInvalidInput)
	}
	if limit <= 0 {
		return Series{}, fmt.Errorf("limit %d: %w", limit, models.ErrInvalidInput)
	}

	st := s.state(symbol)
	out := Series{Symbol: symbol, Interval: interval}

	if err := s.ensureFresh(ctx, symbol, st, requiredDays(interval, limit)); err != nil {
		st.mu.RLock()
		empty := len(st.bars) == 0
		st.mu.RUnlock()
		if empty {
			s.forget(symbol, st)
			return Series{}, err
		}
		s.log.Warn("series store: serving stored bars",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		out.Stale = true
	}

	var all []models.AggregateBar
	if interval == domrepo.IntervalDaily {
		st.mu.RLock()
		all = make([]models.AggregateBar, 0, min(limit, len(st.bars)))
		for i := len(st.bars) - 1; i >= 0 && len(all) < limit; i-- {
			all = append(all, models.AggregateBar{Bar: st.bars[i], Bars: 1})
		}
		st.mu.RUnlock()
		out.Bars = all
		return out, nil
	}

	st.mu.Lock()
	all = s.aggregate(st, interval)
	st.mu.Unlock()

	n := min(limit, len(all))
	out.Bars = make([]models.AggregateBar, 0, n)
	for i := len(all) - 1; i >= 0 && len(out.Bars) < n; i-- {
		out.Bars = append(out.Bars, all[i])
	}
	return out, nil
}

// Ingest merges bars into the stored series and writes the new ones through
// to the durable store. It returns how many bars were added.
func (s *SeriesStore) Ingest(ctx context.Context, symbol string, bars []models.Bar) int {
	symbol = models.NormalizeSymbol(symbol)
	added := s.merge(s.state(symbol), symbol, bars)
	s.persist(ctx, symbol, added)
	return len(added)
}

func (s *SeriesStore) state(symbol string) *seriesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.symbols[symbol]
	if !ok {
		st = &seriesState{agg: make(map[domrepo.Interval]*aggCache)}
		s.symbols[symbol] = st
	}
	return st
}

// forget drops st when it holds no bars and no fetch is in flight.
func (s *SeriesStore) forget(symbol string, st *seriesState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbols[symbol] != st || !st.fetchMu.TryLock() {
		return
	}
	st.mu.RLock()
	empty := len(st.bars) == 0
	st.mu.RUnlock()
	if empty {
		delete(s.symbols, symbol)
	}
	st.fetchMu.Unlock()
}

func (s *SeriesStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.symbols)
}

// ensureFresh loads durable bars on first use and re-fetches the upstream
// when the series is missing, old, or too short for the request.
func (s *SeriesStore) ensureFresh(ctx context.Context, symbol string, st *seriesState, needDays int) error {
	st.fetchMu.Lock()
	defer st.fetchMu.Unlock()

	st.mu.RLock()
	loaded := st.loaded
	st.mu.RUnlock()
	if !loaded && s.durable != nil {
		stored, err := s.durable.Load(ctx, symbol)
		if err != nil {
			s.log.Warn("series store: durable load failed",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		} else {
			s.merge(st, symbol, stored)
			st.mu.Lock()
			st.loaded = true
			st.mu.Unlock()
		}
	}

	st.mu.RLock()
	fetchedAt, fullFetched, have := st.fetchedAt, st.fullFetched, len(st.bars)
	st.mu.RUnlock()

	size := domrepo.OutputCompact
	needFull := needDays > domrepo.CompactDays && have < needDays && !fullFetched
	if needFull {
		size = domrepo.OutputFull
	}
	if !fetchedAt.IsZero() && s.now().Sub(fetchedAt) < s.refreshInterval && !needFull {
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	fetched, err := s.source.FetchDailyBars(fctx, symbol, size)
	if err != nil {
		return fmt.Errorf("fetch daily bars %s: %w", symbol, err)
	}

	added := s.merge(st, symbol, fetched)
	st.mu.Lock()
	if len(st.bars) == 0 {
		st.mu.Unlock()
		return fmt.Errorf("no daily bars for %s: %w", symbol, models.ErrNotFound)
	}
	st.fetchedAt = s.now()
	if size == domrepo.OutputFull {
		st.fullFetched = true
	}
	st.mu.Unlock()

	s.persist(ctx, symbol, added)
	return nil
}

// merge inserts bars whose dates are not yet stored and returns them.
// Existing bars are never replaced or reordered.
func (s *SeriesStore) merge(st *seriesState, symbol string, incoming []models.Bar) []models.Bar {
	if len(incoming) == 0 {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	have := make(map[time.Time]struct{}, len(st.bars)+len(incoming))
	for _, b := range st.bars {
		have[b.Date] = struct{}{}
	}

	var added []models.Bar
	for _, b := range incoming {
		b.Symbol = symbol
		b.Date = util.StartOfDay(b.Date)
		if _, dup := have[b.Date]; dup {
			continue
		}
		have[b.Date] = struct{}{}
		added = append(added, b)
	}
	if len(added) == 0 {
		return nil
	}

	earliest := added[0].Date
	for _, b := range added[1:] {
		if b.Date.Before(earliest) {
			earliest = b.Date
		}
	}

	st.bars = append(st.bars, added...)
	sort.SliceStable(st.bars, func(i, j int) bool { return st.bars[i].Date.Before(st.bars[j].Date) })

	for iv, c := range st.agg {
		bucket := bucketStart(iv, earliest)
		if bucket.Before(c.boundary) {
			// backfill inside the cached range: drop buckets from its bucket on
			keep := sort.Search(len(c.closed), func(i int) bool { return !c.closed[i].Date.Before(bucket) })
			c.closed = c.closed[:keep]
			c.boundary = bucket
		}
		c.boundaryIdx = sort.Search(len(st.bars), func(i int) bool { return !st.bars[i].Date.Before(c.boundary) })
	}
	return added
}

// aggregate returns every bucket of interval in ascending order. Closed
// buckets come from the cache, extended from the boundary; the current
// bucket is always rebuilt. Caller holds st.mu.
func (s *SeriesStore) aggregate(st *seriesState, iv domrepo.Interval) []models.AggregateBar {
	c, ok := st.agg[iv]
	if !ok {
		c = &aggCache{}
		st.agg[iv] = c
	}
	current := bucketStart(iv, s.now())

	i := c.boundaryIdx
	for i < len(st.bars) {
		start := bucketStart(iv, st.bars[i].Date)
		if !start.Before(current) {
			break
		}
		agg, next := buildBucket(iv, st.bars, i)
		c.closed = append(c.closed, agg)
		c.boundary = nextBucket(iv, start)
		c.boundaryIdx = next
		i = next
	}

	out := make([]models.AggregateBar, len(c.closed), len(c.closed)+1)
	copy(out, c.closed)
	for i < len(st.bars) {
		agg, next := buildBucket(iv, st.bars, i)
		out = append(out, agg)
		i = next
	}
	return out
}

// buildBucket folds the run of bars starting at from that share a bucket.
func buildBucket(iv domrepo.Interval, bars []models.Bar, from int) (models.AggregateBar, int) {
	first := bars[from]
	start := bucketStart(iv, first.Date)
	agg := models.AggregateBar{
		Bar: models.Bar{
			Symbol: first.Symbol,
			Date:   start,
			Open:   first.Open,
			High:   first.High,
			Low:    first.Low,
			Close:  first.Close,
		},
	}
	i := from
	for ; i < len(bars) && bucketStart(iv, bars[i].Date).Equal(start); i++ {
		b := bars[i]
		agg.High = max(agg.High, b.High)
		agg.Low = min(agg.Low, b.Low)
		agg.Close = b.Close
		agg.Volume += b.Volume
		agg.Bars++
	}
	return agg, i
}

func (s *SeriesStore) persist(ctx context.Context, symbol string, added []models.Bar) {
	if s.durable == nil || len(added) == 0 {
		return
	}
	if err := s.durable.Save(ctx, added); err != nil {
		s.log.Error("series store: durable save failed",
			applogger.String("symbol", symbol),
			applogger.Int("bars", len(added)),
			applogger.Error(err),
		)
	}
}

func bucketStart(iv domrepo.Interval, t time.Time) time.Time {
	switch iv {
	case domrepo.IntervalWeekly:
		return util.StartOfISOWeek(t)
	case domrepo.IntervalMonthly:
		return util.StartOfMonth(t)
	default:
		return util.StartOfDay(t)
	}
}

func nextBucket(iv domrepo.Interval, start time.Time) time.Time {
	switch iv {
	case domrepo.IntervalWeekly:
		return start.AddDate(0, 0, 7)
	case domrepo.IntervalMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// requiredDays estimates how many trading days a request for limit buckets covers.
func requiredDays(iv domrepo.Interval, limit int) int {
	switch iv {
	case domrepo.IntervalWeekly:
		return limit * 5
	case domrepo.IntervalMonthly:
		return limit * 21
	default:
		return limit
	}
}
