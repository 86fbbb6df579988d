package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	applogger "StockBoard/pkg/logger"
	"StockBoard/pkg/metrics"
)

// QuoteRefresher refreshes one symbol from the upstream.
type QuoteRefresher interface {
	Refresh(ctx context.Context, symbol string) (models.Quote, error)
}

// QuoteApplier evaluates a fresh quote against alert rules.
type QuoteApplier interface {
	Apply(ctx context.Context, q models.Quote) []models.AlertRule
}

// SymbolSet lists symbols worth refreshing.
type SymbolSet interface {
	ActiveSymbols() []string
}

// RecentViews lists symbols readers asked for recently.
type RecentViews interface {
	Recent() []string
}

// RunStats summarises one scheduler tick.
type RunStats struct {
	Symbols   int
	Refreshed int
	Failed    int
	Skipped   int
	Triggered int
}

// RefreshSchedulerOption configures RefreshScheduler.
type RefreshSchedulerOption func(*RefreshScheduler)

func WithSchedulerWorkers(n int) RefreshSchedulerOption {
	return func(s *RefreshScheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithSchedulerTimeout(d time.Duration) RefreshSchedulerOption {
	return func(s *RefreshScheduler) { s.timeout = d }
}

func WithSchedulerLogger(l *applogger.Logger) RefreshSchedulerOption {
	return func(s *RefreshScheduler) { s.log = l }
}

func WithSchedulerMetrics(m domrepo.Metrics) RefreshSchedulerOption {
	return func(s *RefreshScheduler) { s.metrics = m }
}

// RefreshScheduler periodically refreshes every symbol with an active alert
// or a recent view and feeds each fresh quote to the evaluator.
type RefreshScheduler struct {
	quotes  QuoteRefresher
	eval    QuoteApplier
	alerts  SymbolSet
	views   RecentViews
	tick    time.Duration
	timeout time.Duration
	workers int
	log     *applogger.Logger
	metrics domrepo.Metrics

	mu        sync.Mutex
	isRunning bool
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	inFlight  map[string]struct{}
	wg        sync.WaitGroup
}

func NewRefreshScheduler(quotes QuoteRefresher, eval QuoteApplier, alerts SymbolSet, views RecentViews, tick time.Duration, opts ...RefreshSchedulerOption) *RefreshScheduler {
	s := &RefreshScheduler{
		quotes:   quotes,
		eval:     eval,
		alerts:   alerts,
		views:    views,
		tick:     tick,
		timeout:  10 * time.Second,
		workers:  8,
		log:      applogger.Nop(),
		metrics:  metrics.Nop{},
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules RunOnce every tick. Overlapping ticks are skipped. A
// stopped scheduler may be started again.
func (s *RefreshScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.tick <= 0 {
		return fmt.Errorf("scheduler tick must be positive, got %s", s.tick)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{l: s.log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc("@every "+s.tick.String(), func() { s.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.ctx, s.cancel = ctx, cancel
	s.cron.Start()
	s.isRunning = true
	s.log.Info("refresh scheduler started",
		applogger.Duration("tick_ms", s.tick),
		applogger.Int("workers", s.workers),
	)
	return nil
}

// Stop halts the schedule, cancels in-flight refreshes and waits for them
// until ctx expires.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.isRunning = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var cronDone context.Context
	if c != nil {
		cronDone = c.Stop()
	}

	done := make(chan struct{})
	go func() {
		if cronDone != nil {
			<-cronDone.Done()
		}
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// runContext returns the context of the current run, nil before the first Start.
func (s *RefreshScheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Symbols returns the refresh set: active-alert symbols plus recent views.
func (s *RefreshScheduler) Symbols() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(list []string) {
		for _, sym := range list {
			sym = models.NormalizeSymbol(sym)
			if sym == "" {
				continue
			}
			if _, ok := seen[sym]; ok {
				continue
			}
			seen[sym] = struct{}{}
			out = append(out, sym)
		}
	}
	add(s.alerts.ActiveSymbols())
	if s.views != nil {
		add(s.views.Recent())
	}
	return out
}

// RunOnce refreshes the current refresh set once and returns when every
// refresh it started has finished. Symbols still in flight from an earlier
// run are skipped.
func (s *RefreshScheduler) RunOnce(ctx context.Context) RunStats {
	symbols := s.Symbols()
	stats := RunStats{Symbols: len(symbols)}
	if len(symbols) == 0 {
		return stats
	}

	var (
		mu  sync.Mutex
		run sync.WaitGroup
		sem = make(chan struct{}, s.workers)
	)
	start := time.Now()

	for _, sym := range symbols {
		if !s.claim(sym) {
			stats.Skipped++
			continue
		}
		run.Add(1)
		s.wg.Add(1)
		go func(sym string) {
			defer s.wg.Done()
			defer run.Done()
			defer s.release(sym)

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return
			}

			triggered, err := s.refreshOne(ctx, sym)
			mu.Lock()
			if err != nil {
				stats.Failed++
			} else {
				stats.Refreshed++
				stats.Triggered += triggered
			}
			mu.Unlock()
		}(sym)
	}
	run.Wait()

	s.metrics.RecordLatency("scheduler_tick", time.Since(start).Seconds())
	s.log.Debug("refresh tick done",
		applogger.Int("symbols", stats.Symbols),
		applogger.Int("refreshed", stats.Refreshed),
		applogger.Int("failed", stats.Failed),
		applogger.Int("skipped", stats.Skipped),
		applogger.Int("triggered", stats.Triggered),
	)
	return stats
}

func (s *RefreshScheduler) refreshOne(ctx context.Context, symbol string) (int, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q, err := s.quotes.Refresh(rctx, symbol)
	if err != nil {
		s.metrics.RecordError("scheduler_refresh")
		level := s.log.Warn
		if errors.Is(err, context.Canceled) {
			level = s.log.Debug
		}
		level("scheduler: refresh failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return 0, err
	}
	return len(s.eval.Apply(ctx, q)), nil
}

func (s *RefreshScheduler) claim(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[symbol]; busy {
		return false
	}
	s.inFlight[symbol] = struct{}{}
	return true
}

func (s *RefreshScheduler) release(symbol string) {
	s.mu.Lock()
	delete(s.inFlight, symbol)
	s.mu.Unlock()
}

// cronLogger routes cron's internal logging through the application logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, applogger.Any(key, kv[i+1]))
	}
	return fields
}
