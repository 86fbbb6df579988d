package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"StockBoard/internal/domain/models"
)

type schedulerFixture struct {
	src   *fakeQuoteSource
	reg   *AlertRegistry
	views *ViewTracker
	pub   *capturePublisher
	sched *RefreshScheduler
}

func newSchedulerFixture(opts ...RefreshSchedulerOption) *schedulerFixture {
	f := &schedulerFixture{
		src:   newFakeQuoteSource(),
		reg:   NewAlertRegistry(),
		views: NewViewTracker(5 * time.Minute),
		pub:   &capturePublisher{},
	}
	qc := NewQuoteCache(f.src, 30*time.Second)
	ev := NewAlertEvaluator(f.reg, WithQuoteGate(qc), WithAlertPublisher(f.pub))
	f.sched = NewRefreshScheduler(qc, ev, f.reg, f.views, time.Hour, opts...)
	return f
}

func TestSchedulerRefreshSetIsAlertsPlusViews(t *testing.T) {
	f := newSchedulerFixture()
	_, _ = f.reg.Create(newRule("AAPL", models.AlertPriceAbove, "150"))
	_, _ = f.reg.Create(newRule("MSFT", models.AlertPriceAbove, "150"))
	f.views.Touch("msft")
	f.views.Touch("tsla")

	got := f.sched.Symbols()
	sort.Strings(got)
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(got) != len(want) {
		t.Fatalf("symbols = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("symbols = %v, want %v", got, want)
		}
	}
}

func TestSchedulerRunOnceRefreshesAndTriggers(t *testing.T) {
	f := newSchedulerFixture()
	f.src.set("AAPL", 155)
	f.src.set("MSFT", 100)
	_, _ = f.reg.Create(newRule("AAPL", models.AlertPriceAbove, "150"))
	f.views.Touch("MSFT")

	stats := f.sched.RunOnce(context.Background())
	if stats.Symbols != 2 || stats.Refreshed != 2 || stats.Triggered != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if f.pub.len() != 1 {
		t.Fatalf("expected one alert event, got %d", f.pub.len())
	}

	// triggered rule leaves the refresh set
	stats = f.sched.RunOnce(context.Background())
	if stats.Symbols != 1 || stats.Triggered != 0 {
		t.Fatalf("second run stats %+v", stats)
	}
}

func TestSchedulerFailuresAreNotFatal(t *testing.T) {
	f := newSchedulerFixture()
	f.src.fail(models.ErrUpstreamUnavailable)
	_, _ = f.reg.Create(newRule("AAPL", models.AlertPriceAbove, "150"))

	stats := f.sched.RunOnce(context.Background())
	if stats.Failed != 1 || stats.Refreshed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	f.src.fail(nil)
	f.src.set("AAPL", 151)
	stats = f.sched.RunOnce(context.Background())
	if stats.Refreshed != 1 || stats.Triggered != 1 {
		t.Fatalf("symbol should be retried next tick, stats %+v", stats)
	}
}

func TestSchedulerSkipsSymbolsInFlight(t *testing.T) {
	f := newSchedulerFixture()
	f.src.set("AAPL", 100)
	f.src.delay = 200 * time.Millisecond
	f.views.Touch("AAPL")

	var (
		wg    sync.WaitGroup
		first RunStats
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = f.sched.RunOnce(context.Background())
	}()

	deadline := time.Now().Add(time.Second)
	for f.src.count("AAPL") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	second := f.sched.RunOnce(context.Background())
	wg.Wait()

	if second.Skipped != 1 || second.Refreshed != 0 {
		t.Fatalf("overlapping run should skip, got %+v", second)
	}
	if first.Refreshed != 1 {
		t.Fatalf("first run should refresh, got %+v", first)
	}
	if got := f.src.count("AAPL"); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}

func TestSchedulerStopCancelsInFlight(t *testing.T) {
	f := newSchedulerFixture(WithSchedulerTimeout(10 * time.Second))
	f.src.set("AAPL", 100)
	f.src.delay = 5 * time.Second
	f.views.Touch("AAPL")

	if err := f.sched.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.sched.Start(); err == nil {
		t.Fatalf("second start should fail")
	}

	done := make(chan RunStats, 1)
	runCtx := f.sched.runContext()
	go func() { done <- f.sched.RunOnce(runCtx) }()

	deadline := time.Now().Add(time.Second)
	for f.src.count("AAPL") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.sched.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	stats := <-done
	if stats.Failed != 1 {
		t.Fatalf("in-flight refresh should be cancelled, got %+v", stats)
	}
}

func TestSchedulerRestartsAfterStop(t *testing.T) {
	f := newSchedulerFixture()
	f.src.set("AAPL", 100)
	f.views.Touch("AAPL")
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := f.sched.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := f.sched.runContext()
	if err := f.sched.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if first.Err() == nil {
		t.Fatalf("stop did not cancel the run context")
	}

	if err := f.sched.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	second := f.sched.runContext()
	if second.Err() != nil {
		t.Fatalf("restarted scheduler has a dead context: %v", second.Err())
	}
	if stats := f.sched.RunOnce(second); stats.Refreshed != 1 || stats.Failed != 0 {
		t.Fatalf("refresh after restart: %+v", stats)
	}
	if err := f.sched.Stop(stopCtx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if err := f.sched.Stop(stopCtx); err != nil {
		t.Fatalf("stop when stopped: %v", err)
	}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	f := newSchedulerFixture(WithSchedulerWorkers(2))
	src := &countingSource{}
	f.sched.quotes = src
	for _, s := range []string{"A", "B", "C", "D", "E", "F"} {
		f.views.Touch(s)
	}

	stats := f.sched.RunOnce(context.Background())
	if stats.Refreshed != 6 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if src.peak > 2 {
		t.Fatalf("worker bound exceeded: peak %d", src.peak)
	}
}

// countingSource tracks concurrent Refresh calls.
type countingSource struct {
	mu        sync.Mutex
	cur, peak int
}

func (c *countingSource) Refresh(_ context.Context, symbol string) (models.Quote, error) {
	c.mu.Lock()
	c.cur++
	c.peak = max(c.peak, c.cur)
	c.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	c.cur--
	c.mu.Unlock()
	return models.Quote{Symbol: symbol, Price: 1, FetchedAt: time.Now()}, nil
}
