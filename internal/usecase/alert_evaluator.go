package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	applogger "StockBoard/pkg/logger"
	"StockBoard/pkg/metrics"
)

// QuoteGate decides whether a quote is recent enough to evaluate.
type QuoteGate interface {
	Usable(q models.Quote, now time.Time) bool
}

// Transition is one rule whose condition holds for a quote.
type Transition struct {
	Rule  models.AlertRule
	Price decimal.Decimal
}

// Evaluate returns the active rules in rules whose condition holds at q.Price.
// Both bounds are inclusive. A non-finite price matches nothing.
func Evaluate(q models.Quote, rules []models.AlertRule) []Transition {
	if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return nil
	}
	price := decimal.NewFromFloat(q.Price)
	var out []Transition
	for _, r := range rules {
		if r.Status != models.AlertActive {
			continue
		}
		if r.Crossed(price) {
			out = append(out, Transition{Rule: r, Price: price})
		}
	}
	return out
}

// AlertEvaluatorOption configures AlertEvaluator.
type AlertEvaluatorOption func(*AlertEvaluator)

// WithQuoteGate makes Apply skip quotes the gate rejects.
func WithQuoteGate(g QuoteGate) AlertEvaluatorOption {
	return func(e *AlertEvaluator) { e.gate = g }
}

func WithAlertPublisher(p domrepo.AlertEventPublisher) AlertEvaluatorOption {
	return func(e *AlertEvaluator) { e.publisher = p }
}

func WithEvaluatorMetrics(m domrepo.Metrics) AlertEvaluatorOption {
	return func(e *AlertEvaluator) { e.metrics = m }
}

func WithEvaluatorLogger(l *applogger.Logger) AlertEvaluatorOption {
	return func(e *AlertEvaluator) { e.log = l }
}

func withEvaluatorClock(now func() time.Time) AlertEvaluatorOption {
	return func(e *AlertEvaluator) { e.now = now }
}

// AlertEvaluator applies Evaluate against the registry, one symbol at a time.
type AlertEvaluator struct {
	registry  *AlertRegistry
	gate      QuoteGate
	publisher domrepo.AlertEventPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
}

func NewAlertEvaluator(registry *AlertRegistry, opts ...AlertEvaluatorOption) *AlertEvaluator {
	e := &AlertEvaluator{
		registry: registry,
		metrics:  metrics.Nop{},
		log:      applogger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply triggers every active rule on q.Symbol whose condition holds and
// returns the rules it moved to triggered.
func (e *AlertEvaluator) Apply(ctx context.Context, q models.Quote) []models.AlertRule {
	now := e.now()
	if e.gate != nil && !e.gate.Usable(q, now) {
		e.log.Debug("evaluator: skipping old quote",
			applogger.String("symbol", q.Symbol),
			applogger.Duration("age_ms", q.Age(now)),
		)
		return nil
	}
	return e.apply(ctx, q, now)
}

// Check evaluates an explicit symbol to price map through the same path as
// scheduled refreshes.
func (e *AlertEvaluator) Check(ctx context.Context, prices map[string]float64) []models.AlertRule {
	symbols := make([]string, 0, len(prices))
	normalized := make(map[string]float64, len(prices))
	for sym, p := range prices {
		sym = models.NormalizeSymbol(sym)
		if sym == "" {
			continue
		}
		if _, dup := normalized[sym]; !dup {
			symbols = append(symbols, sym)
		}
		normalized[sym] = p
	}
	sort.Strings(symbols)

	out := make([]models.AlertRule, 0)
	for _, sym := range symbols {
		now := e.now()
		q := models.Quote{Symbol: sym, Price: normalized[sym], FetchedAt: now}
		out = append(out, e.apply(ctx, q, now)...)
	}
	return out
}

func (e *AlertEvaluator) apply(ctx context.Context, q models.Quote, now time.Time) []models.AlertRule {
	symbol := models.NormalizeSymbol(q.Symbol)

	unlock := e.registry.LockSymbol(symbol)
	transitions := Evaluate(q, e.registry.ActiveForSymbol(symbol))
	var triggered []models.AlertRule
	for _, t := range transitions {
		rule, ok, err := e.registry.Trigger(t.Rule.ID, now)
		if err != nil {
			// deleted between read and trigger
			continue
		}
		if ok {
			triggered = append(triggered, rule)
		}
	}
	unlock()

	for _, rule := range triggered {
		e.metrics.RecordAlertTriggered(string(rule.AlertType))
		e.log.Info("alert triggered",
			applogger.Int64("alert_id", rule.ID),
			applogger.Int64("user_id", rule.UserID),
			applogger.String("symbol", rule.StockSymbol),
			applogger.String("alert_type", string(rule.AlertType)),
			applogger.String("target", rule.TargetValue.String()),
			applogger.Float64("price", q.Price),
		)
		e.publish(ctx, rule, q.Price)
	}
	return triggered
}

func (e *AlertEvaluator) publish(ctx context.Context, rule models.AlertRule, price float64) {
	if e.publisher == nil {
		return
	}
	ev := models.AlertTriggeredEvent{
		EventID:     uuid.NewString(),
		AlertID:     rule.ID,
		UserID:      rule.UserID,
		StockSymbol: rule.StockSymbol,
		AlertType:   rule.AlertType,
		TargetValue: rule.TargetValue,
		Price:       price,
		TriggeredAt: *rule.TriggeredAt,
	}
	if err := e.publisher.PublishAlertTriggered(ctx, ev); err != nil {
		e.metrics.RecordError("alert_publish")
		e.log.Error("evaluator: publish alert event failed",
			applogger.Int64("alert_id", rule.ID),
			applogger.Error(err),
		)
	}
}
