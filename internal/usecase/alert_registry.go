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
)

// storeTimeout bounds one write-through to a persistent store.
const storeTimeout = 2 * time.Second

// AlertRegistryOption configures AlertRegistry.
type AlertRegistryOption func(*AlertRegistry)

func WithRegistryLogger(l *applogger.Logger) AlertRegistryOption {
	return func(r *AlertRegistry) { r.log = l }
}

// WithAlertStore writes every change through to store. Write failures are
// logged; the in-memory registry stays authoritative.
func WithAlertStore(store domrepo.AlertStore) AlertRegistryOption {
	return func(r *AlertRegistry) { r.store = store }
}

func withRegistryClock(now func() time.Time) AlertRegistryOption {
	return func(r *AlertRegistry) { r.now = now }
}

// alertEntry guards one rule. Lock order is entry mutex, then registry mutex.
type alertEntry struct {
	mu      sync.Mutex
	rule    models.AlertRule
	deleted bool
}

// AlertRegistry owns every alert rule and a symbol index of the active ones.
type AlertRegistry struct {
	log   *applogger.Logger
	now   func() time.Time
	store domrepo.AlertStore

	mu       sync.RWMutex
	nextID   int64
	rules    map[int64]*alertEntry
	bySymbol map[string]map[int64]struct{} // active rules only

	symbols *keyedMutex
}

func NewAlertRegistry(opts ...AlertRegistryOption) *AlertRegistry {
	r := &AlertRegistry{
		log:      applogger.Nop(),
		now:      time.Now,
		rules:    make(map[int64]*alertEntry),
		bySymbol: make(map[string]map[int64]struct{}),
		symbols:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new rule with the next id. Status defaults to active.
func (r *AlertRegistry) Create(rule models.AlertRule) (models.AlertRule, error) {
	rule.StockSymbol = models.NormalizeSymbol(rule.StockSymbol)
	if rule.StockSymbol == "" {
		return models.AlertRule{}, fmt.Errorf("empty symbol: %w", models.ErrInvalidInput)
	}
	if !rule.AlertType.Valid() {
		return models.AlertRule{}, fmt.Errorf("alert type %q: %w", rule.AlertType, models.ErrInvalidInput)
	}
	if !rule.TargetValue.IsPositive() {
		return models.AlertRule{}, fmt.Errorf("target value %s: %w", rule.TargetValue, models.ErrInvalidInput)
	}
	if rule.Status == "" {
		rule.Status = models.AlertActive
	}
	if !rule.Status.Valid() {
		return models.AlertRule{}, fmt.Errorf("status %q: %w", rule.Status, models.ErrInvalidInput)
	}
	if err := rule.CheckInvariant(); err != nil {
		return models.AlertRule{}, err
	}
	rule.CreatedAt = r.now().UTC()

	e := &alertEntry{}
	e.mu.Lock()
	r.mu.Lock()
	r.nextID++
	rule.ID = r.nextID
	e.rule = rule
	r.rules[rule.ID] = e
	if rule.Status == models.AlertActive {
		r.indexLocked(rule.StockSymbol, rule.ID)
	}
	r.mu.Unlock()
	r.save(rule)
	e.mu.Unlock()

	r.log.Info("alert created",
		applogger.Int64("alert_id", rule.ID),
		applogger.String("symbol", rule.StockSymbol),
		applogger.String("alert_type", string(rule.AlertType)),
		applogger.String("target", rule.TargetValue.String()),
	)
	return rule, nil
}

// Get returns a copy of rule id.
func (r *AlertRegistry) Get(id int64) (models.AlertRule, error) {
	e, err := r.entry(id)
	if err != nil {
		return models.AlertRule{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return models.AlertRule{}, notFoundAlert(id)
	}
	return e.rule, nil
}

// List returns the rules of userID ordered by id. An empty status matches all.
func (r *AlertRegistry) List(userID int64, status models.AlertStatus) []models.AlertRule {
	r.mu.RLock()
	entries := make([]*alertEntry, 0, len(r.rules))
	for _, e := range r.rules {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]models.AlertRule, 0)
	for _, e := range entries {
		e.mu.Lock()
		rule, deleted := e.rule, e.deleted
		e.mu.Unlock()
		if deleted || rule.UserID != userID {
			continue
		}
		if status != "" && rule.Status != status {
			continue
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateStatus applies a user status change.
func (r *AlertRegistry) UpdateStatus(id int64, status models.AlertStatus) (models.AlertRule, error) {
	return r.Update(id, models.AlertPatch{Status: &status})
}

// Update applies a user patch. A user can never move a rule into triggered,
// and a disabled rule cannot be re-activated.
func (r *AlertRegistry) Update(id int64, patch models.AlertPatch) (models.AlertRule, error) {
	if patch.AlertType != nil && !patch.AlertType.Valid() {
		return models.AlertRule{}, fmt.Errorf("alert type %q: %w", *patch.AlertType, models.ErrInvalidInput)
	}
	if patch.TargetValue != nil && !patch.TargetValue.IsPositive() {
		return models.AlertRule{}, fmt.Errorf("target value %s: %w", *patch.TargetValue, models.ErrInvalidInput)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return models.AlertRule{}, fmt.Errorf("status %q: %w", *patch.Status, models.ErrInvalidInput)
	}

	e, err := r.entry(id)
	if err != nil {
		return models.AlertRule{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return models.AlertRule{}, notFoundAlert(id)
	}

	next := e.rule
	if patch.AlertType != nil {
		next.AlertType = *patch.AlertType
	}
	if patch.TargetValue != nil {
		next.TargetValue = *patch.TargetValue
	}
	if patch.Status != nil {
		if err := transition(&next, *patch.Status); err != nil {
			return models.AlertRule{}, err
		}
	}
	if err := next.CheckInvariant(); err != nil {
		return models.AlertRule{}, err
	}

	r.reindex(e.rule, next)
	e.rule = next
	r.save(next)
	return next, nil
}

// transition moves rule to status following the user-facing rules.
func transition(rule *models.AlertRule, to models.AlertStatus) error {
	from := rule.Status
	switch to {
	case models.AlertTriggered:
		if from != models.AlertTriggered {
			return fmt.Errorf("alert %d: only evaluation can trigger: %w", rule.ID, models.ErrInvalidState)
		}
	case models.AlertActive:
		switch from {
		case models.AlertTriggered:
			rule.Status = models.AlertActive
			rule.TriggeredAt = nil
		case models.AlertDisabled:
			return fmt.Errorf("alert %d: disabled alerts cannot be re-activated: %w", rule.ID, models.ErrInvalidState)
		}
	case models.AlertDisabled:
		rule.Status = models.AlertDisabled
		rule.TriggeredAt = nil
	}
	return nil
}

// Delete removes rule id.
func (r *AlertRegistry) Delete(id int64) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return notFoundAlert(id)
	}
	e.deleted = true

	r.mu.Lock()
	delete(r.rules, id)
	r.unindexLocked(e.rule.StockSymbol, id)
	r.mu.Unlock()

	if r.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := r.store.DeleteAlert(ctx, id); err != nil {
			r.log.Warn("alert store: delete failed", applogger.Int64("alert_id", id), applogger.Error(err))
		}
	}
	return nil
}

// Trigger moves an active rule to triggered at the given time. It reports
// false, with no error, when the rule is no longer active.
func (r *AlertRegistry) Trigger(id int64, at time.Time) (models.AlertRule, bool, error) {
	e, err := r.entry(id)
	if err != nil {
		return models.AlertRule{}, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return models.AlertRule{}, false, notFoundAlert(id)
	}
	if e.rule.Status != models.AlertActive {
		return e.rule, false, nil
	}

	next := e.rule
	at = at.UTC()
	next.Status = models.AlertTriggered
	next.TriggeredAt = &at
	r.reindex(e.rule, next)
	e.rule = next
	r.save(next)
	return next, true, nil
}

// Restore loads persisted rules into an empty registry and continues the id
// sequence after the highest id the store has seen. Rules breaking the status invariant are skipped.
func (r *AlertRegistry) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	rules, lastID, err := r.store.LoadAlerts(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore alerts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = max(r.nextID, lastID)
	restored := 0
	for _, rule := range rules {
		if err := rule.CheckInvariant(); err != nil || !rule.Status.Valid() || rule.ID <= 0 {
			r.log.Warn("alert store: skipping invalid rule", applogger.Int64("alert_id", rule.ID), applogger.Error(err))
			continue
		}
		if _, dup := r.rules[rule.ID]; dup {
			continue
		}
		r.rules[rule.ID] = &alertEntry{rule: rule}
		if rule.Status == models.AlertActive {
			r.indexLocked(rule.StockSymbol, rule.ID)
		}
		if rule.ID > r.nextID {
			r.nextID = rule.ID
		}
		restored++
	}
	return restored, nil
}

// save writes rule through to the store. Caller holds the entry lock so
// writes for one rule reach the store in order.
func (r *AlertRegistry) save(rule models.AlertRule) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.SaveAlert(ctx, rule); err != nil {
		r.log.Warn("alert store: save failed", applogger.Int64("alert_id", rule.ID), applogger.Error(err))
	}
}

// ActiveForSymbol returns the active rules on symbol ordered by id.
func (r *AlertRegistry) ActiveForSymbol(symbol string) []models.AlertRule {
	symbol = models.NormalizeSymbol(symbol)
	r.mu.RLock()
	ids := r.bySymbol[symbol]
	entries := make([]*alertEntry, 0, len(ids))
	for id := range ids {
		if e, ok := r.rules[id]; ok {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	out := make([]models.AlertRule, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && e.rule.Status == models.AlertActive {
			out = append(out, e.rule)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveSymbols returns every symbol with at least one active rule, sorted.
func (r *AlertRegistry) ActiveSymbols() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.bySymbol))
	for sym, ids := range r.bySymbol {
		if len(ids) > 0 {
			out = append(out, sym)
		}
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// LockSymbol serialises evaluation of one symbol's rules.
func (r *AlertRegistry) LockSymbol(symbol string) func() {
	return r.symbols.Lock(models.NormalizeSymbol(symbol))
}

func (r *AlertRegistry) entry(id int64) (*alertEntry, error) {
	r.mu.RLock()
	e, ok := r.rules[id]
	r.mu.RUnlock()
	if !ok {
		return nil, notFoundAlert(id)
	}
	return e, nil
}

// reindex keeps bySymbol in step with a status change. Caller holds the entry lock.
func (r *AlertRegistry) reindex(prev, next models.AlertRule) {
	wasActive := prev.Status == models.AlertActive
	isActive := next.Status == models.AlertActive
	if wasActive == isActive {
		return
	}
	r.mu.Lock()
	if isActive {
		r.indexLocked(next.StockSymbol, next.ID)
	} else {
		r.unindexLocked(prev.StockSymbol, prev.ID)
	}
	r.mu.Unlock()
}

func (r *AlertRegistry) indexLocked(symbol string, id int64) {
	ids, ok := r.bySymbol[symbol]
	if !ok {
		ids = make(map[int64]struct{})
		r.bySymbol[symbol] = ids
	}
	ids[id] = struct{}{}
}

func (r *AlertRegistry) unindexLocked(symbol string, id int64) {
	ids, ok := r.bySymbol[symbol]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(r.bySymbol, symbol)
	}
}

func notFoundAlert(id int64) error {
	return fmt.Errorf("alert %d: %w", id, models.ErrNotFound)
}
