package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	"StockBoard/pkg/cache"
	applogger "StockBoard/pkg/logger"
)

const (
	alertKeyPrefix     = "alert"
	watchlistKeyPrefix = "watchlist"
	indexID            = "index"
)

// recordIndex lists every stored id. LastID and LastChildID only grow, so
// ids freed by a delete are never handed out again after a restart.
type recordIndex struct {
	IDs         []int64 `json:"ids"`
	LastID      int64   `json:"last_id"`
	LastChildID int64   `json:"last_child_id,omitempty"`
}

// recordStore keeps one cache entry per record plus an index entry. Entries
// never expire. childID, when set, reports the highest nested id in a record.
type recordStore[T any] struct {
	c       cache.Service
	prefix  string
	childID func(T) int64
	l       *applogger.Logger

	mu sync.Mutex // serialises index read-modify-write
}

func (s *recordStore[T]) key(id int64) string {
	return cache.GenerateKey(s.prefix, strconv.FormatInt(id, 10))
}

func (s *recordStore[T]) indexKey() string {
	return cache.GenerateKey(s.prefix, indexID)
}

func (s *recordStore[T]) index(ctx context.Context) (recordIndex, error) {
	var idx recordIndex
	if err := s.c.Get(ctx, s.indexKey(), &idx); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return recordIndex{}, nil
		}
		return recordIndex{}, fmt.Errorf("read %s index: %w", s.prefix, err)
	}
	return idx, nil
}

func (s *recordStore[T]) writeIndex(ctx context.Context, idx recordIndex) error {
	if err := s.c.Set(ctx, s.indexKey(), idx, 0); err != nil {
		return fmt.Errorf("write %s index: %w", s.prefix, err)
	}
	return nil
}

func (s *recordStore[T]) save(ctx context.Context, id int64, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.c.Set(ctx, s.key(id), v, 0); err != nil {
		return fmt.Errorf("write %s %d: %w", s.prefix, id, err)
	}
	idx, err := s.index(ctx)
	if err != nil {
		return err
	}
	changed := false
	if pos, found := slices.BinarySearch(idx.IDs, id); !found {
		idx.IDs = slices.Insert(idx.IDs, pos, id)
		changed = true
	}
	if id > idx.LastID {
		idx.LastID = id
		changed = true
	}
	if s.childID != nil {
		if child := s.childID(v); child > idx.LastChildID {
			idx.LastChildID = child
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.writeIndex(ctx, idx)
}

func (s *recordStore[T]) delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index(ctx)
	if err != nil {
		return err
	}
	if pos, found := slices.BinarySearch(idx.IDs, id); found {
		idx.IDs = slices.Delete(idx.IDs, pos, pos+1)
		if err := s.writeIndex(ctx, idx); err != nil {
			return err
		}
	}
	if err := s.c.Delete(ctx, s.key(id)); err != nil {
		return fmt.Errorf("delete %s %d: %w", s.prefix, id, err)
	}
	return nil
}

// load returns every indexed record in id order with the index marks. Ids
// whose record is gone are skipped.
func (s *recordStore[T]) load(ctx context.Context) ([]T, recordIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index(ctx)
	if err != nil {
		return nil, recordIndex{}, err
	}
	out := make([]T, 0, len(idx.IDs))
	for _, id := range idx.IDs {
		var v T
		if err := s.c.Get(ctx, s.key(id), &v); err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				s.l.Warn("record store: indexed record missing",
					applogger.String("kind", s.prefix),
					applogger.Int64("id", id),
				)
				continue
			}
			return nil, recordIndex{}, fmt.Errorf("read %s %d: %w", s.prefix, id, err)
		}
		out = append(out, v)
	}
	return out, idx, nil
}

// CacheAlertStore persists alert rules in the cache service.
type CacheAlertStore struct {
	records recordStore[models.AlertRule]
}

var _ domrepo.AlertStore = (*CacheAlertStore)(nil)

func NewCacheAlertStore(c cache.Service, l *applogger.Logger) *CacheAlertStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CacheAlertStore{records: recordStore[models.AlertRule]{c: c, prefix: alertKeyPrefix, l: l}}
}

func (s *CacheAlertStore) LoadAlerts(ctx context.Context) ([]models.AlertRule, int64, error) {
	rules, idx, err := s.records.load(ctx)
	return rules, idx.LastID, err
}

func (s *CacheAlertStore) SaveAlert(ctx context.Context, rule models.AlertRule) error {
	return s.records.save(ctx, rule.ID, rule)
}

func (s *CacheAlertStore) DeleteAlert(ctx context.Context, id int64) error {
	return s.records.delete(ctx, id)
}

// CacheWatchlistStore persists watchlists, items embedded, in the cache service.
type CacheWatchlistStore struct {
	records recordStore[models.Watchlist]
}

var _ domrepo.WatchlistStore = (*CacheWatchlistStore)(nil)

func NewCacheWatchlistStore(c cache.Service, l *applogger.Logger) *CacheWatchlistStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CacheWatchlistStore{records: recordStore[models.Watchlist]{
		c:       c,
		prefix:  watchlistKeyPrefix,
		childID: lastItemID,
		l:       l,
	}}
}

func (s *CacheWatchlistStore) LoadWatchlists(ctx context.Context) ([]models.Watchlist, domrepo.WatchlistSequence, error) {
	lists, idx, err := s.records.load(ctx)
	return lists, domrepo.WatchlistSequence{LastListID: idx.LastID, LastItemID: idx.LastChildID}, err
}

func (s *CacheWatchlistStore) SaveWatchlist(ctx context.Context, w models.Watchlist) error {
	return s.records.save(ctx, w.ID, w)
}

func (s *CacheWatchlistStore) DeleteWatchlist(ctx context.Context, id int64) error {
	return s.records.delete(ctx, id)
}

func lastItemID(w models.Watchlist) int64 {
	var last int64
	for _, it := range w.Items {
		last = max(last, it.ID)
	}
	return last
}

// NoopAlertStore keeps nothing. Used when persistence is off.
type NoopAlertStore struct{}

func (NoopAlertStore) LoadAlerts(context.Context) ([]models.AlertRule, int64, error) {
	return nil, 0, nil
}
func (NoopAlertStore) SaveAlert(context.Context, models.AlertRule) error { return nil }
func (NoopAlertStore) DeleteAlert(context.Context, int64) error          { return nil }

// NoopWatchlistStore keeps nothing. Used when persistence is off.
type NoopWatchlistStore struct{}

func (NoopWatchlistStore) LoadWatchlists(context.Context) ([]models.Watchlist, domrepo.WatchlistSequence, error) {
	return nil, domrepo.WatchlistSequence{}, nil
}
func (NoopWatchlistStore) SaveWatchlist(context.Context, models.Watchlist) error { return nil }
func (NoopWatchlistStore) DeleteWatchlist(context.Context, int64) error          { return nil }
