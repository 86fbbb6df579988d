package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	applogger "StockBoard/pkg/logger"
)

// DefaultWatchlistName is used when a watchlist is created without a name.
const DefaultWatchlistName = "My Watchlist"

// WatchlistServiceOption configures WatchlistService.
type WatchlistServiceOption func(*WatchlistService)

// WithWatchlistStore writes every change through to store. Write failures are
// logged; memory stays authoritative.
func WithWatchlistStore(store domrepo.WatchlistStore) WatchlistServiceOption {
	return func(s *WatchlistService) { s.store = store }
}

func WithWatchlistLogger(l *applogger.Logger) WatchlistServiceOption {
	return func(s *WatchlistService) { s.log = l }
}

// WatchlistService keeps watchlists in memory. A symbol appears at most
// once per watchlist.
type WatchlistService struct {
	now   func() time.Time
	store domrepo.WatchlistStore
	log   *applogger.Logger

	mu       sync.RWMutex
	nextList int64
	nextItem int64
	lists    map[int64]*models.Watchlist
}

func NewWatchlistService(opts ...WatchlistServiceOption) *WatchlistService {
	s := &WatchlistService{
		now:   time.Now,
		log:   applogger.Nop(),
		lists: make(map[int64]*models.Watchlist),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads persisted watchlists into an empty service and continues
// both id sequences after the highest ids the store has seen.
func (s *WatchlistService) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	lists, seq, err := s.store.LoadWatchlists(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore watchlists: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextList = max(s.nextList, seq.LastListID)
	s.nextItem = max(s.nextItem, seq.LastItemID)
	restored := 0
	for i := range lists {
		w := lists[i]
		if w.ID <= 0 {
			continue
		}
		if _, dup := s.lists[w.ID]; dup {
			continue
		}
		if w.Items == nil {
			w.Items = []models.WatchlistItem{}
		}
		for _, it := range w.Items {
			if it.ID > s.nextItem {
				s.nextItem = it.ID
			}
		}
		if w.ID > s.nextList {
			s.nextList = w.ID
		}
		s.lists[w.ID] = &w
		restored++
	}
	return restored, nil
}

// List returns userID's watchlists ordered by id.
func (s *WatchlistService) List(userID int64) []models.Watchlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Watchlist, 0)
	for _, w := range s.lists {
		if w.UserID == userID {
			out = append(out, cloneWatchlist(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *WatchlistService) Create(userID int64, name string) models.Watchlist {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultWatchlistName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextList++
	w := &models.Watchlist{
		ID:        s.nextList,
		UserID:    userID,
		Name:      name,
		CreatedAt: s.now().UTC(),
		Items:     []models.WatchlistItem{},
	}
	s.lists[w.ID] = w
	s.save(w)
	return cloneWatchlist(w)
}

func (s *WatchlistService) Get(id int64) (models.Watchlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.lists[id]
	if !ok {
		return models.Watchlist{}, notFoundWatchlist(id)
	}
	return cloneWatchlist(w), nil
}

func (s *WatchlistService) Rename(id int64, name string) (models.Watchlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Watchlist{}, fmt.Errorf("empty watchlist name: %w", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.lists[id]
	if !ok {
		return models.Watchlist{}, notFoundWatchlist(id)
	}
	w.Name = name
	s.save(w)
	return cloneWatchlist(w), nil
}

func (s *WatchlistService) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[id]; !ok {
		return notFoundWatchlist(id)
	}
	delete(s.lists, id)
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := s.store.DeleteWatchlist(ctx, id); err != nil {
			s.log.Warn("watchlist store: delete failed", applogger.Int64("watchlist_id", id), applogger.Error(err))
		}
	}
	return nil
}

func (s *WatchlistService) Items(id int64) ([]models.WatchlistItem, error) {
	w, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return w.Items, nil
}

// AddItem adds symbol to watchlist id. When the symbol is already present the
// existing item is returned and created is false.
func (s *WatchlistService) AddItem(id int64, symbol string) (item models.WatchlistItem, created bool, err error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.WatchlistItem{}, false, fmt.Errorf("stock symbol is required: %w", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.lists[id]
	if !ok {
		return models.WatchlistItem{}, false, notFoundWatchlist(id)
	}
	for _, it := range w.Items {
		if it.StockSymbol == symbol {
			return it, false, nil
		}
	}

	s.nextItem++
	item = models.WatchlistItem{
		ID:          s.nextItem,
		WatchlistID: id,
		StockSymbol: symbol,
		AddedAt:     s.now().UTC(),
	}
	w.Items = append(w.Items, item)
	s.save(w)
	return item, true, nil
}

// RemoveItem deletes itemID, which must belong to watchlist id.
func (s *WatchlistService) RemoveItem(id, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.lists[id]
	if !ok {
		return notFoundWatchlist(id)
	}
	for i, it := range w.Items {
		if it.ID == itemID {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			s.save(w)
			return nil
		}
	}
	return fmt.Errorf("watchlist %d item %d: %w", id, itemID, models.ErrNotFound)
}

// save writes w through to the store. Caller holds s.mu.
func (s *WatchlistService) save(w *models.Watchlist) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.store.SaveWatchlist(ctx, cloneWatchlist(w)); err != nil {
		s.log.Warn("watchlist store: save failed", applogger.Int64("watchlist_id", w.ID), applogger.Error(err))
	}
}

func cloneWatchlist(w *models.Watchlist) models.Watchlist {
	out := *w
	out.Items = make([]models.WatchlistItem, len(w.Items))
	copy(out.Items, w.Items)
	return out
}

func notFoundWatchlist(id int64) error {
	return fmt.Errorf("watchlist %d: %w", id, models.ErrNotFound)
}
