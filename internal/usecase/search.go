package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	"StockBoard/pkg/cache"
	applogger "StockBoard/pkg/logger"
)

const searchCachePrefix = "search"

// SearchServiceOption configures SearchService.
type SearchServiceOption func(*SearchService)

// WithSearchCache keeps results in svc for ttl.
func WithSearchCache(svc cache.Service, ttl time.Duration) SearchServiceOption {
	return func(s *SearchService) {
		s.cache = svc
		s.ttl = ttl
	}
}

func WithSearchTimeout(d time.Duration) SearchServiceOption {
	return func(s *SearchService) { s.timeout = d }
}

func WithSearchLogger(l *applogger.Logger) SearchServiceOption {
	return func(s *SearchService) { s.log = l }
}

// SearchService passes symbol searches through to the upstream, coalescing
// identical concurrent queries and caching results briefly.
type SearchService struct {
	searcher domrepo.SymbolSearcher
	cache    cache.Service
	ttl      time.Duration
	timeout  time.Duration
	log      *applogger.Logger
	group    singleflight.Group
}

func NewSearchService(searcher domrepo.SymbolSearcher, opts ...SearchServiceOption) *SearchService {
	s := &SearchService{
		searcher: searcher,
		timeout:  10 * time.Second,
		log:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeQuery is the key queries are compared by: trimmed and upper case.
func NormalizeQuery(q string) string {
	return strings.ToUpper(strings.TrimSpace(q))
}

// Search returns upstream matches for query. An empty match list is not an error.
func (s *SearchService) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	key := NormalizeQuery(query)
	if key == "" {
		return nil, fmt.Errorf("empty query: %w", models.ErrInvalidInput)
	}
	cacheKey := cache.GenerateKey(searchCachePrefix, key)

	if s.cache != nil {
		var hit []models.SymbolMatch
		err := s.cache.Get(ctx, cacheKey, &hit)
		if err == nil {
			return hit, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("search: cache read failed", applogger.String("query", key), applogger.Error(err))
		}
	}

	// the shared call outlives any single caller's cancellation
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		matches, err := s.searcher.Search(fctx, key)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", key, err)
		}
		if matches == nil {
			matches = []models.SymbolMatch{}
		}
		if s.cache != nil {
			if err := s.cache.Set(fctx, cacheKey, matches, s.ttl); err != nil {
				s.log.Warn("search: cache write failed", applogger.String("query", key), applogger.Error(err))
			}
		}
		return matches, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		matches := res.Val.([]models.SymbolMatch)
		out := make([]models.SymbolMatch, len(matches))
		copy(out, matches)
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
