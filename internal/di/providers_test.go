package di

import (
	"testing"

	internalrepo "StockBoard/internal/repository"
	"StockBoard/pkg/cache"
	"StockBoard/pkg/config"
	applogger "StockBoard/pkg/logger"
)

func TestStoresFollowRedisPersistence(t *testing.T) {
	l := applogger.Nop()
	c := cache.NewMemoryCache()
	defer c.Close()

	cfg := &config.Config{}
	if _, ok := ProvideAlertStore(cfg, c, l).(internalrepo.NoopAlertStore); !ok {
		t.Fatalf("redis disabled should keep alerts in memory only")
	}

	cfg.Redis.Enabled = true
	cfg.Redis.Persist = false
	if _, ok := ProvideWatchlistStore(cfg, c, l).(internalrepo.NoopWatchlistStore); !ok {
		t.Fatalf("persist=false should keep watchlists in memory only")
	}

	cfg.Redis.Persist = true
	if _, ok := ProvideAlertStore(cfg, c, l).(*internalrepo.CacheAlertStore); !ok {
		t.Fatalf("expected cache-backed alert store")
	}
	if _, ok := ProvideWatchlistStore(cfg, c, l).(*internalrepo.CacheWatchlistStore); !ok {
		t.Fatalf("expected cache-backed watchlist store")
	}
}

func TestRegistryProviderRestoresFromStore(t *testing.T) {
	l := applogger.Nop()
	c := cache.NewMemoryCache()
	defer c.Close()
	store := internalrepo.NewCacheAlertStore(c, l)

	reg, err := ProvideAlertRegistry(store, l)
	if err != nil {
		t.Fatalf("provide registry: %v", err)
	}
	if got := len(reg.List(1, "")); got != 0 {
		t.Fatalf("fresh store restored %d rules", got)
	}

	if _, err := ProvideWatchlistService(internalrepo.NoopWatchlistStore{}, l); err != nil {
		t.Fatalf("provide watchlists: %v", err)
	}
}
