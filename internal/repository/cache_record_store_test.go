package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"StockBoard/internal/domain/models"
	"StockBoard/pkg/cache"
)

func TestCacheAlertStoreRoundTrip(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCacheAlertStore(mc, nil)
	ctx := context.Background()

	at := time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)
	rules := []models.AlertRule{
		{ID: 2, UserID: 1, StockSymbol: "MSFT", AlertType: models.AlertPriceBelow, TargetValue: decimal.RequireFromString("300.25"), Status: models.AlertActive, CreatedAt: at},
		{ID: 1, UserID: 1, StockSymbol: "AAPL", AlertType: models.AlertPriceAbove, TargetValue: decimal.RequireFromString("150"), Status: models.AlertTriggered, TriggeredAt: &at, CreatedAt: at},
		{ID: 3, UserID: 2, StockSymbol: "TSLA", AlertType: models.AlertPriceAbove, TargetValue: decimal.RequireFromString("900"), Status: models.AlertDisabled, CreatedAt: at},
	}
	for _, r := range rules {
		if err := s.SaveAlert(ctx, r); err != nil {
			t.Fatalf("save %d: %v", r.ID, err)
		}
	}
	if err := s.DeleteAlert(ctx, 3); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, lastID, err := s.LoadAlerts(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lastID != 3 {
		t.Fatalf("last id %d, want 3", lastID)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("unexpected rules %+v", got)
	}
	if !got[1].TargetValue.Equal(decimal.RequireFromString("300.25")) {
		t.Fatalf("target value %s", got[1].TargetValue)
	}
	if got[0].TriggeredAt == nil || !got[0].TriggeredAt.Equal(at) || got[0].Status != models.AlertTriggered {
		t.Fatalf("triggered rule %+v", got[0])
	}

	// saving again is an update, not a duplicate
	got[1].Status = models.AlertDisabled
	if err := s.SaveAlert(ctx, got[1]); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _, _ := s.LoadAlerts(ctx)
	if len(again) != 2 || again[1].Status != models.AlertDisabled {
		t.Fatalf("after update %+v", again)
	}
}

func TestCacheWatchlistStoreTracksItemIDs(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCacheWatchlistStore(mc, nil)
	ctx := context.Background()

	w := models.Watchlist{ID: 1, UserID: 1, Name: "Tech", Items: []models.WatchlistItem{
		{ID: 1, WatchlistID: 1, StockSymbol: "AAPL"},
		{ID: 2, WatchlistID: 1, StockSymbol: "MSFT"},
	}}
	if err := s.SaveWatchlist(ctx, w); err != nil {
		t.Fatalf("save: %v", err)
	}
	w.Items = w.Items[:1]
	if err := s.SaveWatchlist(ctx, w); err != nil {
		t.Fatalf("save: %v", err)
	}

	lists, seq, err := s.LoadWatchlists(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lists) != 1 || len(lists[0].Items) != 1 || lists[0].Items[0].StockSymbol != "AAPL" {
		t.Fatalf("unexpected lists %+v", lists)
	}
	if seq.LastListID != 1 || seq.LastItemID != 2 {
		t.Fatalf("unexpected sequence %+v", seq)
	}
}

func TestCacheStoreEmptyLoad(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	rules, lastID, err := NewCacheAlertStore(mc, nil).LoadAlerts(context.Background())
	if err != nil || len(rules) != 0 || lastID != 0 {
		t.Fatalf("empty load: %v %d %v", rules, lastID, err)
	}
}
