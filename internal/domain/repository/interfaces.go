package repository

import (
	"context"

	"StockBoard/internal/domain/models"
)

// QuoteSource fetches the latest quote for a symbol from the market-data provider.
// Errors wrap models.ErrNotFound, models.ErrRateLimited or models.ErrUpstreamUnavailable.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// HistorySource fetches raw daily bars, ordered by date ascending.
type HistorySource interface {
	FetchDailyBars(ctx context.Context, symbol string, size OutputSize) ([]models.Bar, error)
}

// SymbolSearcher looks up tickers by keyword.
type SymbolSearcher interface {
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

// BarStore persists daily bars across restarts.
type BarStore interface {
	Load(ctx context.Context, symbol string) ([]models.Bar, error)
	Save(ctx context.Context, bars []models.Bar) error
	Close() error
}

// AlertStore persists alert rules across restarts. LoadAlerts also returns
// the highest id ever saved, deleted rules included.
type AlertStore interface {
	LoadAlerts(ctx context.Context) (rules []models.AlertRule, lastID int64, err error)
	SaveAlert(ctx context.Context, rule models.AlertRule) error
	DeleteAlert(ctx context.Context, id int64) error
}

// WatchlistSequence holds the highest watchlist and item ids ever saved.
type WatchlistSequence struct {
	LastListID int64
	LastItemID int64
}

// WatchlistStore persists watchlists, items included, across restarts.
type WatchlistStore interface {
	LoadWatchlists(ctx context.Context) ([]models.Watchlist, WatchlistSequence, error)
	SaveWatchlist(ctx context.Context, w models.Watchlist) error
	DeleteWatchlist(ctx context.Context, id int64) error
}

// AlertEventPublisher emits alert trigger events to downstream notifiers.
type AlertEventPublisher interface {
	PublishAlertTriggered(ctx context.Context, ev models.AlertTriggeredEvent) error
	Close() error
}

type Metrics interface {
	RecordRefresh(symbol string, ok bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordAlertTriggered(alertType string)
}
