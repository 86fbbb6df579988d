package models

import "time"

type Watchlist struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []WatchlistItem `json:"items"`
}

// WatchlistItem is unique per (WatchlistID, StockSymbol).
type WatchlistItem struct {
	ID          int64     `json:"id"`
	WatchlistID int64     `json:"watchlist_id"`
	StockSymbol string    `json:"stock_symbol"`
	AddedAt     time.Time `json:"added_at"`
}
