package models

import (
	"strings"
	"time"
)

// Quote is the latest price/volume snapshot for a symbol.
type Quote struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	PreviousClose    float64   `json:"previous_close"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
	Volume           int64     `json:"volume"`
	LatestTradingDay string    `json:"latest_trading_day"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// Age returns how old the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// QuoteResult is what the quote cache hands to readers.
type QuoteResult struct {
	Quote Quote
	Stale bool
}

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
