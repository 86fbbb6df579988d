package models

// Requests for the REST endpoints. Path-bound identifiers carry json:"-" so a
// request body can never override the resource named in the URL.

type QuoteRequest struct {
	Symbol string `param:"symbol" validate:"required,max=15"`
}

type HistoricalRequest struct {
	Symbol   string `param:"symbol" validate:"required,max=15"`
	Interval string `query:"interval" default:"daily" validate:"oneof=daily weekly monthly"`
	Limit    int    `query:"limit" default:"100" validate:"gte=1,lte=5000"`
}

type SearchRequest struct {
	Query string `param:"query" validate:"required,max=64"`
}

type ListAlertsRequest struct {
	UserID int64  `query:"user_id" default:"1" validate:"gte=1"`
	Status string `query:"status" validate:"omitempty,oneof=active triggered disabled"`
}

type CreateAlertRequest struct {
	UserID      int64   `json:"user_id" default:"1" validate:"gte=1"`
	StockSymbol string  `json:"stock_symbol" validate:"required,max=15"`
	AlertType   string  `json:"alert_type" validate:"required,oneof=price_above price_below"`
	TargetValue float64 `json:"target_value" validate:"required,gt=0"`
}

type AlertIDRequest struct {
	ID int64 `param:"id" json:"-" validate:"gte=1"`
}

type UpdateAlertRequest struct {
	ID          int64    `param:"id" json:"-" validate:"gte=1"`
	Status      *string  `json:"status" validate:"omitempty,oneof=active triggered disabled"`
	AlertType   *string  `json:"alert_type" validate:"omitempty,oneof=price_above price_below"`
	TargetValue *float64 `json:"target_value" validate:"omitempty,gt=0"`
}

type CheckAlertsRequest struct {
	StockPrices map[string]float64 `json:"stock_prices" validate:"dive,keys,required,endkeys,gt=0"`
}

type ListWatchlistsRequest struct {
	UserID int64 `query:"user_id" default:"1" validate:"gte=1"`
}

type CreateWatchlistRequest struct {
	UserID int64  `json:"user_id" default:"1" validate:"gte=1"`
	Name   string `json:"name" default:"My Watchlist" validate:"max=100"`
}

type WatchlistIDRequest struct {
	ID int64 `param:"id" json:"-" validate:"gte=1"`
}

type UpdateWatchlistRequest struct {
	ID   int64  `param:"id" json:"-" validate:"gte=1"`
	Name string `json:"name" validate:"required,max=100"`
}

type AddWatchlistItemRequest struct {
	ID          int64  `param:"id" json:"-" validate:"gte=1"`
	StockSymbol string `json:"stock_symbol" validate:"required,max=15"`
}

type RemoveWatchlistItemRequest struct {
	ID     int64 `param:"id" json:"-" validate:"gte=1"`
	ItemID int64 `param:"item_id" json:"-" validate:"gte=1"`
}
