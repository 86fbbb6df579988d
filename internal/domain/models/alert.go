package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// the dashboard reads target_value as a JSON number
	decimal.MarshalJSONWithoutQuotes = true
}

type AlertType string

const (
	AlertPriceAbove AlertType = "price_above"
	AlertPriceBelow AlertType = "price_below"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	return t == AlertPriceAbove || t == AlertPriceBelow
}

type AlertStatus string

const (
	AlertActive    AlertStatus = "active"
	AlertTriggered AlertStatus = "triggered"
	AlertDisabled  AlertStatus = "disabled"
)

// Valid reports whether s is a known alert status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertTriggered, AlertDisabled:
		return true
	default:
		return false
	}
}

// AlertRule is a user-defined price threshold on one symbol.
// TriggeredAt is non-nil if and only if Status is AlertTriggered.
type AlertRule struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	StockSymbol string          `json:"stock_symbol"`
	AlertType   AlertType       `json:"alert_type"`
	TargetValue decimal.Decimal `json:"target_value"`
	Status      AlertStatus     `json:"status"`
	TriggeredAt *time.Time      `json:"triggered_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CheckInvariant verifies the status/triggered_at pairing.
func (r AlertRule) CheckInvariant() error {
	if (r.Status == AlertTriggered) != (r.TriggeredAt != nil) {
		return fmt.Errorf("alert %d: status %q with triggered_at set=%t: %w",
			r.ID, r.Status, r.TriggeredAt != nil, ErrInvalidState)
	}
	return nil
}

// Crossed reports whether price satisfies the rule condition. The boundary is inclusive.
func (r AlertRule) Crossed(price decimal.Decimal) bool {
	switch r.AlertType {
	case AlertPriceAbove:
		return price.GreaterThanOrEqual(r.TargetValue)
	case AlertPriceBelow:
		return price.LessThanOrEqual(r.TargetValue)
	default:
		return false
	}
}

// AlertPatch carries the optional fields of a user update.
type AlertPatch struct {
	AlertType   *AlertType
	TargetValue *decimal.Decimal
	Status      *AlertStatus
}

// AlertTriggeredEvent is emitted once per active -> triggered transition.
type AlertTriggeredEvent struct {
	EventID     string          `json:"event_id"`
	AlertID     int64           `json:"alert_id"`
	UserID      int64           `json:"user_id"`
	StockSymbol string          `json:"stock_symbol"`
	AlertType   AlertType       `json:"alert_type"`
	TargetValue decimal.Decimal `json:"target_value"`
	Price       float64         `json:"price"`
	TriggeredAt time.Time       `json:"triggered_at"`
}
