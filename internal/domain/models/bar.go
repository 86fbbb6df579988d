package models

import "time"

// Bar is one daily OHLCV record. Date is a calendar day at UTC midnight.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// AggregateBar covers a week or a month of daily bars. Date is the bucket start.
type AggregateBar struct {
	Bar
	Bars int
}
