package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockBoard/internal/domain/models"
	applogger "StockBoard/pkg/logger"
)

const dailyBarsTable = "daily_bars"

// barSchema creates the daily bar table. ReplacingMergeTree collapses
// re-inserted (symbol, date) rows on merge; reads use FINAL.
var barSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + dailyBarsTable + ` (
        symbol      LowCardinality(String),
        date        Date,
        open        Float64,
        high        Float64,
        low         Float64,
        close       Float64,
        volume      Int64,
        inserted_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(inserted_at)
    ORDER BY (symbol, date)`,
}

// chClient is the part of pkg/clickhouse.Client the bar store needs.
type chClient interface {
	DB() *sql.DB
	InsertBatch(ctx context.Context, query string, rows [][]any) error
	InitSchema(ctx context.Context, stmts []string) error
	Close() error
}

// CHBarStore implements BarStore backed by ClickHouse.
type CHBarStore struct {
	ch chClient
	l  *applogger.Logger
}

func NewCHBarStore(ch chClient, l *applogger.Logger) *CHBarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarStore{ch: ch, l: l}
}

// Init creates the table if it does not exist.
func (s *CHBarStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, barSchema)
}

func (s *CHBarStore) Load(ctx context.Context, symbol string) ([]models.Bar, error) {
	start := time.Now()
	const q = `
        SELECT date, open, high, low, close, volume
        FROM ` + dailyBarsTable + ` FINAL
        WHERE symbol = ?
        ORDER BY date ASC
    `
	rows, err := s.ch.DB().QueryContext(ctx, q, symbol)
	if err != nil {
		s.l.Error("clickhouse load_bars query error",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		b := models.Bar{Symbol: symbol}
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse load_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHBarStore) Save(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	const q = `INSERT INTO ` + dailyBarsTable + ` (symbol, date, open, high, low, close, volume)`
	if err := s.ch.InsertBatch(ctx, q, barRows(bars)); err != nil {
		return fmt.Errorf("save bars: %w", err)
	}
	return nil
}

func (s *CHBarStore) Close() error {
	return s.ch.Close()
}

func barRows(bars []models.Bar) [][]any {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		if b.Symbol == "" || b.Date.IsZero() {
			continue
		}
		rows = append(rows, []any{b.Symbol, b.Date.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume})
	}
	return rows
}
