package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"StockBoard/internal/domain/models"
)

type fakeCH struct {
	query  string
	rows   [][]any
	err    error
	schema []string
}

func (f *fakeCH) DB() *sql.DB { return nil }

func (f *fakeCH) InsertBatch(_ context.Context, query string, rows [][]any) error {
	f.query, f.rows = query, rows
	return f.err
}

func (f *fakeCH) InitSchema(_ context.Context, stmts []string) error {
	f.schema = append(f.schema, stmts...)
	return f.err
}

func (f *fakeCH) Close() error { return nil }

func TestCHBarStoreSaveBuildsRows(t *testing.T) {
	ch := &fakeCH{}
	s := NewCHBarStore(ch, nil)
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	err := s.Save(context.Background(), []models.Bar{
		{Symbol: "AAPL", Date: d, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Symbol: "", Date: d},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(ch.query, "INSERT INTO daily_bars") {
		t.Fatalf("unexpected query %q", ch.query)
	}
	if len(ch.rows) != 1 || ch.rows[0][0] != "AAPL" || ch.rows[0][6] != int64(100) {
		t.Fatalf("unexpected rows %+v", ch.rows)
	}

	if err := s.Save(context.Background(), nil); err != nil {
		t.Fatalf("empty save: %v", err)
	}

	ch.err = errors.New("boom")
	if err := s.Save(context.Background(), []models.Bar{{Symbol: "AAPL", Date: d}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCHBarStoreInitCreatesReplacingTable(t *testing.T) {
	ch := &fakeCH{}
	if err := NewCHBarStore(ch, nil).Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if len(ch.schema) != 1 {
		t.Fatalf("expected one statement, got %d", len(ch.schema))
	}
	if !strings.Contains(ch.schema[0], "ReplacingMergeTree") || !strings.Contains(ch.schema[0], "ORDER BY (symbol, date)") {
		t.Fatalf("unexpected schema %s", ch.schema[0])
	}
}

type fakeProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestKafkaAlertPublisherKeysBySymbol(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaAlertPublisher(p, "stockboard.alerts")
	ev := models.AlertTriggeredEvent{
		EventID:     "e1",
		AlertID:     7,
		StockSymbol: "AAPL",
		AlertType:   models.AlertPriceAbove,
		TargetValue: decimal.RequireFromString("150"),
		Price:       150,
	}
	if err := pub.PublishAlertTriggered(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.topic != "stockboard.alerts" || string(p.key) != "AAPL" {
		t.Fatalf("unexpected topic/key %s/%s", p.topic, p.key)
	}
	b, _ := json.Marshal(p.value)
	if !strings.Contains(string(b), `"target_value":150`) {
		t.Fatalf("target_value should marshal as a number: %s", b)
	}
}
