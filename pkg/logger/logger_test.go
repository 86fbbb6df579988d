package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) snapshot() (string, [][]AggregatedLogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topic, append([][]AggregatedLogEntry(nil), p.batches...)
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "logs",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "refresh failed", map[string]interface{}{"symbol": "AAPL"}, "usecase/x.go:1")
	}
	c.AddLog("error", "refresh failed", map[string]interface{}{"symbol": "MSFT"}, "usecase/x.go:1")
	c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		topic, batches := pub.snapshot()
		if len(batches) == 1 {
			if topic != "logs" {
				t.Fatalf("topic = %q", topic)
			}
			if len(batches[0]) != 2 {
				t.Fatalf("expected 2 aggregated entries, got %d", len(batches[0]))
			}
			total := 0
			for _, e := range batches[0] {
				total += e.Count
			}
			if total != 4 {
				t.Fatalf("expected total count 4, got %d", total)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no batch published")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoggerErrorFeedsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 1, Topic: "t", Publisher: pub})
	l.With(String("component", "test")).Error("boom", Error(errors.New("x")))
	l.RemoveCollector()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, batches := pub.snapshot(); len(batches) > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("collector did not receive error log")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type failingPublisher struct{}

func (failingPublisher) PublishMessage(context.Context, string, interface{}) error {
	return errors.New("broker down")
}

func TestCollectorReportsRejectedBatch(t *testing.T) {
	var (
		mu      sync.Mutex
		gotErr  error
		dropped int
	)
	c := NewLogCollector(&CollectionConfig{
		TimeInterval: time.Hour,
		Topic:        "logs",
		Publisher:    failingPublisher{},
		OnError: func(err error, entries int) {
			mu.Lock()
			defer mu.Unlock()
			gotErr, dropped = err, entries
		},
	})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.Close()

	mu.Lock()
	defer mu.Unlock()
	if gotErr == nil || dropped != 2 {
		t.Fatalf("OnError got err=%v entries=%d", gotErr, dropped)
	}
}

func TestCollectorFlushPublishesImmediately(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})
	c.AddLog("error", "a", map[string]interface{}{"k": 1}, "x.go:1")
	c.Flush()
	c.Close()

	if _, batches := pub.snapshot(); len(batches) != 1 {
		t.Fatalf("expected exactly one batch, got %d", len(batches))
	}
}

func TestEntryKeyIgnoresFieldOrder(t *testing.T) {
	a := entryKey("error", "m", map[string]interface{}{"x": 1, "y": "z"}, "c")
	b := entryKey("error", "m", map[string]interface{}{"y": "z", "x": 1}, "c")
	if a != b {
		t.Fatalf("same fields hashed differently")
	}
	if a == entryKey("warn", "m", map[string]interface{}{"x": 1, "y": "z"}, "c") {
		t.Fatalf("level not part of key")
	}
}
