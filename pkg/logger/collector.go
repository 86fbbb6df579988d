package logger

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"
	"time"
)

// Publisher ships one batch of aggregated entries to topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig controls error-log aggregation. Zero values get defaults:
// 30s interval, 100 distinct entries, 10s publish timeout.
type CollectionConfig struct {
	TimeInterval   time.Duration
	CountThreshold int
	FlushTimeout   time.Duration
	Topic          string
	Publisher      Publisher
	// OnError is told about batches the publisher rejected.
	OnError func(err error, entries int)
}

// AggregatedLogEntry is one distinct log line and how often it was seen
// since the previous flush.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector deduplicates log lines and publishes them in batches.
type LogCollector struct {
	cfg CollectionConfig

	mu      sync.Mutex
	entries map[uint64]*AggregatedLogEntry

	done     chan struct{}
	closing  sync.Once
	ticker   sync.WaitGroup
	inFlight sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 10 * time.Second
	}

	c := &LogCollector{
		cfg:     cfg,
		entries: make(map[uint64]*AggregatedLogEntry),
		done:    make(chan struct{}),
	}
	c.ticker.Add(1)
	go c.run()
	return c
}

// AddLog records one occurrence. Reaching CountThreshold distinct entries
// triggers a flush.
func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []AggregatedLogEntry
	if len(c.entries) >= c.cfg.CountThreshold {
		batch = c.drainLocked()
	}
	c.mu.Unlock()

	c.publish(batch)
}

// entryKey hashes the identity of a log line. json.Marshal sorts map keys,
// so equal field sets hash equally.
func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(level))
	h.Write([]byte{0})
	h.Write([]byte(caller))
	h.Write([]byte{0})
	h.Write([]byte(message))
	h.Write([]byte{0})
	if b, err := json.Marshal(fields); err == nil {
		h.Write(b)
	} else {
		h.Write([]byte(strconv.Itoa(len(fields))))
	}
	return h.Sum64()
}

func (c *LogCollector) run() {
	defer c.ticker.Done()

	t := time.NewTicker(c.cfg.TimeInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.Flush()
		case <-c.done:
			c.Flush()
			return
		}
	}
}

// Flush publishes whatever has been collected so far.
func (c *LogCollector) Flush() {
	c.mu.Lock()
	batch := c.drainLocked()
	c.mu.Unlock()
	c.publish(batch)
}

func (c *LogCollector) drainLocked() []AggregatedLogEntry {
	if len(c.entries) == 0 {
		return nil
	}
	batch := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, *e)
	}
	c.entries = make(map[uint64]*AggregatedLogEntry)
	return batch
}

// publish sends batch off the caller's goroutine; Close waits for it.
func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	c.inFlight.Add(1)
	go func() {
		defer c.inFlight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FlushTimeout)
		defer cancel()
		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil && c.cfg.OnError != nil {
			c.cfg.OnError(err, len(batch))
		}
	}()
}

// Close flushes the remaining entries and waits for every publish to finish.
func (c *LogCollector) Close() {
	c.closing.Do(func() { close(c.done) })
	c.ticker.Wait()
	c.inFlight.Wait()
}
