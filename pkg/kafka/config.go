package kafka

import (
	"errors"
	"fmt"
	"time"
)

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// DeliveryConfig controls acknowledgement and retry of each write.
// RequiredAcks is -1 (all replicas), 0 (none) or 1 (leader).
type DeliveryConfig struct {
	RequiredAcks int
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	Async        bool
}

// BatchConfig controls how the writer groups messages.
type BatchConfig struct {
	Size   int
	Bytes  int
	Linger time.Duration
}

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers     []string
	Compression string
	Delivery    DeliveryConfig
	Batch       BatchConfig
	// KeyOrdering routes equal keys to one partition so events for a
	// symbol stay ordered.
	KeyOrdering bool
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Compression: "gzip",
		Delivery: DeliveryConfig{
			RequiredAcks: -1,
			MaxAttempts:  3,
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
		},
		Batch: BatchConfig{
			Size:   100,
			Bytes:  1 << 20,
			Linger: time.Second,
		},
	}
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("brokers are required")
	}
	switch c.Delivery.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("required acks must be -1, 0 or 1, got %d", c.Delivery.RequiredAcks)
	}
	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be positive, got %d", c.Delivery.MaxAttempts)
	}
	return nil
}

// WithBrokers sets Kafka brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithCompression sets the codec: gzip, snappy, lz4 or zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		if compression != "" {
			c.Compression = compression
		}
	}
}

// WithDelivery sets required acks and writer retry attempts.
func WithDelivery(acks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.Delivery.RequiredAcks = acks
		if maxAttempts > 0 {
			c.Delivery.MaxAttempts = maxAttempts
		}
	}
}

// WithBatching sets batch size, byte cap and linger. Zero values keep the defaults.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.Batch.Size = size
		}
		if bytes > 0 {
			c.Batch.Bytes = bytes
		}
		if linger > 0 {
			c.Batch.Linger = linger
		}
	}
}

// WithTimeouts sets writer write/read timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.Delivery.WriteTimeout = write
		}
		if read > 0 {
			c.Delivery.ReadTimeout = read
		}
	}
}

// WithAsync makes Publish return before the broker acknowledges.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Delivery.Async = async
	}
}

func WithKeyOrdering(enabled bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.KeyOrdering = enabled
	}
}
