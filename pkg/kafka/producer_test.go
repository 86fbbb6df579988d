package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithKeyOrdering(true),
		WithDelivery(1, 5),
		WithBatching(10, 0, 0),
	)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	if p.writer.RequiredAcks != kafka.RequireOne {
		t.Fatalf("required acks = %v", p.writer.RequiredAcks)
	}
	if p.writer.BatchSize != 10 || p.writer.BatchBytes != 1<<20 {
		t.Fatalf("batch = %d/%d", p.writer.BatchSize, p.writer.BatchBytes)
	}
	if p.writer.MaxAttempts != 5 {
		t.Fatalf("max attempts = %d", p.writer.MaxAttempts)
	}
	if _, ok := p.writer.Balancer.(*kafka.Hash); !ok {
		t.Fatalf("expected hash balancer, got %T", p.writer.Balancer)
	}
	if p.writer.Compression != kafka.Zstd {
		t.Fatalf("compression = %v", p.writer.Compression)
	}
}

func TestNewProducerRejectsInvalidAcks(t *testing.T) {
	_, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithDelivery(2, 3))
	if err == nil {
		t.Fatalf("expected error for acks=2")
	}
}

func TestDefaultsUseLeastBytes(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()
	if _, ok := p.writer.Balancer.(*kafka.LeastBytes); !ok {
		t.Fatalf("expected least-bytes balancer, got %T", p.writer.Balancer)
	}
	if p.writer.RequiredAcks != kafka.RequireAll {
		t.Fatalf("required acks = %v", p.writer.RequiredAcks)
	}
}

func TestParseCompressionFallsBackToGzip(t *testing.T) {
	if parseCompression("bogus") != kafka.Gzip {
		t.Fatalf("unknown codec should fall back to gzip")
	}
}
