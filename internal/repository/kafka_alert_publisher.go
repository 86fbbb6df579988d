package repository

import (
	"context"
	"fmt"

	"StockBoard/internal/domain/models"
)

// messagePublisher is the part of pkg/kafka.Producer the publisher needs.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaAlertPublisher emits AlertTriggeredEvent records keyed by symbol, so one
// symbol's events stay ordered within a partition.
type KafkaAlertPublisher struct {
	p     messagePublisher
	topic string
}

func NewKafkaAlertPublisher(p messagePublisher, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{p: p, topic: topic}
}

func (k *KafkaAlertPublisher) PublishAlertTriggered(ctx context.Context, ev models.AlertTriggeredEvent) error {
	if err := k.p.Publish(ctx, k.topic, []byte(ev.StockSymbol), ev); err != nil {
		return fmt.Errorf("publish alert %d: %w", ev.AlertID, err)
	}
	return nil
}

func (k *KafkaAlertPublisher) Close() error { return k.p.Close() }

// NoopAlertPublisher drops events. Used when Kafka is disabled.
type NoopAlertPublisher struct{}

func (NoopAlertPublisher) PublishAlertTriggered(context.Context, models.AlertTriggeredEvent) error {
	return nil
}

func (NoopAlertPublisher) Close() error { return nil }
