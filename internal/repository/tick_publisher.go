package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

// KafkaTickPublisher implements TickPublisher for Kafka.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTickPublisher creates a Kafka-backed tick publisher.
func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) repository.TickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func tickPayload(t *models.Tick) map[string]interface{} {
	return map[string]interface{}{
		"symbol": t.Symbol,
		"t":      t.Timestamp,
		"c":      t.Price,
		"v":      t.Volume,
		"d":      t.Delta,
	}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), tickPayload(t))
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(t.Symbol),
			Value: tickPayload(t),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
