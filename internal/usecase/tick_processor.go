package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
)

// TickProcessor routes incoming ticks to the configured backend: the Kafka
// ingestion bus, or directly into the session state store.
type TickProcessor struct {
	pub     drepo.TickPublisher
	ingest  *SessionIngest
	metrics drepo.Metrics
	backend string
}

// NewTickProcessor creates a new TickProcessor instance.
func NewTickProcessor(
	pub drepo.TickPublisher,
	ingest *SessionIngest,
	metrics drepo.Metrics,
	backend string,
) *TickProcessor {
	return &TickProcessor{
		pub:     pub,
		ingest:  ingest,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single tick to the configured backend.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, t)
	case "direct":
		err = p.ingest.ApplyTick(ctx, t)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process tick: %w", err)
	}

	p.metrics.RecordTickIngested(p.backend, t.Symbol)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple ticks in a batch.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, ticks)
	case "direct":
		for _, t := range ticks {
			if aErr := p.ingest.ApplyTick(ctx, t); aErr != nil && err == nil {
				err = aErr
			}
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, t := range ticks {
		p.metrics.RecordTickIngested(p.backend, t.Symbol)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
