package usecase

import (
	"context"
	"encoding/json"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

// KafkaTicksHandler consumes tick messages from the ingestion bus and folds
// them into the session state store.
type KafkaTicksHandler struct {
	topic   string
	ingest  *SessionIngest
	metrics drepo.Metrics
}

func NewKafkaTicksHandler(topic string, ingest *SessionIngest, metrics drepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, ingest: ingest, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, c, v, d}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
		D      float64 `json:"d"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	start := time.Now()
	err := h.ingest.ApplyTick(ctx, &models.Tick{
		Symbol:    m.Symbol,
		Timestamp: m.T,
		Price:     m.C,
		Volume:    m.V,
		Delta:     m.D,
	})
	h.metrics.RecordLatency("session_apply_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_apply")
		return err
	}
	h.metrics.RecordTickIngested("session_store", m.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
