package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
)

// TickStream is a live market feed delivering price ticks for the focus
// instruments (websocket-backed in production).
type TickStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TickPublisher pushes ticks onto the ingestion bus (Kafka) so the session
// state store can be fed by a separate consumer.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// QuoteProvider fetches a normalized quote snapshot for one symbol.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*models.Observation, error)
}

// SnapshotProvider fetches the full set of configured driver metrics
// (volatility, rates, currencies, international indices) in one pass.
type SnapshotProvider interface {
	FetchMarketSnapshot(ctx context.Context) (map[string]models.Observation, error)
}

// SectorProvider fetches today's sector ETF performance.
type SectorProvider interface {
	FetchSectorPerformance(ctx context.Context) (map[string]models.Observation, error)
}

// ConstituentProvider fetches the top index constituents (Mag-7 names).
type ConstituentProvider interface {
	FetchTopConstituents(ctx context.Context) (map[string]models.Observation, error)
}

// NewsProvider fetches headlines already tagged upstream with impact and
// sentiment, filtered for the given session.
type NewsProvider interface {
	FetchFilteredNews(ctx context.Context, key models.SessionKey) ([]models.NewsItem, error)
}

// Metrics is the instrumentation sink for ingestion and aggregation.
type Metrics interface {
	RecordTickIngested(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSourceFailure(source string)
	RecordCacheEvent(kind, outcome string)
}
