//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Session engine
		ProvideSessionClock,
		ProvideStateStore,
		ProvideScheduler,
		ProvideSessionIngest,
		ProvideDetector,

		// External providers
		ProvideMarketDataClient,
		ProvideNewsClient,
		ProvideFeedStream,

		// Ingestion bus
		ProvideKafkaProducer,
		ProvideTickPublisher,
		ProvideKafkaConsumer,
		ProvideKafkaTicksHandler,

		// Use cases
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideSharedCache,
		ProvideViewAggregator,

		// HTTP
		ProvideViewsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
