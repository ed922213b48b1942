package di

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	mid "MarketPulse/internal/middleware"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/service/feed"
	"MarketPulse/internal/service/marketdata"
	"MarketPulse/internal/services/drivers"
	"MarketPulse/internal/services/sessions"
	"MarketPulse/internal/usecase"
	pkgcache "MarketPulse/pkg/cache"
	"MarketPulse/pkg/config"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSessionClock builds the session clock from the configured timezone
// and weekend closure rule.
func ProvideSessionClock(cfg *config.Config) (*sessions.Clock, error) {
	tz := cfg.Sessions.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("sessions timezone: %w", err)
	}

	weekend := sessions.DefaultWeekendRule()
	if s := cfg.Sessions.Weekend.FridayClose; s != "" {
		if weekend.FridayCloseMinute, err = config.ParseClock(s); err != nil {
			return nil, fmt.Errorf("weekend friday_close: %w", err)
		}
	}
	if s := cfg.Sessions.Weekend.SundayOpen; s != "" {
		if weekend.SundayOpenMinute, err = config.ParseClock(s); err != nil {
			return nil, fmt.Errorf("weekend sunday_open: %w", err)
		}
	}

	return sessions.NewClock(sessions.DefaultDefinitions(), loc, weekend)
}

// ProvideStateStore creates the per-session state store.
func ProvideStateStore(clock *sessions.Clock) *sessions.StateStore {
	return sessions.NewStateStore(clock.Definitions())
}

// ProvideScheduler creates the cron scheduler driving session resets and IB
// completion.
func ProvideScheduler(clock *sessions.Clock, store *sessions.StateStore, l *applogger.Logger) (*sessions.Scheduler, error) {
	return sessions.NewScheduler(clock, store, l)
}

// ProvideSessionIngest creates the session ingest use case.
func ProvideSessionIngest(clock *sessions.Clock, store *sessions.StateStore, m repository.Metrics) *usecase.SessionIngest {
	return usecase.NewSessionIngest(clock, store, m)
}

// ProvideDetector creates the driver detector with the default threshold
// table.
func ProvideDetector() (*drivers.Detector, error) {
	return drivers.NewDetector(drivers.DefaultTable())
}

// ProvideMarketDataClient creates the REST market-data client.
func ProvideMarketDataClient(cfg *config.Config) *marketdata.Client {
	return marketdata.NewClient(marketdata.Config{
		BaseURL:      cfg.MarketData.BaseURL,
		APIKey:       cfg.MarketData.APIKey,
		Timeout:      cfg.MarketData.Timeout,
		Symbols:      cfg.MarketData.Symbols,
		YieldMetrics: cfg.MarketData.YieldMetrics,
		Sectors:      cfg.MarketData.Sectors,
		Constituents: cfg.MarketData.Constituents,
	})
}

// ProvideNewsClient creates the session-filtered news client.
func ProvideNewsClient(cfg *config.Config) *marketdata.NewsClient {
	return marketdata.NewNewsClient(marketdata.NewsConfig{
		BaseURL: cfg.News.BaseURL,
		APIKey:  cfg.News.APIKey,
		Timeout: cfg.News.Timeout,
	})
}

// ProvideFeedStream creates the websocket tick stream.
func ProvideFeedStream(cfg *config.Config, l *applogger.Logger) repository.TickStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		l,
	)
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is
// active; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTickPublisher creates the Kafka publisher repository; nil when the
// direct backend is active.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TickPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer for the tick topic; nil when
// the direct backend is active.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTicksHandler registers the handler for the tick topic.
func ProvideKafkaTicksHandler(ingest *usecase.SessionIngest, m repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, ingest, m)
}

// ProvideTickProcessor creates the tick processor use case.
func ProvideTickProcessor(
	pub repository.TickPublisher,
	ingest *usecase.SessionIngest,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, ingest, m, cfg.Backend.Type)
}

// ProvideTickCollector creates the tick collector with the buffering pipeline
// between the feed and the backend.
func ProvideTickCollector(
	stream repository.TickStream,
	processor *usecase.TickProcessor,
	m repository.Metrics,
) *usecase.TickCollector {
	pipe := mid.NewTickPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, processor, m, pipe)
}

// ProvideSharedCache creates the Redis view-cache tier when enabled.
func ProvideSharedCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Views.Redis.Enabled {
		return nil, nil
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Views.Redis.Addr),
		pkgcache.WithRedisAuth(cfg.Views.Redis.Password, cfg.Views.Redis.DB),
	)
}

// ProvideViewAggregator creates the view aggregation orchestrator.
func ProvideViewAggregator(
	ingest *usecase.SessionIngest,
	detector *drivers.Detector,
	md *marketdata.Client,
	news *marketdata.NewsClient,
	m repository.Metrics,
	l *applogger.Logger,
	shared pkgcache.Service,
	cfg *config.Config,
) *usecase.ViewAggregator {
	opts := []usecase.ViewAggregatorOption{
		usecase.WithSourceTimeout(cfg.Views.SourceTimeout),
		usecase.WithViewTTL("command-center", cfg.Views.TTL.CommandCenter),
		usecase.WithViewTTL("market-brief", cfg.Views.TTL.MarketBrief),
		usecase.WithViewTTL("dashboard", cfg.Views.TTL.Dashboard),
		usecase.WithViewTTL("reports-calendar", cfg.Views.TTL.ReportsCalendar),
		usecase.WithViewTTL("weather-report", cfg.Views.TTL.WeatherReport),
		usecase.WithCalendar(calendarReports(cfg)),
	}
	if shared != nil {
		opts = append(opts, usecase.WithSharedCache(shared))
	}
	return usecase.NewViewAggregator(ingest, detector, md, md, md, news, m, l, opts...)
}

func calendarReports(cfg *config.Config) []usecase.ScheduledReport {
	out := make([]usecase.ScheduledReport, 0, len(cfg.Calendar))
	for _, ev := range cfg.Calendar {
		minute, err := config.ParseClock(ev.At)
		if err != nil {
			continue // validated at load time
		}
		out = append(out, usecase.ScheduledReport{
			Name:       ev.Name,
			Weekday:    time.Weekday(ev.Weekday),
			Minute:     minute,
			Importance: ev.Impact,
		})
	}
	return out
}

// ProvideViewsHandler creates the HTTP handler.
func ProvideViewsHandler(l *applogger.Logger, agg *usecase.ViewAggregator, ingest *usecase.SessionIngest) *api.ViewsHandler {
	return api.NewViewsHandler(l, agg, ingest)
}

// logBusPublisher adapts the Kafka producer to the log collector's publisher
// contract.
type logBusPublisher struct {
	p *pkgkafka.Producer
}

func (b logBusPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return b.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.TickCollector,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	scheduler *sessions.Scheduler,
	handler *api.ViewsHandler,
	l *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		lc := cfg.Logging.Collector
		interval := lc.FlushInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		threshold := lc.CountThreshold
		if threshold <= 0 {
			threshold = 100
		}
		topic := lc.Topic
		if topic == "" {
			topic = "marketpulse.logs"
		}
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   interval,
			CountThreshold: threshold,
			Topic:          topic,
			Publisher:      logBusPublisher{p: producer},
		})
	}
	app := server.New(cfg, collector, consumer, kh, scheduler, l)
	app.SetHTTPHandler(handler)
	if collector != nil {
		app.TickProc = collector.Processor()
	}
	return app
}
