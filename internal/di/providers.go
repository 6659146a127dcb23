package di

import (
	"context"
	"fmt"
	"time"

	"PromptTrader/internal/domain/repository"
	"PromptTrader/internal/handler/api"
	mid "PromptTrader/internal/middleware"
	internalrepo "PromptTrader/internal/repository"
	"PromptTrader/internal/service/upstox"
	"PromptTrader/internal/usecase"
	"PromptTrader/pkg/cache"
	pkgch "PromptTrader/pkg/clickhouse"
	"PromptTrader/pkg/config"
	xhttp "PromptTrader/pkg/http"
	pkgkafka "PromptTrader/pkg/kafka"
	applogger "PromptTrader/pkg/logger"
	"PromptTrader/pkg/metrics"
	"PromptTrader/pkg/postgres"
	"PromptTrader/pkg/server"
)

// cursorKey is the Redis key holding the executor watermark.
const cursorKey = "executor:last_checked"

// tickSchema is the idempotent TimescaleDB bootstrap. Hypertables carry
// composite primary keys so re-delivered rows upsert instead of duplicating.
var tickSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS timescaledb`,
	`CREATE TABLE IF NOT EXISTS market_data (
		time TIMESTAMPTZ NOT NULL,
		instrument_key TEXT NOT NULL,
		ltp DOUBLE PRECISION,
		volume BIGINT,
		last_trade_time BIGINT,
		last_close DOUBLE PRECISION,
		strike_price DOUBLE PRECISION,
		option_type TEXT,
		open_interest BIGINT,
		expiry_date DATE,
		PRIMARY KEY (time, instrument_key)
	)`,
	`SELECT create_hypertable('market_data', 'time', if_not_exists => TRUE)`,
	`CREATE TABLE IF NOT EXISTS trading_signals (
		signal_time TIMESTAMPTZ NOT NULL,
		instrument_key TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		ltp DOUBLE PRECISION,
		rsi DOUBLE PRECISION,
		macd DOUBLE PRECISION,
		atr DOUBLE PRECISION,
		PRIMARY KEY (signal_time, instrument_key)
	)`,
	`SELECT create_hypertable('trading_signals', 'signal_time', if_not_exists => TRUE)`,
	`CREATE TABLE IF NOT EXISTS executed_orders (
		order_time TIMESTAMPTZ NOT NULL,
		instrument_key TEXT NOT NULL,
		order_id TEXT,
		order_type TEXT NOT NULL,
		quantity INT,
		price DOUBLE PRECISION,
		status TEXT NOT NULL,
		PRIMARY KEY (order_time, instrument_key)
	)`,
	`SELECT create_hypertable('executed_orders', 'order_time', if_not_exists => TRUE)`,
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvidePostgresClient creates the TimescaleDB client and bootstraps the
// schema.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, error) {
	client, err := postgres.NewClient(
		postgres.WithHost(cfg.Postgres.Host),
		postgres.WithPort(cfg.Postgres.Port),
		postgres.WithDatabase(cfg.Postgres.Database),
		postgres.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		postgres.WithSSLMode(cfg.Postgres.SSLMode),
		postgres.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, tickSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	return client, nil
}

// ProvideClickHouseClient creates the optional archive client. Returns nil
// when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Archive.Host),
		pkgch.WithPort(cfg.Archive.Port),
		pkgch.WithDatabase(cfg.Archive.Database),
		pkgch.WithCredentials(cfg.Archive.User, cfg.Archive.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.Archive.UseHTTP),
		pkgch.WithAsyncInsert(cfg.Archive.AsyncInsert, cfg.Archive.WaitForAsync),
		pkgch.WithTimeouts(cfg.Archive.DialTimeout, cfg.Archive.ReadTimeout, cfg.Archive.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.Archive.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.Archive.Database
	if db == "" {
		db = "prompttrader"
	}
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".ticks_raw (ts DateTime64(3), instrument_key String, ltp Float64, volume Int64, last_trade_time Int64, last_close Float64) ENGINE=MergeTree ORDER BY (instrument_key, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisCache creates the shared Redis cache client.
func ProvideRedisCache(cfg *config.Config) (cache.Service, error) {
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickStore creates the TimescaleDB tick repository.
func ProvideTickStore(pg *postgres.Client) repository.TickStore {
	return internalrepo.NewTimescaleTickStore(pg.DB())
}

// ProvideSignalStore creates the trading signals repository.
func ProvideSignalStore(pg *postgres.Client) repository.SignalStore {
	return internalrepo.NewTimescaleSignalStore(pg.DB())
}

// ProvideOrderStore creates the executed orders repository.
func ProvideOrderStore(pg *postgres.Client) repository.OrderStore {
	return internalrepo.NewTimescaleOrderStore(pg.DB())
}

// ProvideTickArchive creates the optional append-only archive. Nil when the
// archive client is disabled.
func ProvideTickArchive(chClient *pkgch.Client, cfg *config.Config) repository.TickArchive {
	if chClient == nil {
		return nil
	}
	db := cfg.Archive.Database
	if db == "" {
		db = "prompttrader"
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), db+".ticks_raw")
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend. Nil
// with the timescale backend.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
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

// ProvideTickPublisher creates the Kafka tick publisher. Nil with the
// timescale backend.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TickPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer for the kafka backend. Nil
// with the timescale backend.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
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

// ProvideKafkaTicksHandler registers the handler for the ticks topic.
func ProvideKafkaTicksHandler(store repository.TickStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideUpstoxStream creates the Upstox WebSocket feed.
func ProvideUpstoxStream(cfg *config.Config) (repository.MarketStream, error) {
	return upstox.NewStream(
		cfg.Upstox.AccessToken,
		cfg.Upstox.WebSocketURL,
		cfg.Upstox.InstrumentKeys,
		cfg.Upstox.ReconnectDelay,
		cfg.Upstox.PingInterval,
	)
}

// ProvideFeedDecoder creates the binary feed decoder.
func ProvideFeedDecoder(cfg *config.Config) repository.FeedDecoder {
	return upstox.NewDecoder(cfg.Executor.KeyPrefix)
}

// ProvideInstrumentMeta creates the instrument metadata client with Redis
// caching.
func ProvideInstrumentMeta(cfg *config.Config, c cache.Service) repository.InstrumentMeta {
	ttl := cfg.Upstox.MetaCacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return upstox.NewInstrumentClient(cfg.Upstox.APIBaseURL, c, 10*time.Second, ttl)
}

// ProvideOrderGateway creates the Upstox order placement client.
func ProvideOrderGateway(cfg *config.Config) (repository.OrderGateway, error) {
	return upstox.NewOrderClient(cfg.Upstox.APIBaseURL, cfg.Upstox.AccessToken, 10*time.Second)
}

// ProvideCursor creates the Redis-backed executor watermark.
func ProvideCursor(c cache.Service) repository.Cursor {
	return internalrepo.NewRedisCursor(c, cursorKey)
}

// ProvideTickProcessor creates the tick routing use case.
func ProvideTickProcessor(
	pub repository.TickPublisher,
	store repository.TickStore,
	archive repository.TickArchive,
	metrics repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(
		pub,
		store,
		archive,
		metrics,
		lgr,
		cfg.Backend.Type,
		cfg.Backend.OpTimeout,
	)
}

// ProvideTickCollector creates the feed loop with the buffering pipeline in
// front of the processor.
func ProvideTickCollector(
	stream repository.MarketStream,
	decoder repository.FeedDecoder,
	meta repository.InstrumentMeta,
	processor *usecase.TickProcessor,
	metrics repository.Metrics,
	lgr *applogger.Logger,
) *usecase.TickCollector {
	pipe := mid.NewRealtimePipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, decoder, meta, processor, metrics, lgr, pipe)
}

// ProvideSignalEngine creates the indicator/signal cycle.
func ProvideSignalEngine(
	ticks repository.TickStore,
	signals repository.SignalStore,
	metrics repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *usecase.SignalEngine {
	return usecase.NewSignalEngine(
		ticks,
		signals,
		metrics,
		lgr,
		cfg.Upstox.InstrumentKeys,
		cfg.Strategy.Interval,
		cfg.Strategy.Lookback,
		cfg.Strategy.Bucket,
		cfg.Backend.OpTimeout,
	)
}

// ProvideOrderExecutor creates the signal polling executor.
func ProvideOrderExecutor(
	signals repository.SignalStore,
	orders repository.OrderStore,
	gateway repository.OrderGateway,
	cursor repository.Cursor,
	metrics repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *usecase.OrderExecutor {
	keyPrefix := cfg.Executor.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "NSE_FO"
	}
	return usecase.NewOrderExecutor(
		signals,
		orders,
		gateway,
		cursor,
		metrics,
		lgr,
		cfg.Executor.Interval,
		keyPrefix,
		cfg.Executor.Quantity,
		cfg.Backend.OpTimeout,
	)
}

// ProvideHTTPHandler creates the Echo read API handler.
func ProvideHTTPHandler(
	lgr *applogger.Logger,
	ticks repository.TickStore,
	signals repository.SignalStore,
	orders repository.OrderStore,
	collector *usecase.TickCollector,
) xhttp.Handler {
	return api.NewTradingEchoHandler(lgr, ticks, signals, orders, collector)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.TickCollector,
	engine *usecase.SignalEngine,
	executor *usecase.OrderExecutor,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	pgClient *postgres.Client,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	app := server.New(cfg, lgr, collector, engine, executor, consumer, kh, pgClient, chClient)
	app.SetHTTPHandler(handler)
	return app
}
