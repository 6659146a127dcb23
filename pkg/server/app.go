package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PromptTrader/internal/usecase"
	pkgch "PromptTrader/pkg/clickhouse"
	"PromptTrader/pkg/config"
	xhttp "PromptTrader/pkg/http"
	pkgkafka "PromptTrader/pkg/kafka"
	applogger "PromptTrader/pkg/logger"
	"PromptTrader/pkg/postgres"
)

// App encapsulates the entire application lifecycle: feed collector, signal
// engine, order executor, optional Kafka consumer, and the HTTP read API.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.TickCollector
	engine      *usecase.SignalEngine
	executor    *usecase.OrderExecutor
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	pgClient    *postgres.Client
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.TickCollector,
	engine *usecase.SignalEngine,
	executor *usecase.OrderExecutor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	pgClient *postgres.Client,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    lgr,
		collector: collector,
		engine:    engine,
		executor:  executor,
		consumer:  consumer,
		kh:        kh,
		pgClient:  pgClient,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Feed collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("instruments", a.cfg.Upstox.InstrumentKeys))

	// Signal engine
	if a.engine != nil {
		go a.engine.Run(ctx)
		l.Info("signal engine started",
			applogger.Duration("interval", a.cfg.Strategy.Interval),
			applogger.Duration("bucket", a.cfg.Strategy.Bucket))
	}

	// Order executor
	if a.executor != nil {
		go a.executor.Run(ctx)
		l.Info("order executor started",
			applogger.Duration("interval", a.cfg.Executor.Interval),
			applogger.String("key_prefix", a.cfg.Executor.KeyPrefix))
	}

	// Kafka consumer for the kafka-backend topology
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Processor owns the publisher, store, and archive handles
	if proc := a.collector.Processor(); proc != nil {
		proc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
