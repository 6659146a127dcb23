//go:build wireinject
// +build wireinject

package di

import (
	"PromptTrader/pkg/config"
	"PromptTrader/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTickStore,
		ProvideSignalStore,
		ProvideOrderStore,
		ProvideTickArchive,
		ProvideTickPublisher,
		ProvideCursor,

		// Broker clients
		ProvideUpstoxStream,
		ProvideFeedDecoder,
		ProvideInstrumentMeta,
		ProvideOrderGateway,

		// Use cases
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideSignalEngine,
		ProvideOrderExecutor,
		ProvideKafkaTicksHandler,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
