//go:build wireinject
// +build wireinject

package di

import (
	"StockBoard/pkg/config"
	"StockBoard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideAlphaVantage,

		// Repositories
		ProvideBarStore,
		ProvideAlertStore,
		ProvideWatchlistStore,
		ProvideAlertPublisher,

		// Use cases
		ProvideQuoteCache,
		ProvideSeriesStore,
		ProvideSearchService,
		ProvideViewTracker,
		ProvideAlertRegistry,
		ProvideAlertEvaluator,
		ProvideRefreshScheduler,
		ProvideWatchlistService,

		// HTTP
		ProvideRouter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
