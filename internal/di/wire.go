//go:build wireinject
// +build wireinject

package di

import (
	"FundPulse/pkg/config"
	"FundPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// market clock
		ProvideLocation,
		ProvideResolver,
		ProvideSession,

		// storage
		ProvideRedisMirror,
		ProvideStore,

		// upstream sources
		ProvideHTTPClient,
		ProvideYahoo,
		ProvideChains,

		// domain services
		ProvideUniverse,
		ProvideClickHouse,
		ProvideHistory,
		ProvideQuoteService,
		ProvideMarketData,
		ProvideBlender,
		ProvidePredictionService,
		ProvideLimiter,
		ProvideJobCoordinator,
		ProvideDailyJob,

		// surfaces
		ProvideScheduler,
		ProvideHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
