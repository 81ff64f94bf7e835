//go:build wireinject
// +build wireinject

package di

import (
	"BrokerConsole/pkg/config"
	"BrokerConsole/pkg/server"

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
		ProvideHTTPClient,
		ProvideBrokerAPI,
		ProvideSessionStorage,
		ProvideSessionStore,
		ProvideFeedDialer,
		ProvideFeedPipeline,
		ProvideLoginLimiter,
		ProvideUsersCache,

		// Use cases
		ProvideNavigationGate,
		ProvideAdminAuth,
		ProvideConsole,
		ProvideLiveChart,

		// Delivery
		ProvideWebHandler,
		ProvideRenderer,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
