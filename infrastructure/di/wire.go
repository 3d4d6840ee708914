//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"prefill/application/ports"
	"prefill/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideMappingStore,
	ProvideEventPublisher,
	ProvideCollector,
	ProvideMetrics,
	ProvideRecorder,
	ProvideTracer,
	ProvideGlobalNodeCatalog,
	ProvideGraphSource,
	ProvideInMemoryCache,
	wire.Bind(new(ports.Cache), new(*InMemoryCache)),
	ProvideGraphLoader,
	ProvideSessionService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	ProvideRateLimiter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
