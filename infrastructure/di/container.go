package di

import (
	"context"
	"errors"

	"prefill/application/commands/bus"
	querybus "prefill/application/queries/bus"
	"prefill/application/services"
	"prefill/infrastructure/blueprint"
	"prefill/infrastructure/config"
	"prefill/pkg/auth"
	"prefill/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Sessions    *services.SessionService
	Catalog     *blueprint.GlobalNodeCatalog
	Cache       *InMemoryCache
	Collector   *observability.Collector
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
	Validator   *auth.JWTValidator
	RateLimiter *auth.TokenBucketLimiter
}

// Close releases background resources and flushes buffered metrics
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.Metrics != nil {
		if err := c.Metrics.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Catalog != nil {
		if err := c.Catalog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.RateLimiter != nil {
		c.RateLimiter.Close()
	}
	if c.Cache != nil {
		c.Cache.Close()
	}

	return errors.Join(errs...)
}
