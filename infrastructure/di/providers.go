package di

import (
	"context"
	"fmt"

	"prefill/application/commands/bus"
	commandhandlers "prefill/application/commands/handlers"
	"prefill/application/ports"
	querybus "prefill/application/queries/bus"
	queryhandlers "prefill/application/queries/handlers"
	"prefill/application/services"
	domainconfig "prefill/domain/config"
	"prefill/infrastructure/blueprint"
	"prefill/infrastructure/config"
	"prefill/infrastructure/messaging/eventbridge"
	"prefill/infrastructure/persistence/dynamodb"
	"prefill/infrastructure/persistence/memory"
	"prefill/pkg/auth"
	"prefill/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// ProvideDomainConfig derives the business rules from the service configuration
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMappingStore creates the snapshot store selected by MAPPING_STORE
func ProvideMappingStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.MappingStore {
	if cfg.MappingStore == config.MappingStoreDynamoDB {
		return dynamodb.NewMappingStore(client, cfg.DynamoDBTable, logger)
	}
	return memory.NewMappingStore()
}

// ProvideEventPublisher publishes to EventBridge when events are enabled and
// logs them otherwise
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EnableEvents && cfg.EventBusName != "" {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return eventbridge.NewLoggingPublisher(logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector("prefill")
}

// ProvideMetrics creates the CloudWatch metrics buffer, or nil when metrics are disabled
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	return observability.NewMetrics(namespace, client).WithLogger(logger)
}

// ProvideRecorder fans bus metrics out to Prometheus and, when enabled, CloudWatch
func ProvideRecorder(collector *observability.Collector, metrics *observability.Metrics) observability.Recorder {
	if metrics == nil {
		return collector
	}
	return observability.MultiRecorder{collector, metrics}
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("prefill", cfg.EnableTracing)
}

// ProvideGlobalNodeCatalog serves the built-in global nodes, or the ones of
// GLOBAL_NODES_FILE, watched when WATCH_GLOBAL_NODES is set
func ProvideGlobalNodeCatalog(cfg *config.Config, logger *zap.Logger) (*blueprint.GlobalNodeCatalog, error) {
	if cfg.GlobalNodesFile == "" {
		return blueprint.NewDefaultCatalog()
	}

	catalog, err := blueprint.NewFileCatalog(cfg.GlobalNodesFile, logger)
	if err != nil {
		return nil, err
	}
	if cfg.WatchGlobalNodes {
		if err := catalog.Watch(); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// ProvideGraphSource creates the blueprint server client
func ProvideGraphSource(cfg *config.Config, tracer *observability.Tracer, logger *zap.Logger) *blueprint.HTTPSource {
	return blueprint.NewHTTPSource(blueprint.HTTPSourceConfig{
		BaseURL:        cfg.BlueprintServerURL,
		Timeout:        cfg.UpstreamTimeout,
		BreakerEnabled: cfg.UpstreamBreakerEnabled,
	}, tracer, logger)
}

// ProvideInMemoryCache creates the graph cache
func ProvideInMemoryCache() *InMemoryCache {
	return NewInMemoryCache()
}

// ProvideGraphLoader creates the graph loader
func ProvideGraphLoader(
	source *blueprint.HTTPSource,
	catalog *blueprint.GlobalNodeCatalog,
	cache ports.Cache,
	domainCfg *domainconfig.DomainConfig,
	cfg *config.Config,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.GraphLoader {
	return services.NewGraphLoader(source, catalog, cache, domainCfg, cfg.UpstreamTimeout, logger).
		WithObserver(collector)
}

// ProvideSessionService creates the session service
func ProvideSessionService(
	loader *services.GraphLoader,
	store ports.MappingStore,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.SessionService {
	return services.NewSessionService(loader, store, publisher, domainCfg, logger).
		WithObserver(collector)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	sessions *services.SessionService,
	recorder observability.Recorder,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(&zapLoggerAdapter{logger}),
		bus.MetricsMiddleware(recorder),
	)

	handler := commandhandlers.NewSessionCommandHandler(sessions, logger)
	if err := handler.Register(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(sessions *services.SessionService, recorder observability.Recorder) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	metrics := querybus.NewMetricsMiddleware(recorder)

	if err := queryhandlers.Register(queryBus, sessions, metrics.Wrap); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideJWTValidator creates the token validator, or nil when no secret is configured
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}

	var audience []string
	if cfg.JWTAudience != "" {
		audience = []string{cfg.JWTAudience}
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      audience,
	})
}

// ProvideRateLimiter creates the per-IP limiter for session creation
func ProvideRateLimiter(cfg *config.Config) *auth.TokenBucketLimiter {
	return auth.NewIPRateLimiter(cfg.RateLimitPerMinute)
}

// zapLoggerAdapter adapts zap.Logger to the bus.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, _ := fields[i].(string)
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}
