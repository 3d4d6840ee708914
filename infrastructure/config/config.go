package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	domainconfig "prefill/domain/config"

	"gopkg.in/yaml.v3"
)

// Mapping store backends
const (
	MappingStoreMemory   = "memory"
	MappingStoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string        `yaml:"server_address"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Upstream blueprint server
	BlueprintServerURL     string        `yaml:"blueprint_server_url"`
	UpstreamTimeout        time.Duration `yaml:"upstream_timeout"`
	UpstreamBreakerEnabled bool          `yaml:"upstream_breaker_enabled"`
	GlobalNodesFile        string        `yaml:"global_nodes_file"`
	WatchGlobalNodes       bool          `yaml:"watch_global_nodes"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region"`
	MappingStore     string `yaml:"mapping_store"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	EventBusName     string `yaml:"event_bus_name"`
	MetricsNamespace string `yaml:"metrics_namespace"`

	// Lambda configuration
	IsLambda           bool   `yaml:"is_lambda"`
	LambdaFunctionName string `yaml:"-"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret   string `yaml:"-"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience"`

	// Rate limiting
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// Sessions
	SessionTimeout        time.Duration `yaml:"session_timeout"`
	SessionSweepInterval  time.Duration `yaml:"session_sweep_interval"`
	GraphCacheTTL         time.Duration `yaml:"graph_cache_ttl"`
	MaxMappingsPerSession int           `yaml:"max_mappings_per_session"`
	DisambiguateEdges     bool          `yaml:"disambiguate_edges"`

	// Feature flags
	EnableMetrics  bool     `yaml:"enable_metrics"`
	EnableTracing  bool     `yaml:"enable_tracing"`
	EnableEvents   bool     `yaml:"enable_events"`
	EnableCORS     bool     `yaml:"enable_cors"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// LoadedFrom lists the sources the configuration was read from
	LoadedFrom []string `yaml:"-"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	domain := domainconfig.DefaultDomainConfig()
	return &Config{
		ServerAddress:   ":8080",
		Environment:     "development",
		ShutdownTimeout: 30 * time.Second,

		BlueprintServerURL:     "http://localhost:3000/api/v1",
		UpstreamTimeout:        10 * time.Second,
		UpstreamBreakerEnabled: true,

		AWSRegion:        "us-west-2",
		MappingStore:     MappingStoreMemory,
		DynamoDBTable:    "prefill-mappings",
		EventBusName:     "",
		MetricsNamespace: "Prefill",

		LogLevel:  "info",
		JWTIssuer: "prefill",

		RateLimitPerMinute: 60,

		SessionTimeout:        domain.SessionTimeout,
		SessionSweepInterval:  time.Minute,
		GraphCacheTTL:         domain.GraphCacheTTL,
		MaxMappingsPerSession: domain.MaxMappingsPerSession,
		DisambiguateEdges:     domain.DisambiguateParallelEdges,

		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
	}
}

// LoadConfig loads configuration: defaults, then the YAML file named by
// CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = []string{"defaults"}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	cfg.loadEnvironmentVariables()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironmentVariables() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.BlueprintServerURL = getEnv("BLUEPRINT_SERVER_URL", c.BlueprintServerURL)
	c.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", c.UpstreamTimeout)
	c.UpstreamBreakerEnabled = getEnvBool("UPSTREAM_BREAKER_ENABLED", c.UpstreamBreakerEnabled)
	c.GlobalNodesFile = getEnv("GLOBAL_NODES_FILE", c.GlobalNodesFile)
	c.WatchGlobalNodes = getEnvBool("WATCH_GLOBAL_NODES", c.WatchGlobalNodes)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.MappingStore = getEnv("MAPPING_STORE", c.MappingStore)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.MetricsNamespace = getEnv("METRICS_NAMESPACE", c.MetricsNamespace)

	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda)
	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", c.LambdaFunctionName)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.JWTAudience = getEnv("JWT_AUDIENCE", c.JWTAudience)

	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.SessionTimeout = getEnvDuration("SESSION_TIMEOUT", c.SessionTimeout)
	c.SessionSweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", c.SessionSweepInterval)
	c.GraphCacheTTL = getEnvDuration("GRAPH_CACHE_TTL", c.GraphCacheTTL)
	c.MaxMappingsPerSession = getEnvInt("MAX_MAPPINGS_PER_SESSION", c.MaxMappingsPerSession)
	c.DisambiguateEdges = getEnvBool("DISAMBIGUATE_EDGES", c.DisambiguateEdges)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableEvents = getEnvBool("ENABLE_EVENTS", c.EnableEvents)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.AllowedOrigins)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.BlueprintServerURL == "" {
		return fmt.Errorf("BLUEPRINT_SERVER_URL is required")
	}
	if u, err := url.Parse(c.BlueprintServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BLUEPRINT_SERVER_URL must be an absolute URL")
	}
	switch c.MappingStore {
	case MappingStoreMemory:
	case MappingStoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb mapping store")
		}
	default:
		return fmt.Errorf("unknown MAPPING_STORE %q", c.MappingStore)
	}
	if c.EnableEvents && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}
	if c.WatchGlobalNodes && c.GlobalNodesFile == "" {
		return fmt.Errorf("WATCH_GLOBAL_NODES requires GLOBAL_NODES_FILE")
	}
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}
	if err := c.DomainConfig().Validate(); err != nil {
		return err
	}

	return nil
}

// DomainConfig returns the domain rules with the configured overrides applied
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	d := domainconfig.DefaultDomainConfig()
	d.SessionTimeout = c.SessionTimeout
	d.GraphCacheTTL = c.GraphCacheTTL
	d.MaxMappingsPerSession = c.MaxMappingsPerSession
	d.DisambiguateParallelEdges = c.DisambiguateEdges
	return d
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration parses values such as "30s" or "5m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
