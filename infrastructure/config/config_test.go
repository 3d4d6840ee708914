package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "memory", cfg.MappingStore)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.True(t, cfg.UpstreamBreakerEnabled)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_address: ":9090"
blueprint_server_url: "http://blueprints.internal/api/v1"
upstream_timeout: 3s
graph_cache_ttl: 1m
rate_limit_per_minute: 10
allowed_origins: ["https://app.example.com"]
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "25")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, "http://blueprints.internal/api/v1", cfg.BlueprintServerURL)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 25, cfg.RateLimitPerMinute, "environment wins over file")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.DomainConfig().GraphCacheTTL)
	assert.Equal(t, []string{"defaults", path, "environment"}, cfg.LoadedFrom)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_address: [unclosed"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing upstream", func(c *Config) { c.BlueprintServerURL = "" }, "BLUEPRINT_SERVER_URL is required"},
		{"relative upstream", func(c *Config) { c.BlueprintServerURL = "/api" }, "absolute URL"},
		{"unknown store", func(c *Config) { c.MappingStore = "redis" }, "unknown MAPPING_STORE"},
		{"dynamodb without table", func(c *Config) { c.MappingStore = "dynamodb"; c.DynamoDBTable = "" }, "DYNAMODB_TABLE"},
		{"events without bus", func(c *Config) { c.EnableEvents = true }, "EVENT_BUS_NAME"},
		{"watch without file", func(c *Config) { c.WatchGlobalNodes = true }, "GLOBAL_NODES_FILE"},
		{"production without secret", func(c *Config) { c.Environment = "production" }, "JWT_SECRET"},
		{"zero mapping limit", func(c *Config) { c.MaxMappingsPerSession = 0 }, "MaxMappingsPerSession"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_DURATION", "90s")

	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, "fallback", getEnv("TEST_UNSET_VALUE", "fallback"))
}
