package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.False(t, cfg.CacheEnabled)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoadFrom_TrustProxyHeaders(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"TRUST_PROXY_HEADERS": "true"})
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestLoadFrom_Postgres(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"STORAGE_DRIVER":  "postgres",
		"POSTGRES_HOST":   "db",
		"CATALOG_DB_NAME": "courses",
		"DB_MAX_CONNS":    "10",
	})
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db", pg.Host)
	assert.Equal(t, int32(10), pg.MaxConns)
	assert.Equal(t, time.Hour, pg.MaxConnLifetime)
	assert.Equal(t, "postgres://catalog:catalog_secret@db:5432/courses?sslmode=disable", pg.DSN())
}

func TestLoadFrom_ListsSplitOnComma(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS().AllowedOrigins)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		msg  string
	}{
		{"port", map[string]string{"CATALOG_HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"driver", map[string]string{"STORAGE_DRIVER": "mongo"}, "STORAGE_DRIVER"},
		{"cache ttl", map[string]string{"CACHE_ENABLED": "true", "CACHE_TTL_SECONDS": "0"}, "CACHE_TTL_SECONDS"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
		{"unparseable", map[string]string{"CATALOG_HTTP_PORT": "http"}, "load catalog config"},
		{"rate burst", map[string]string{"WRITE_RATE_LIMIT_BURST": "0"}, "WRITE_RATE_LIMIT"},
		{"breaker ratio", map[string]string{"STORAGE_BREAKER_FAILURE_RATIO": "0"}, "STORAGE_BREAKER_FAILURE_RATIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestConfig_Validate_PostgresNeedsHost(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	cfg.StorageDriver = StoragePostgres
	cfg.PostgresHost = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_HOST")
}

func TestConfig_Validate_EventsNeedBrokers(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"EVENTS_ENABLED": "true"})
	require.NoError(t, err)

	cfg.KafkaBrokers = nil
	assert.Error(t, cfg.Validate())
}

func TestConfig_Tracing(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"OTEL_ENABLED": "true", "OTEL_SAMPLE_RATE": "0.25", "ENVIRONMENT": "staging"})
	require.NoError(t, err)

	tc := cfg.Tracing()
	assert.True(t, tc.Enabled)
	assert.Equal(t, ServiceName, tc.ServiceName)
	assert.Equal(t, 0.25, tc.SampleRate)
	assert.Equal(t, "staging", tc.Environment)
}

func TestConfig_Breaker(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"STORAGE_BREAKER_TIMEOUT_SECONDS": "5",
		"STORAGE_BREAKER_MIN_REQUESTS":    "10",
	})
	require.NoError(t, err)
	assert.True(t, cfg.BreakerEnabled)

	b := cfg.Breaker()
	assert.Equal(t, "storage", b.Name)
	assert.Equal(t, 5*time.Second, b.Timeout)
	assert.Equal(t, uint32(10), b.MinRequests)
	assert.Equal(t, 0.5, b.FailureRatio)
}
