package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/mock", cfg.FixtureDir)
	assert.False(t, cfg.FixtureWatch)
	assert.Equal(t, time.Second, cfg.ReplayBaseInterval)
	assert.False(t, cfg.ReplayAutoplay)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.Empty(t, cfg.MapboxCountry)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "replay-frames", cfg.KafkaFrameTopic)
	assert.Equal(t, 10, cfg.RelayBatchSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FIXTURE_DIR", "/srv/fixtures")
	t.Setenv("FIXTURE_WATCH", "true")
	t.Setenv("REPLAY_BASE_INTERVAL", "500ms")
	t.Setenv("REPLAY_AUTOPLAY", "true")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("MAPBOX_COUNTRY", "in, bd")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_FRAME_TOPIC", "custom-frames")
	t.Setenv("RELAY_BATCH_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/fixtures", cfg.FixtureDir)
	assert.True(t, cfg.FixtureWatch)
	assert.Equal(t, 500*time.Millisecond, cfg.ReplayBaseInterval)
	assert.True(t, cfg.ReplayAutoplay)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.Equal(t, []string{"in", "bd"}, cfg.MapboxCountry)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-frames", cfg.KafkaFrameTopic)
	assert.Equal(t, 25, cfg.RelayBatchSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "shutdown timeout", env: map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, wantErr: "SHUTDOWN_TIMEOUT"},
		{name: "negative base interval", env: map[string]string{"REPLAY_BASE_INTERVAL": "-1s"}, wantErr: "REPLAY_BASE_INTERVAL"},
		{name: "zero base interval", env: map[string]string{"REPLAY_BASE_INTERVAL": "0s"}, wantErr: "REPLAY_BASE_INTERVAL"},
		{name: "mapbox timeout", env: map[string]string{"MAPBOX_TIMEOUT": "bad"}, wantErr: "MAPBOX_TIMEOUT"},
		{name: "zero batch size", env: map[string]string{"RELAY_BATCH_SIZE": "0"}, wantErr: "RELAY_BATCH_SIZE"},
		{name: "huge batch size", env: map[string]string{"RELAY_BATCH_SIZE": "5000"}, wantErr: "RELAY_BATCH_SIZE"},
		{name: "mapbox enabled without token", env: map[string]string{"MAPBOX_ENABLED": "true"}, wantErr: "MAPBOX_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidMapboxCacheSizeFallsBack(t *testing.T) {
	t.Setenv("MAPBOX_CACHE_SIZE", "-3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxCountryNormalized(t *testing.T) {
	t.Setenv("MAPBOX_COUNTRY", " IN,,bd , ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "bd"}, cfg.MapboxCountry)
}
