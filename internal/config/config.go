package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Fixture data store.
	FixtureDir   string
	FixtureWatch bool

	// Replay playback.
	ReplayBaseInterval time.Duration
	ReplayAutoplay     bool

	// Mapbox configuration. An empty token degrades the map surface to a
	// placeholder and disables region geocoding.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxCountry   []string // ISO country filter, empty for worldwide

	// Frame relay to Kafka.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaFrameTopic string
	RelayBatchSize  int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	baseInterval, err := parsePositiveDuration("REPLAY_BASE_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	relayBatchSize, err := parseRelayBatchSize()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FixtureDir:   sharedcfg.EnvOrDefault("FIXTURE_DIR", "data/mock"),
		FixtureWatch: os.Getenv("FIXTURE_WATCH") == "true",

		ReplayBaseInterval: baseInterval,
		ReplayAutoplay:     os.Getenv("REPLAY_AUTOPLAY") == "true",

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		MapboxCountry:   parseCountryCodes(os.Getenv("MAPBOX_COUNTRY")),

		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFrameTopic: sharedcfg.EnvOrDefault("KAFKA_FRAME_TOPIC", "replay-frames"),
		RelayBatchSize:  relayBatchSize,
	}

	if cfg.FixtureDir == "" {
		return nil, errors.New("FIXTURE_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaFrameTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_FRAME_TOPIC is empty")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseRelayBatchSize() (int, error) {
	s := sharedcfg.EnvOrDefault("RELAY_BATCH_SIZE", "10")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 1000 {
		return 0, fmt.Errorf("invalid RELAY_BATCH_SIZE %q: must be 1-1000", s)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// parseCountryCodes splits a comma-separated ISO 3166 alpha-2 list into the
// lowercase codes the geocoding API expects. Blank entries are dropped.
func parseCountryCodes(s string) []string {
	var codes []string
	for _, part := range strings.Split(s, ",") {
		if code := strings.ToLower(strings.TrimSpace(part)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
