package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/flood-replay-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-replay-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-replay-service/internal/adapter/mapbox"
	"github.com/couchcryptid/flood-replay-service/internal/config"
	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/fixture"
	"github.com/couchcryptid/flood-replay-service/internal/mapsurface"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
	"github.com/couchcryptid/flood-replay-service/internal/pipeline"
	"github.com/couchcryptid/flood-replay-service/internal/replay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Missing snapshot fixtures only break their mock endpoint; the replay
	// dataset is required.
	store := fixture.NewStore(os.DirFS(cfg.FixtureDir), logger, metrics)
	if err := store.LoadAll(); err != nil {
		logger.Warn("some fixtures are unavailable", "dir", cfg.FixtureDir, "error", err)
	}
	dataset, err := store.ReplayDataset()
	if err != nil {
		logger.Error("failed to load replay dataset", "dir", cfg.FixtureDir, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctl := replay.New(cfg.ReplayBaseInterval, logger, metrics)

	// Subscribe the map before loading so it sees the first frame.
	surface := mapsurface.New(cfg.MapboxToken, logger)
	mapUpdates, unsubscribeMap := ctl.Subscribe(8)
	defer unsubscribeMap()
	go surface.Follow(ctx, mapUpdates)

	if err := ctl.Load(dataset); err != nil {
		logger.Error("failed to start replay session", "error", err)
		os.Exit(1)
	}

	region := labelRegion(ctx, cfg, dataset, metrics, logger)

	// Frame relay (feature-flagged via KAFKA_ENABLED).
	var writer *kafkaadapter.Writer
	relayDone := make(chan struct{})
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		relay := pipeline.New(ctl, writer, logger, metrics, cfg.RelayBatchSize)
		go func() {
			defer close(relayDone)
			if err := relay.Run(ctx); err != nil {
				logger.Error("relay error", "error", err)
			}
		}()
	} else {
		close(relayDone)
		logger.Info("frame relay disabled")
	}

	if cfg.FixtureWatch {
		go func() {
			if err := store.Watch(ctx, cfg.FixtureDir); err != nil {
				logger.Error("fixture watcher error", "error", err)
			}
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Fixtures: store,
		Replay:   ctl,
		Map:      surface,
		Region:   region,
		Metrics:  metrics,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if cfg.ReplayAutoplay {
		if err := ctl.Play(); err != nil {
			logger.Error("autoplay failed", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	// Closing the controller ends every subscription, including open streams.
	ctl.Close()
	surface.Release()

	select {
	case <-relayDone:
	case <-shutdownCtx.Done():
		logger.Warn("relay did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// labelRegion names the replay area through Mapbox when geocoding is
// enabled (MAPBOX_ENABLED / MAPBOX_TOKEN).
func labelRegion(ctx context.Context, cfg *config.Config, ds domain.ReplayDataset, metrics *observability.Metrics, logger *slog.Logger) domain.RegionLabel {
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger,
			mapbox.WithCountry(cfg.MapboxCountry...))
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("geocode cache disabled", "error", err)
			geocoder = client
		} else {
			geocoder = cached
		}
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	labelCtx, cancel := context.WithTimeout(ctx, cfg.MapboxTimeout+time.Second)
	defer cancel()
	label := domain.LabelRegion(labelCtx, ds, geocoder, logger)
	logger.Info("replay region labelled", "name", label.Name, "source", label.Source)
	return label
}
