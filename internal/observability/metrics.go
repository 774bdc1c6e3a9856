package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the replay service.
type Metrics struct {
	// Playback metrics.
	FramesAdvanced  prometheus.Counter
	Seeks           prometheus.Counter
	UpdatesDropped  prometheus.Counter
	PlaybackPlaying prometheus.Gauge
	PlaybackSpeed   prometheus.Gauge
	StreamClients   prometheus.Gauge

	// Fixture metrics.
	FixtureRequests *prometheus.CounterVec // labels: document, status
	FixtureReloads  *prometheus.CounterVec // labels: document, outcome={success,error}

	// Relay metrics.
	RelayProduced  prometheus.Counter
	RelayErrors    prometheus.Counter
	RelayRunning   prometheus.Gauge
	RelayBatchSize prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FramesAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "frames_advanced_total",
			Help:      "Total frames advanced by the playback ticker.",
		}),
		Seeks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "seeks_total",
			Help:      "Total seek and skip operations.",
		}),
		UpdatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "updates_dropped_total",
			Help:      "Playback updates dropped because a subscriber was full.",
		}),
		PlaybackPlaying: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_replay",
			Name:      "playback_playing",
			Help:      "1 while the replay is playing, 0 when paused.",
		}),
		PlaybackSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_replay",
			Name:      "playback_speed_multiplier",
			Help:      "Current playback speed multiplier.",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_replay",
			Name:      "stream_clients",
			Help:      "Connected websocket stream clients.",
		}),
		FixtureRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "fixture_requests_total",
			Help:      "Mock endpoint requests by document and HTTP status.",
		}, []string{"document", "status"}),
		FixtureReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "fixture_reloads_total",
			Help:      "Fixture hot reloads by document and outcome.",
		}, []string{"document", "outcome"}),
		RelayProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "relay_messages_produced_total",
			Help:      "Total playback updates written to the relay sink.",
		}),
		RelayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "relay_errors_total",
			Help:      "Total relay sink write failures.",
		}),
		RelayRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_replay",
			Name:      "relay_running",
			Help:      "1 when the relay is active, 0 when shut down.",
		}),
		RelayBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_replay",
			Name:      "relay_batch_size",
			Help:      "Number of updates per relay batch.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_replay",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flood_replay",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_replay",
			Name:      "geocode_enabled",
			Help:      "1 when region geocoding is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.FramesAdvanced,
		m.Seeks,
		m.UpdatesDropped,
		m.PlaybackPlaying,
		m.PlaybackSpeed,
		m.StreamClients,
		m.FixtureRequests,
		m.FixtureReloads,
		m.RelayProduced,
		m.RelayErrors,
		m.RelayRunning,
		m.RelayBatchSize,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FramesAdvanced:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_replay", Name: "frames_advanced_total"}),
		Seeks:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_replay", Name: "seeks_total"}),
		UpdatesDropped:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_replay", Name: "updates_dropped_total"}),
		PlaybackPlaying:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_replay", Name: "playback_playing"}),
		PlaybackSpeed:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_replay", Name: "playback_speed_multiplier"}),
		StreamClients:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_replay", Name: "stream_clients"}),
		FixtureRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_replay", Name: "fixture_requests_total"}, []string{"document", "status"}),
		FixtureReloads:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_replay", Name: "fixture_reloads_total"}, []string{"document", "outcome"}),
		RelayProduced:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_replay", Name: "relay_messages_produced_total"}),
		RelayErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_replay", Name: "relay_errors_total"}),
		RelayRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_replay", Name: "relay_running"}),
		RelayBatchSize:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_replay", Name: "relay_batch_size"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_replay", Name: "geocode_requests_total"}, []string{"method", "outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_replay", Name: "geocode_cache_total"}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "flood_replay", Name: "geocode_api_duration_seconds"}, []string{"method"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_replay", Name: "geocode_enabled"}),
	}
}
