// Package http serves the mock fixture endpoints, the replay control API,
// the playback stream, and the health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/fixture"
	"github.com/couchcryptid/flood-replay-service/internal/mapsurface"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FixtureSource serves raw fixture documents.
type FixtureSource interface {
	Get(doc fixture.Document) ([]byte, error)
}

// ReplayController is the playback surface the API drives.
// *replay.Controller satisfies it.
type ReplayController interface {
	sharedobs.ReadinessChecker
	Play() error
	Pause()
	SetSpeed(multiplier float64) error
	Seek(frameIndex int)
	Skip(deltaFrames int)
	State() domain.PlaybackState
	CurrentFrame() (domain.ReplayFrame, error)
	Dataset() (domain.ReplayDataset, error)
	SessionID() string
	Subscribe(buffer int) (<-chan domain.PlaybackUpdate, func())
}

// MapSurface is the map widget model. *mapsurface.Surface satisfies it.
type MapSurface interface {
	Acquire(width, height int) error
	SetLayerVisibility(layer mapsurface.Layer, visible bool) error
	Resize(width, height int) error
	Snapshot() mapsurface.Snapshot
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Fixtures FixtureSource
	Replay   ReplayController
	Map      MapSurface
	Region   domain.RegionLabel
	Metrics  *observability.Metrics
}

// Server exposes the service's HTTP API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer builds the router. Readiness is reported by the replay controller.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Replay))
	r.Handle("/metrics", promhttp.Handler())

	// The stream is long-lived and must stay outside the request timeout.
	r.Get("/api/replay/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))

		r.Get("/api/mock/{document}", s.handleMock)

		r.Route("/api/replay", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Get("/frame", s.handleFrame)
			r.Get("/events", s.handleEvents)
			r.Post("/play", s.handlePlay)
			r.Post("/pause", s.handlePause)
			r.Post("/speed", s.handleSpeed)
			r.Post("/seek", s.handleSeek)
			r.Post("/skip", s.handleSkip)
		})

		r.Get("/api/map", s.handleMapSnapshot)
		r.Put("/api/map/layers", s.handleMapLayers)
		r.Post("/api/map/resize", s.handleMapResize)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
// Hijacked stream connections are not tracked by net/http; they close when
// the controller closes their subscriptions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSpeed),
		errors.Is(err, mapsurface.ErrUnknownLayer),
		errors.Is(err, mapsurface.ErrZeroSize),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotLoaded),
		errors.Is(err, mapsurface.ErrNotAcquired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}

var errBadRequest = errors.New("bad request")

// decodeBody reads a small JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
