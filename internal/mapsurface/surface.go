// Package mapsurface models the map widget the replay view draws into:
// which overlay layers are visible, the heatmap source fed from the current
// frame, and the container lifecycle.
//
// Without a Mapbox token the surface runs as a placeholder. Every operation
// is accepted and logged and none of them fail, so the rest of the replay
// view keeps working without map credentials.
package mapsurface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
)

var (
	ErrUnknownLayer = errors.New("unknown map layer")
	ErrZeroSize     = errors.New("map container has zero size")
	ErrNotAcquired  = errors.New("map surface not acquired")
)

// Layer is one toggleable map overlay.
type Layer string

const (
	Rainfall    Layer = "rainfall"
	RiverLevels Layer = "riverLevels"
	FloodZones  Layer = "floodZones"
	Clouds      Layer = "clouds"
)

// Layers lists every overlay in draw order.
var Layers = []Layer{Rainfall, RiverLevels, FloodZones, Clouds}

// Valid reports whether l is a known overlay.
func (l Layer) Valid() bool {
	for _, known := range Layers {
		if l == known {
			return true
		}
	}
	return false
}

// DefaultVisibility is the layer set shown by the replay view.
func DefaultVisibility() map[Layer]bool {
	return map[Layer]bool{
		Rainfall:    true,
		RiverLevels: true,
		FloodZones:  true,
		Clouds:      false,
	}
}

// Snapshot is a point-in-time copy of the surface.
type Snapshot struct {
	Placeholder bool              `json:"placeholder"`
	Acquired    bool              `json:"acquired"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Layers      map[Layer]bool    `json:"layers"`
	FrameID     int               `json:"frameId"`
	Heatmap     FeatureCollection `json:"heatmap"`
	Refreshes   int               `json:"refreshes"`
}

// Surface is the map display. It is safe for concurrent use.
type Surface struct {
	placeholder bool
	logger      *slog.Logger

	mu        sync.Mutex
	acquired  bool
	width     int
	height    int
	layers    map[Layer]bool
	frameID   int
	heatmap   FeatureCollection
	refreshes int
}

// New creates a surface. An empty token yields a placeholder.
func New(token string, logger *slog.Logger) *Surface {
	s := &Surface{
		placeholder: token == "",
		logger:      logger,
		layers:      DefaultVisibility(),
		heatmap:     HeatmapFeatures(nil),
	}
	if s.placeholder {
		logger.Info("mapbox token not set, map surface running as placeholder")
	}
	return s
}

// Placeholder reports whether the surface has no map behind it.
func (s *Surface) Placeholder() bool {
	return s.placeholder
}

// Acquire binds the surface to a container of the given size. The map is
// only created once the container has a non-zero size; calling Acquire
// again on a live surface updates its size.
func (s *Surface) Acquire(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.placeholder {
		s.logger.Debug("placeholder acquire", "width", width, "height", height)
		s.acquired = true
		s.width, s.height = width, height
		return nil
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("acquire %dx%d: %w", width, height, ErrZeroSize)
	}

	s.acquired = true
	s.width, s.height = width, height
	s.logger.Info("map surface acquired", "width", width, "height", height)
	return nil
}

// Release frees the map. It is a no-op when nothing is acquired.
func (s *Surface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acquired {
		return
	}
	s.acquired = false
	s.width, s.height = 0, 0
	s.logger.Info("map surface released")
}

// SetLayerVisibility shows or hides one overlay. Visibility set before
// Acquire applies once the map exists.
func (s *Surface) SetLayerVisibility(layer Layer, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !layer.Valid() {
		if s.placeholder {
			s.logger.Debug("placeholder ignoring unknown layer", "layer", layer)
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	s.layers[layer] = visible
	s.logger.Debug("layer visibility set", "layer", layer, "visible", visible)
	return nil
}

// SetHeatmapData replaces the rainfall heatmap source in place with the
// given frame's points.
func (s *Surface) SetHeatmapData(frameID int, points []domain.RainfallPoint) {
	fc := HeatmapFeatures(points)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.frameID = frameID
	s.heatmap = fc
}

// Resize tells the map its container changed size and redraws it.
func (s *Surface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.placeholder {
		s.logger.Debug("placeholder resize", "width", width, "height", height)
		s.width, s.height = width, height
		s.refreshes++
		return nil
	}
	if !s.acquired {
		return ErrNotAcquired
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize %dx%d: %w", width, height, ErrZeroSize)
	}
	s.width, s.height = width, height
	s.refreshes++
	return nil
}

// Snapshot returns a copy of the current surface state.
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Placeholder: s.placeholder,
		Acquired:    s.acquired,
		Width:       s.width,
		Height:      s.height,
		Layers:      maps.Clone(s.layers),
		FrameID:     s.frameID,
		Heatmap:     s.heatmap,
		Refreshes:   s.refreshes,
	}
}

// Follow applies every playback update carrying a frame to the heatmap
// until ctx is cancelled or updates is closed.
func (s *Surface) Follow(ctx context.Context, updates <-chan domain.PlaybackUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Frame != nil {
				s.SetHeatmapData(u.Frame.FrameID, u.Frame.RainfallLayer)
			}
		}
	}
}
