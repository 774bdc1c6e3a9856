package http

import (
	"fmt"
	"net/http"

	"github.com/couchcryptid/flood-replay-service/internal/mapsurface"
)

type layersRequest struct {
	Layers map[mapsurface.Layer]bool `json:"layers"`
}

type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleMapSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Map.Snapshot())
}

// handleMapLayers applies every requested visibility. Unknown layers are
// rejected before any change is made.
func (s *Server) handleMapLayers(w http.ResponseWriter, r *http.Request) {
	var req layersRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.deps.Map.Snapshot().Placeholder {
		for layer := range req.Layers {
			if !layer.Valid() {
				s.writeError(w, r, fmt.Errorf("%w: %q", mapsurface.ErrUnknownLayer, layer))
				return
			}
		}
	}
	for layer, visible := range req.Layers {
		if err := s.deps.Map.SetLayerVisibility(layer, visible); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.deps.Map.Snapshot())
}

// handleMapResize reports the container size. The first non-zero size
// acquires the map; later calls resize it.
func (s *Server) handleMapResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var err error
	if s.deps.Map.Snapshot().Acquired {
		err = s.deps.Map.Resize(req.Width, req.Height)
	} else {
		err = s.deps.Map.Acquire(req.Width, req.Height)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Map.Snapshot())
}
