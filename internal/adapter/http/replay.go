package http

import (
	"net/http"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
)

type stateResponse struct {
	SessionID     string               `json:"sessionId,omitempty"`
	State         domain.PlaybackState `json:"state"`
	Progress      float64              `json:"progress"`
	AllowedSpeeds []float64            `json:"allowedSpeeds"`
	Region        *domain.RegionLabel  `json:"region,omitempty"`
	StartTime     string               `json:"startTime,omitempty"`
	EndTime       string               `json:"endTime,omitempty"`
	Frame         *domain.FrameSummary `json:"frame,omitempty"`
}

type frameResponse struct {
	Frame   domain.ReplayFrame  `json:"frame"`
	Summary domain.FrameSummary `json:"summary"`
}

type eventsResponse struct {
	Events []domain.TimelineMarker `json:"events"`
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

type seekRequest struct {
	Frame int `json:"frame"`
}

type skipRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := s.deps.Replay.CurrentFrame()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frameResponse{Frame: frame, Summary: domain.Summarize(frame)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ds, err := s.deps.Replay.Dataset()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: ds.Markers()})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Replay.Play(); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.deps.Replay.Pause()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Replay.SetSpeed(req.Multiplier); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.deps.Replay.Seek(req.Frame)
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req skipRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.deps.Replay.Skip(req.Delta)
	writeJSON(w, http.StatusOK, s.snapshot())
}

// snapshot assembles the state panel view. Before a dataset is loaded it
// carries only the default state.
func (s *Server) snapshot() stateResponse {
	st := s.deps.Replay.State()
	resp := stateResponse{
		SessionID:     s.deps.Replay.SessionID(),
		State:         st,
		Progress:      st.Progress(),
		AllowedSpeeds: domain.AllowedSpeeds,
	}
	if s.deps.Region.Source != "" {
		region := s.deps.Region
		resp.Region = &region
	}
	if ds, err := s.deps.Replay.Dataset(); err == nil {
		resp.StartTime = ds.StartTime
		resp.EndTime = ds.EndTime
	}
	if frame, err := s.deps.Replay.CurrentFrame(); err == nil {
		summary := domain.Summarize(frame)
		resp.Frame = &summary
	}
	return resp
}
