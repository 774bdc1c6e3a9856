package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/flood-replay-service/internal/fixture"
	"github.com/go-chi/chi/v5"
)

// handleMock returns a fixture document byte-for-byte.
func (s *Server) handleMock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "document")
	doc, ok := fixture.DocumentForFile(name + ".json")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown mock document %q", name)})
		return
	}

	data, err := s.deps.Fixtures.Get(doc)
	if err != nil {
		s.deps.Metrics.FixtureRequests.WithLabelValues(string(doc), strconv.Itoa(http.StatusInternalServerError)).Inc()
		s.writeError(w, r, err)
		return
	}

	s.deps.Metrics.FixtureRequests.WithLabelValues(string(doc), strconv.Itoa(http.StatusOK)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
