// Package fixture loads the static JSON documents behind the mock endpoints
// and the replay view.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
)

// ErrUnavailable is returned for a document that is missing or unreadable.
var ErrUnavailable = errors.New("fixture unavailable")

// Document names one fixture file.
type Document string

const (
	Weather Document = "weather"
	Rivers  Document = "rivers"
	Predict Document = "predict"
	Replay  Document = "replay"
)

// Documents lists every fixture the service serves.
var Documents = []Document{Weather, Rivers, Predict, Replay}

// Filename is the document's file name inside the fixture directory.
func (d Document) Filename() string {
	return string(d) + ".json"
}

// Reloadable reports whether the document may be hot reloaded. The replay
// dataset is loaded once per session and never swapped underneath the
// controller.
func (d Document) Reloadable() bool {
	return d != Replay
}

// DocumentForFile maps a file name back to its document.
func DocumentForFile(name string) (Document, bool) {
	for _, d := range Documents {
		if d.Filename() == name {
			return d, true
		}
	}
	return "", false
}

// Store holds the raw bytes of every fixture document.
type Store struct {
	fsys    fs.FS
	logger  *slog.Logger
	metrics *observability.Metrics

	mu   sync.RWMutex
	docs map[Document][]byte
	errs map[Document]error
}

// NewStore creates a store reading from fsys. Nothing is read until LoadAll.
func NewStore(fsys fs.FS, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		fsys:    fsys,
		logger:  logger,
		metrics: metrics,
		docs:    make(map[Document][]byte),
		errs:    make(map[Document]error),
	}
}

// LoadAll reads every document. Documents that fail stay unavailable and
// their errors are joined into the returned error; the rest are served.
func (s *Store) LoadAll() error {
	var errs []error
	for _, d := range Documents {
		if err := s.load(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload re-reads one document. On failure the previous contents are kept.
func (s *Store) Reload(d Document) error {
	data, err := s.read(d)
	if err != nil {
		s.metrics.FixtureReloads.WithLabelValues(string(d), "error").Inc()
		return err
	}

	s.mu.Lock()
	s.docs[d] = data
	delete(s.errs, d)
	s.mu.Unlock()

	s.metrics.FixtureReloads.WithLabelValues(string(d), "success").Inc()
	s.logger.Info("fixture reloaded", "document", d, "bytes", len(data))
	return nil
}

// Get returns the document bytes exactly as read from disk.
func (s *Store) Get(d Document) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[d]
	if !ok {
		if err, failed := s.errs[d]; failed {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s not loaded", ErrUnavailable, d)
	}
	return data, nil
}

// ReplayDataset parses the replay document.
func (s *Store) ReplayDataset() (domain.ReplayDataset, error) {
	data, err := s.Get(Replay)
	if err != nil {
		return domain.ReplayDataset{}, err
	}
	return domain.ParseReplayDataset(data)
}

func (s *Store) load(d Document) error {
	data, err := s.read(d)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.errs[d] = err
		delete(s.docs, d)
		s.logger.Error("fixture unavailable", "document", d, "error", err)
		return err
	}
	s.docs[d] = data
	delete(s.errs, d)
	s.logger.Debug("fixture loaded", "document", d, "bytes", len(data))
	return nil
}

func (s *Store) read(d Document) ([]byte, error) {
	data, err := fs.ReadFile(s.fsys, d.Filename())
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, d.Filename(), err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrUnavailable, d.Filename())
	}
	return data, nil
}
