package fixture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	weatherJSON = `{"heatmapData":[{"lng":91.7,"lat":26.1,"intensity":0.6,"value":22.5}]}`
	riversJSON  = `{"rivers":[{"name":"Brahmaputra","currentLevel":6.2,"status":"warning"}]}`
	predictJSON = `{"predictions":[],"floodZones":[]}`
	replayJSON  = `{"frames":[{"frameId":1,"timestamp":"2024-07-02T06:00:00Z","riskScore":2.5}]}`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completeFS() fstest.MapFS {
	return fstest.MapFS{
		"weather.json": {Data: []byte(weatherJSON)},
		"rivers.json":  {Data: []byte(riversJSON)},
		"predict.json": {Data: []byte(predictJSON)},
		"replay.json":  {Data: []byte(replayJSON)},
	}
}

func newTestStore(fsys fstest.MapFS) *Store {
	return NewStore(fsys, discardLogger(), observability.NewMetricsForTesting())
}

func TestStore_LoadAll(t *testing.T) {
	s := newTestStore(completeFS())
	require.NoError(t, s.LoadAll())

	for _, d := range Documents {
		data, err := s.Get(d)
		require.NoError(t, err, "document %s", d)
		assert.NotEmpty(t, data)
	}

	data, err := s.Get(Weather)
	require.NoError(t, err)
	assert.Equal(t, weatherJSON, string(data), "documents are served byte-for-byte")
}

func TestStore_MissingDocument(t *testing.T) {
	fsys := completeFS()
	delete(fsys, "rivers.json")
	s := newTestStore(fsys)

	err := s.LoadAll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "rivers.json")

	_, err = s.Get(Rivers)
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = s.Get(Weather)
	assert.NoError(t, err, "other documents are still served")
}

func TestStore_InvalidJSON(t *testing.T) {
	fsys := completeFS()
	fsys["predict.json"] = &fstest.MapFile{Data: []byte("{not json")}
	s := newTestStore(fsys)

	err := s.LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestStore_GetBeforeLoad(t *testing.T) {
	s := newTestStore(completeFS())
	_, err := s.Get(Weather)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestStore_ReplayDataset(t *testing.T) {
	s := newTestStore(completeFS())
	require.NoError(t, s.LoadAll())

	ds, err := s.ReplayDataset()
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.InDelta(t, 2.5, ds.Frames[0].RiskScore, 0.0001)
}

func TestStore_ReloadKeepsPreviousOnError(t *testing.T) {
	fsys := completeFS()
	s := newTestStore(fsys)
	require.NoError(t, s.LoadAll())

	fsys["weather.json"] = &fstest.MapFile{Data: []byte("{broken")}
	require.Error(t, s.Reload(Weather))

	data, err := s.Get(Weather)
	require.NoError(t, err)
	assert.Equal(t, weatherJSON, string(data))

	fsys["weather.json"] = &fstest.MapFile{Data: []byte(`{"heatmapData":[]}`)}
	require.NoError(t, s.Reload(Weather))
	data, err = s.Get(Weather)
	require.NoError(t, err)
	assert.JSONEq(t, `{"heatmapData":[]}`, string(data))
}

func TestDocumentForFile(t *testing.T) {
	d, ok := DocumentForFile("rivers.json")
	assert.True(t, ok)
	assert.Equal(t, Rivers, d)

	_, ok = DocumentForFile("notes.txt")
	assert.False(t, ok)

	assert.True(t, Weather.Reloadable())
	assert.False(t, Replay.Reloadable())
}

func TestStore_WatchReloadsChangedDocument(t *testing.T) {
	dir := t.TempDir()
	for name, f := range completeFS() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), f.Data, 0o600))
	}

	s := NewStore(os.DirFS(dir), discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, s.LoadAll())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, dir) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	updated := `{"rivers":[{"name":"Brahmaputra","currentLevel":7.9,"status":"alert"}]}`
	// The watcher may not be registered yet on the first write, so keep
	// rewriting until the change is observed.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "rivers.json"), []byte(updated), 0o600)
		data, err := s.Get(Rivers)
		return err == nil && string(data) == updated
	}, 5*time.Second, 50*time.Millisecond)

	// Replay changes are never picked up mid-session.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "replay.json"), []byte(`{"frames":[]}`), 0o600))
	time.Sleep(100 * time.Millisecond)
	data, err := s.Get(Replay)
	require.NoError(t, err)
	assert.Equal(t, replayJSON, string(data))
}
