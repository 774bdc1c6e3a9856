package mapsurface

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
	"github.com/couchcryptid/flood-replay-service/internal/replay"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_DefaultLayers(t *testing.T) {
	s := New("pk.test", discardLogger())
	snap := s.Snapshot()

	assert.False(t, snap.Placeholder)
	assert.False(t, snap.Acquired)
	assert.Equal(t, map[Layer]bool{
		Rainfall:    true,
		RiverLevels: true,
		FloodZones:  true,
		Clouds:      false,
	}, snap.Layers)
	assert.NotNil(t, snap.Heatmap.Features)
}

func TestAcquire_ZeroSize(t *testing.T) {
	s := New("pk.test", discardLogger())

	err := s.Acquire(0, 600)
	assert.True(t, errors.Is(err, ErrZeroSize))
	assert.False(t, s.Snapshot().Acquired)

	require.NoError(t, s.Acquire(800, 600))
	snap := s.Snapshot()
	assert.True(t, snap.Acquired)
	assert.Equal(t, 800, snap.Width)
	assert.Equal(t, 600, snap.Height)

	s.Release()
	assert.False(t, s.Snapshot().Acquired)
	s.Release() // no-op
}

func TestSetLayerVisibility(t *testing.T) {
	s := New("pk.test", discardLogger())

	require.NoError(t, s.SetLayerVisibility(Clouds, true))
	require.NoError(t, s.SetLayerVisibility(Rainfall, false))
	snap := s.Snapshot()
	assert.True(t, snap.Layers[Clouds])
	assert.False(t, snap.Layers[Rainfall])

	err := s.SetLayerVisibility("satellite", true)
	assert.True(t, errors.Is(err, ErrUnknownLayer))
}

func TestSnapshot_LayersAreCopied(t *testing.T) {
	s := New("pk.test", discardLogger())
	snap := s.Snapshot()
	snap.Layers[Clouds] = true

	assert.False(t, s.Snapshot().Layers[Clouds])
}

func TestResize(t *testing.T) {
	s := New("pk.test", discardLogger())

	assert.True(t, errors.Is(s.Resize(100, 100), ErrNotAcquired))

	require.NoError(t, s.Acquire(800, 600))
	require.NoError(t, s.Resize(1024, 768))
	assert.True(t, errors.Is(s.Resize(1024, 0), ErrZeroSize))

	snap := s.Snapshot()
	assert.Equal(t, 1024, snap.Width)
	assert.Equal(t, 768, snap.Height)
	assert.Equal(t, 1, snap.Refreshes)
}

func TestPlaceholder_NeverFails(t *testing.T) {
	s := New("", discardLogger())
	assert.True(t, s.Placeholder())

	require.NoError(t, s.Acquire(0, 0))
	require.NoError(t, s.SetLayerVisibility("satellite", true))
	require.NoError(t, s.SetLayerVisibility(Clouds, true))
	require.NoError(t, s.Resize(0, 0))
	s.SetHeatmapData(4, []domain.RainfallPoint{{Lng: 1, Lat: 2}})

	snap := s.Snapshot()
	assert.True(t, snap.Placeholder)
	assert.True(t, snap.Layers[Clouds])
	assert.Equal(t, 4, snap.FrameID)
	assert.Len(t, snap.Heatmap.Features, 1)
}

func TestHeatmapFeatures(t *testing.T) {
	got := HeatmapFeatures([]domain.RainfallPoint{
		{Lng: 91.7362, Lat: 26.1445, Intensity: 0.8, Value: 42.5},
	})
	want := FeatureCollection{
		Type: "FeatureCollection",
		Features: []Feature{{
			Type:       "Feature",
			Geometry:   Point{Type: "Point", Coordinates: [2]float64{91.7362, 26.1445}},
			Properties: HeatmapProperties{Intensity: 0.8, Value: 42.5},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("HeatmapFeatures mismatch (-want +got):\n%s", diff)
	}

	empty := HeatmapFeatures(nil)
	assert.NotNil(t, empty.Features)
	assert.Empty(t, empty.Features)
}

func TestFollow_AppliesFrames(t *testing.T) {
	s := New("pk.test", discardLogger())
	updates := make(chan domain.PlaybackUpdate, 3)

	frame := domain.ReplayFrame{
		FrameID:       7,
		RainfallLayer: []domain.RainfallPoint{{Lng: 1, Lat: 2}, {Lng: 3, Lat: 4}},
	}
	updates <- domain.PlaybackUpdate{Reason: domain.ReasonTick, Frame: &frame}
	updates <- domain.PlaybackUpdate{Reason: domain.ReasonPause}
	close(updates)

	s.Follow(context.Background(), updates)

	snap := s.Snapshot()
	assert.Equal(t, 7, snap.FrameID)
	assert.Len(t, snap.Heatmap.Features, 2)
}

func TestFollow_StopsOnCancel(t *testing.T) {
	s := New("pk.test", discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Follow(ctx, make(chan domain.PlaybackUpdate))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFollow_ControllerTick(t *testing.T) {
	clk := clockwork.NewFakeClock()
	ctl := replay.New(time.Second, discardLogger(), observability.NewMetricsForTesting(), replay.WithClock(clk))
	t.Cleanup(ctl.Close)

	s := New("pk.test", discardLogger())
	updates, unsubscribe := ctl.Subscribe(16)
	t.Cleanup(unsubscribe)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Follow(ctx, updates)

	ds := domain.ReplayDataset{Frames: []domain.ReplayFrame{
		{FrameID: 1, RainfallLayer: []domain.RainfallPoint{{Lng: 1, Lat: 1}}},
		{FrameID: 2, RainfallLayer: []domain.RainfallPoint{{Lng: 2, Lat: 2}, {Lng: 3, Lat: 3}}},
	}}
	require.NoError(t, ctl.Load(ds))
	require.NoError(t, ctl.Play())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, clk.BlockUntilContext(waitCtx, 1))
	clk.Advance(time.Second)

	assert.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.FrameID == 2 && len(snap.Heatmap.Features) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelease_AfterControllerClose(t *testing.T) {
	ctl := replay.New(time.Second, discardLogger(), observability.NewMetricsForTesting(),
		replay.WithClock(clockwork.NewFakeClock()))
	s := New("pk.test", discardLogger())
	require.NoError(t, s.Acquire(1024, 768))

	updates, _ := ctl.Subscribe(8)
	done := make(chan struct{})
	go func() {
		s.Follow(context.Background(), updates)
		close(done)
	}()

	ctl.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after controller close")
	}
	s.Release()

	snap := s.Snapshot()
	assert.False(t, snap.Acquired)
	assert.Zero(t, snap.Width)
	assert.Zero(t, snap.Height)

	require.NoError(t, s.Acquire(640, 480), "surface can be acquired again after release")
}
