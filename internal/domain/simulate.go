package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// SimulateOptions configures a synthetic replay.
type SimulateOptions struct {
	Region    string
	Frames    int
	Step      time.Duration // wall-clock distance between frames
	Start     time.Time     // zero means the package clock's now, truncated to the hour
	Seed      uint64
	CenterLat float64
	CenterLng float64
	Points    int // heatmap points per frame
}

// Simulate builds a replay dataset from a seeded random walk. The same
// options always produce the same dataset.
func Simulate(opts SimulateOptions) (ReplayDataset, error) {
	if opts.Frames <= 0 {
		return ReplayDataset{}, ErrEmptyDataset
	}
	if opts.Step <= 0 {
		return ReplayDataset{}, fmt.Errorf("simulate: step must be positive, got %s", opts.Step)
	}
	start := opts.Start
	if start.IsZero() {
		start = clock.Now().UTC().Truncate(time.Hour)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	rainfall := 2.0
	river := 3.0
	frames := make([]ReplayFrame, opts.Frames)
	for i := range frames {
		// Rain drifts upward through the first half of the replay, then eases.
		drift := 1.5
		if i > opts.Frames/2 {
			drift = -1.5
		}
		rainfall = math.Max(0, rainfall+drift+rng.NormFloat64()*3)
		// River responds to rainfall with a lag and drains slowly.
		river = math.Max(0.5, river+rainfall*0.04-0.15+rng.NormFloat64()*0.05)
		risk := clampRisk(rainfall/8 + (river-3)*1.2)

		frames[i] = ReplayFrame{
			FrameID:       i + 1,
			Timestamp:     start.Add(time.Duration(i) * opts.Step).Format(time.RFC3339),
			Rainfall:      round1(rainfall),
			RiverLevel:    round1(river),
			RiskScore:     round1(risk),
			RainfallLayer: simulatePoints(rng, opts, rainfall),
			Temperature:   round1(24 - rainfall*0.05 + rng.NormFloat64()*0.3),
			WindSpeed:     round1(math.Max(0, 12+rainfall*0.3+rng.NormFloat64()*2)),
		}
	}

	ds := ReplayDataset{
		Region:    opts.Region,
		StartTime: start.Format("15:04"),
		EndTime:   start.Add(time.Duration(opts.Frames-1) * opts.Step).Format("15:04"),
		Frames:    frames,
		Events:    deriveEvents(frames),
	}
	return ds, nil
}

func simulatePoints(rng *rand.Rand, opts SimulateOptions, rainfall float64) []RainfallPoint {
	pts := make([]RainfallPoint, opts.Points)
	for i := range pts {
		intensity := math.Min(1, math.Max(0, rainfall/60+rng.Float64()*0.3))
		pts[i] = RainfallPoint{
			Lng:       round4(opts.CenterLng + rng.NormFloat64()*0.8),
			Lat:       round4(opts.CenterLat + rng.NormFloat64()*0.8),
			Intensity: round1(intensity*10) / 10,
			Value:     round1(rainfall * (0.5 + rng.Float64())),
		}
	}
	return pts
}

// deriveEvents marks where the replay starts, first turns elevated, first
// turns critical, and peaks.
func deriveEvents(frames []ReplayFrame) []TimelineEvent {
	events := []TimelineEvent{{Frame: 0, Label: "Replay start", Severity: SeverityInfo}}
	warned, critical := false, false
	peak := 0
	for i, f := range frames {
		switch level := ClassifyRisk(f.RiskScore); {
		case level == RiskElevated && !warned:
			warned = true
			events = append(events, TimelineEvent{Frame: i, Label: "Risk elevated", Severity: SeverityWarning})
		case level == RiskCritical && !critical:
			critical = true
			events = append(events, TimelineEvent{Frame: i, Label: "Critical flood risk", Severity: SeverityCritical})
		}
		if f.RiverLevel > frames[peak].RiverLevel {
			peak = i
		}
	}
	if peak > 0 {
		events = append(events, TimelineEvent{Frame: peak, Label: "River peak", Severity: SeverityWarning})
	}
	return events
}

func clampRisk(v float64) float64 {
	return math.Min(MaxRiskScore, math.Max(0, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
