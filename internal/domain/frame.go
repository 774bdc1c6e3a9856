package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// RainfallPoint is a single heatmap sample within a frame.
type RainfallPoint struct {
	Lng       float64 `json:"lng"`
	Lat       float64 `json:"lat"`
	Intensity float64 `json:"intensity"`
	Value     float64 `json:"value"`
}

// ReplayFrame is one snapshot of simulated environmental metrics.
type ReplayFrame struct {
	FrameID       int             `json:"frameId"`
	Timestamp     string          `json:"timestamp"`
	Rainfall      float64         `json:"rainfall"`
	RiverLevel    float64         `json:"riverLevel"`
	RiskScore     float64         `json:"riskScore"`
	RainfallLayer []RainfallPoint `json:"rainfallLayer"`

	// Extended metadata shown on the frame intelligence panel.
	Temperature  float64 `json:"temperature,omitempty"`
	WindSpeed    float64 `json:"windSpeed,omitempty"`
	PrimaryEvent string  `json:"primaryEvent,omitempty"`
}

// Time parses the frame timestamp. It returns the zero time if the
// timestamp is not RFC 3339.
func (f ReplayFrame) Time() time.Time {
	t, err := time.Parse(time.RFC3339, f.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ReplayDataset is the ordered, fixed-length frame sequence for one replay.
type ReplayDataset struct {
	Region    string          `json:"region,omitempty"`
	StartTime string          `json:"startTime,omitempty"` // scrubber label, e.g. "06:00"
	EndTime   string          `json:"endTime,omitempty"`
	Frames    []ReplayFrame   `json:"frames"`
	Events    []TimelineEvent `json:"events,omitempty"`
}

// Len returns the number of frames.
func (d ReplayDataset) Len() int {
	return len(d.Frames)
}

// ParseReplayDataset decodes replay.json and validates it.
func ParseReplayDataset(data []byte) (ReplayDataset, error) {
	var ds ReplayDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return ReplayDataset{}, fmt.Errorf("parse replay dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return ReplayDataset{}, err
	}
	return ds, nil
}

// Validate checks the structural rules a dataset must satisfy before the
// controller will accept it.
func (d ReplayDataset) Validate() error {
	if len(d.Frames) == 0 {
		return ErrEmptyDataset
	}
	for i, f := range d.Frames {
		if math.IsNaN(f.RiskScore) || f.RiskScore < 0 || f.RiskScore > MaxRiskScore {
			return fmt.Errorf("frame %d: risk score %v out of range [0, %v]", i, f.RiskScore, MaxRiskScore)
		}
		if f.Timestamp != "" && f.Time().IsZero() {
			return fmt.Errorf("frame %d: invalid timestamp %q", i, f.Timestamp)
		}
	}
	for i, e := range d.Events {
		if e.Frame < 0 || e.Frame >= len(d.Frames) {
			return fmt.Errorf("event %d (%q): frame %d outside dataset of %d frames", i, e.Label, e.Frame, len(d.Frames))
		}
	}
	return nil
}
