package domain

import (
	"encoding/json"
	"fmt"
)

// Severity grades a timeline event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// TimelineEvent is a static annotation pinned to a frame on the scrubber.
type TimelineEvent struct {
	Frame    int      `json:"frame"`
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
}

// UnmarshalJSON accepts both "severity" and the legacy "type" key.
// An empty severity defaults to info.
func (e *TimelineEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Frame    int      `json:"frame"`
		Label    string   `json:"label"`
		Severity Severity `json:"severity"`
		Type     Severity `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	sev := raw.Severity
	if sev == "" {
		sev = raw.Type
	}
	if sev == "" {
		sev = SeverityInfo
	}
	if !sev.Valid() {
		return fmt.Errorf("timeline event %q: unknown severity %q", raw.Label, sev)
	}

	*e = TimelineEvent{Frame: raw.Frame, Label: raw.Label, Severity: sev}
	return nil
}

// TimelineMarker is an event positioned on the scrubber track.
type TimelineMarker struct {
	TimelineEvent
	Percent float64 `json:"percent"`
}

// Markers positions every event of the dataset along the scrubber.
// Positions use frame/total so the final frame never sits on the right edge.
func (d ReplayDataset) Markers() []TimelineMarker {
	markers := make([]TimelineMarker, 0, len(d.Events))
	total := len(d.Frames)
	for _, e := range d.Events {
		var pct float64
		if total > 0 {
			pct = float64(e.Frame) / float64(total) * 100
		}
		markers = append(markers, TimelineMarker{TimelineEvent: e, Percent: pct})
	}
	return markers
}

// ProgressPercent is the scrubber fill for index in a dataset of total
// frames: 0 at the first frame, 100 at the last.
func ProgressPercent(index, total int) float64 {
	if total <= 1 {
		return 100
	}
	return float64(index) / float64(total-1) * 100
}
