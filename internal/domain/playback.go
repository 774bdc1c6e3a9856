package domain

import (
	"fmt"
	"math"
	"time"
)

// AllowedSpeeds are the multipliers offered by the timeline control.
// Any positive multiplier is accepted by the controller.
var AllowedSpeeds = []float64{1, 2, 5, 10}

// PlaybackState is the controller's position, play flag, and speed.
type PlaybackState struct {
	CurrentFrameIndex int     `json:"currentFrameIndex"`
	IsPlaying         bool    `json:"isPlaying"`
	SpeedMultiplier   float64 `json:"speedMultiplier"`
	TotalFrames       int     `json:"totalFrames"`
}

// DefaultPlaybackState is the state after a dataset is loaded.
func DefaultPlaybackState(total int) PlaybackState {
	return PlaybackState{SpeedMultiplier: 1, TotalFrames: total}
}

// Progress is the scrubber fill percentage for the state.
func (s PlaybackState) Progress() float64 {
	return ProgressPercent(s.CurrentFrameIndex, s.TotalFrames)
}

// ValidateSpeed rejects zero, negative, NaN, and infinite multipliers.
func ValidateSpeed(multiplier float64) error {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, multiplier)
	}
	return nil
}

// UpdateReason names the operation that produced a PlaybackUpdate.
type UpdateReason string

const (
	ReasonLoad  UpdateReason = "load"
	ReasonPlay  UpdateReason = "play"
	ReasonPause UpdateReason = "pause"
	ReasonSpeed UpdateReason = "speed"
	ReasonSeek  UpdateReason = "seek"
	ReasonTick  UpdateReason = "tick"
	ReasonEnd   UpdateReason = "end"

	// ReasonSnapshot marks the current state sent to a newly connected
	// stream client rather than a state change.
	ReasonSnapshot UpdateReason = "snapshot"
)

// PlaybackUpdate is the snapshot published to subscribers after every
// state change. Frame points into the immutable dataset.
type PlaybackUpdate struct {
	SessionID string        `json:"sessionId"`
	Reason    UpdateReason  `json:"reason"`
	State     PlaybackState `json:"state"`
	Frame     *ReplayFrame  `json:"frame,omitempty"`
	At        time.Time     `json:"at"`
}
