package domain

import "errors"

var (
	// ErrEmptyDataset is returned when a replay dataset has no frames.
	ErrEmptyDataset = errors.New("replay dataset is empty")

	// ErrNotLoaded is returned when a frame is requested before any dataset
	// has been loaded.
	ErrNotLoaded = errors.New("replay dataset not loaded")

	// ErrInvalidSpeed is returned for non-positive or non-finite playback
	// speed multipliers.
	ErrInvalidSpeed = errors.New("playback speed must be a positive number")

	// ErrClosed is returned by playback operations after shutdown.
	ErrClosed = errors.New("replay controller closed")
)
