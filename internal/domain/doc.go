// Package domain models the flood-monitoring replay data served to the
// dashboard.
//
// # Fixture Documents
//
// All data is static. Four JSON documents live in the fixture directory
// (FIXTURE_DIR, default data/mock):
//
//	weather.json   current conditions and the rainfall heatmap points
//	rivers.json    river gauge stations with level and status
//	predict.json   flood predictions and flood-zone polygons
//	replay.json    the replay dataset: frames plus timeline events
//
// The first three are passed through to clients byte-for-byte and are never
// decoded by the service. Only replay.json is parsed, by [ParseReplayDataset].
//
// # Replay Frames
//
// A frame is one snapshot of simulated metrics:
//
//	rainfall     millimetres
//	riverLevel   metres
//	riskScore    0 to 10
//
// The rainfallLayer carries the heatmap points for that instant as
// {lng, lat, intensity, value}. Intensity is normalised to 0..1 and drives
// heatmap weight; value is the raw rainfall reading at the point.
//
// Frames are immutable once loaded. The playback controller references
// them by index and never copies or mutates them.
//
// # Risk Levels
//
// Panels colour a risk score with three bands:
//
//	score > 7   critical
//	score > 4   elevated
//	otherwise   low
//
// See [ClassifyRisk].
//
// # Timeline Events
//
// Events annotate frames on the scrubber with a label and a severity of
// info, warning, or critical. Older fixtures spell the severity field
// "type"; both spellings decode.
package domain
