// Command validate checks the fixture directory served by the replay
// service: every document is present and well-formed, the snapshot
// documents carry plausible map data, and the replay dataset is a
// consistent, loadable timeline.
//
// Usage:
//
//	go run ./cmd/validate -dir data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/fixture"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "data/mock", "fixture directory to validate")
	flag.Parse()

	if code := run(*dir, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, out io.Writer) int {
	fmt.Fprintln(out, "=== Flood Replay Fixture Validation ===")
	fmt.Fprintln(out)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := fixture.NewStore(os.DirFS(dir), logger, observability.NewMetricsForTesting())
	loadErr := store.LoadAll()

	presence := validatePresence(store, loadErr)
	phases := []*phase{
		presence,
		validateWeather(store),
		validateRivers(store),
		validatePredict(store),
	}

	ds, replayPhase := validateReplay(store)
	phases = append(phases, replayPhase, validateEvents(ds))

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Replay: %d frames, %d events, region %q\n", ds.Len(), len(ds.Events), ds.Region)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Presence ──

func validatePresence(store *fixture.Store, loadErr error) *phase {
	p := &phase{name: "Phase 1: Presence (all documents)"}
	if loadErr == nil {
		return p
	}
	for _, d := range fixture.Documents {
		if _, err := store.Get(d); err != nil {
			p.errorf("%s: %v", d.Filename(), err)
		}
	}
	return p
}

// decode unmarshals a loaded document. A missing document is reported by
// the presence phase, so it yields ok=false without another error.
func decode(p *phase, store *fixture.Store, d fixture.Document, v any) bool {
	data, err := store.Get(d)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		p.errorf("%s: %v", d.Filename(), err)
		return false
	}
	return true
}

// ── Phase 2: Weather ──

func validateWeather(store *fixture.Store) *phase {
	p := &phase{name: "Phase 2: Weather (heatmap)"}

	var doc struct {
		HeatmapData []domain.RainfallPoint `json:"heatmapData"`
	}
	if !decode(p, store, fixture.Weather, &doc) {
		return p
	}
	if len(doc.HeatmapData) == 0 {
		p.errorf("heatmapData is empty")
	}
	for i, pt := range doc.HeatmapData {
		checkPoint(p, fmt.Sprintf("heatmapData[%d]", i), pt)
	}
	return p
}

func checkPoint(p *phase, where string, pt domain.RainfallPoint) {
	checkCoord(p, where, pt.Lat, pt.Lng)
	if pt.Intensity < 0 || pt.Intensity > 1 {
		p.errorf("%s: intensity %g outside [0, 1]", where, pt.Intensity)
	}
	if pt.Value < 0 {
		p.errorf("%s: negative value %g", where, pt.Value)
	}
}

func checkCoord(p *phase, where string, lat, lng float64) {
	if lat < -90 || lat > 90 {
		p.errorf("%s: latitude %g out of range", where, lat)
	}
	if lng < -180 || lng > 180 {
		p.errorf("%s: longitude %g out of range", where, lng)
	}
	if lat == 0 && lng == 0 {
		p.errorf("%s: coordinates are both zero", where)
	}
}

// ── Phase 3: Rivers ──

var riverStatuses = map[string]bool{"normal": true, "warning": true, "alert": true}

func validateRivers(store *fixture.Store) *phase {
	p := &phase{name: "Phase 3: Rivers (gauge stations)"}

	var doc struct {
		Rivers []struct {
			Name         string  `json:"name"`
			CurrentLevel float64 `json:"currentLevel"`
			Status       string  `json:"status"`
			Coordinates  struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"coordinates"`
		} `json:"rivers"`
	}
	if !decode(p, store, fixture.Rivers, &doc) {
		return p
	}
	if len(doc.Rivers) == 0 {
		p.errorf("rivers is empty")
	}
	for i, r := range doc.Rivers {
		where := fmt.Sprintf("rivers[%d] %q", i, r.Name)
		if r.Name == "" {
			p.errorf("rivers[%d]: name is empty", i)
		}
		if !riverStatuses[r.Status] {
			p.errorf("%s: status %q not in {normal, warning, alert}", where, r.Status)
		}
		if r.CurrentLevel < 0 {
			p.errorf("%s: negative currentLevel %g", where, r.CurrentLevel)
		}
		checkCoord(p, where, r.Coordinates.Lat, r.Coordinates.Lng)
	}
	return p
}

// ── Phase 4: Predict ──

var zoneSeverities = map[string]bool{"low": true, "medium": true, "high": true}

func validatePredict(store *fixture.Store) *phase {
	p := &phase{name: "Phase 4: Predict (flood zones)"}

	var doc struct {
		Predictions []struct {
			Location   string  `json:"location"`
			RiskLevel  string  `json:"riskLevel"`
			Confidence float64 `json:"confidence"`
		} `json:"predictions"`
		FloodZones []struct {
			Severity    string       `json:"severity"`
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"floodZones"`
	}
	if !decode(p, store, fixture.Predict, &doc) {
		return p
	}

	for i, pr := range doc.Predictions {
		if pr.Location == "" {
			p.errorf("predictions[%d]: location is empty", i)
		}
		if !zoneSeverities[pr.RiskLevel] {
			p.errorf("predictions[%d]: riskLevel %q not in {low, medium, high}", i, pr.RiskLevel)
		}
		if pr.Confidence < 0 || pr.Confidence > 100 {
			p.errorf("predictions[%d]: confidence %g outside [0, 100]", i, pr.Confidence)
		}
	}

	for i, z := range doc.FloodZones {
		where := fmt.Sprintf("floodZones[%d]", i)
		if !zoneSeverities[z.Severity] {
			p.errorf("%s: severity %q not in {low, medium, high}", where, z.Severity)
		}
		ring := z.Coordinates
		if len(ring) < 4 {
			p.errorf("%s: polygon ring has %d positions, need at least 4", where, len(ring))
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			p.errorf("%s: polygon ring is not closed", where)
		}
		for j, pos := range ring {
			checkCoord(p, fmt.Sprintf("%s[%d]", where, j), pos[1], pos[0])
		}
	}
	return p
}

// ── Phase 5: Replay ──

func validateReplay(store *fixture.Store) (domain.ReplayDataset, *phase) {
	p := &phase{name: "Phase 5: Replay (frame timeline)"}

	if _, err := store.Get(fixture.Replay); err != nil {
		return domain.ReplayDataset{}, p
	}
	ds, err := store.ReplayDataset()
	if err != nil {
		p.errorf("%v", err)
		return domain.ReplayDataset{}, p
	}

	var prev time.Time
	for i, f := range ds.Frames {
		if f.FrameID != i+1 {
			p.errorf("frame %d: frameId %d, expected %d", i, f.FrameID, i+1)
		}
		ts := f.Time()
		if ts.IsZero() {
			p.errorf("frame %d: missing or invalid timestamp %q", i, f.Timestamp)
		} else {
			if !prev.IsZero() && !ts.After(prev) {
				p.errorf("frame %d: timestamp %s not after previous frame", i, f.Timestamp)
			}
			prev = ts
		}
		if f.Rainfall < 0 {
			p.errorf("frame %d: negative rainfall %g", i, f.Rainfall)
		}
		if f.RiverLevel < 0 {
			p.errorf("frame %d: negative riverLevel %g", i, f.RiverLevel)
		}
		for j, pt := range f.RainfallLayer {
			checkPoint(p, fmt.Sprintf("frame %d rainfallLayer[%d]", i, j), pt)
		}
	}

	checkLabel(p, "startTime", ds.StartTime, ds.Frames[0])
	checkLabel(p, "endTime", ds.EndTime, ds.Frames[ds.Len()-1])
	return ds, p
}

// checkLabel verifies a scrubber label matches its frame's wall clock.
func checkLabel(p *phase, field, label string, f domain.ReplayFrame) {
	if label == "" || f.Time().IsZero() {
		return
	}
	if want := f.Time().Format("15:04"); label != want {
		p.errorf("%s %q does not match frame %d at %s", field, label, f.FrameID, want)
	}
}

// ── Phase 6: Events ──

func validateEvents(ds domain.ReplayDataset) *phase {
	p := &phase{name: "Phase 6: Events (scrubber markers)"}
	if ds.Len() == 0 {
		return p
	}

	seen := map[string]bool{}
	for i, e := range ds.Events {
		if e.Label == "" {
			p.errorf("event %d: label is empty", i)
		}
		key := fmt.Sprintf("%d|%s", e.Frame, e.Label)
		if seen[key] {
			p.errorf("event %d: duplicate %q at frame %d", i, e.Label, e.Frame)
		}
		seen[key] = true
	}
	for _, m := range ds.Markers() {
		if m.Percent < 0 || m.Percent >= 100 {
			p.errorf("event %q: marker at %.1f%% is off the scrubber", m.Label, m.Percent)
		}
	}
	return p
}
