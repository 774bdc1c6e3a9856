// Command genfixtures generates the replay fixture from a seeded random
// walk. The same flags always produce the same file.
//
// Usage:
//
//	go run ./cmd/genfixtures --out data/mock/replay.json --frames 24 --seed 42
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// fixtureEpoch anchors generated timestamps when --start is not given.
var fixtureEpoch = time.Date(2024, time.July, 2, 6, 0, 0, 0, time.UTC)

type options struct {
	out     string
	start   string
	indent  bool
	verbose bool
	sim     domain.SimulateOptions
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "genfixtures",
		Short: "Generate the replay fixture",
		Long: `genfixtures simulates a flood replay with a seeded random walk over
rainfall and river level and writes it as the replay fixture served by
/api/mock/replay and loaded by the replay service.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "data/mock/replay.json", "output path for the replay fixture")
	f.StringVar(&opts.start, "start", "", "RFC 3339 time of the first frame (default 2024-07-02T06:00:00Z)")
	f.BoolVar(&opts.indent, "indent", true, "indent the JSON output")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print a frame summary")
	f.StringVar(&opts.sim.Region, "region", "Assam, India", "region name stored in the dataset")
	f.IntVarP(&opts.sim.Frames, "frames", "n", 24, "number of frames")
	f.DurationVar(&opts.sim.Step, "step", 30*time.Minute, "time between frames")
	f.Uint64Var(&opts.sim.Seed, "seed", 42, "random walk seed")
	f.Float64Var(&opts.sim.CenterLat, "lat", 26.1445, "heatmap centre latitude")
	f.Float64Var(&opts.sim.CenterLng, "lng", 91.7362, "heatmap centre longitude")
	f.IntVar(&opts.sim.Points, "points", 12, "heatmap points per frame")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	// Fixed clock so a run without --start is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(fixtureEpoch))
	defer domain.SetClock(nil)

	if opts.start != "" {
		start, err := time.Parse(time.RFC3339, opts.start)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		opts.sim.Start = start.UTC()
	}

	ds, err := domain.Simulate(opts.sim)
	if err != nil {
		return fmt.Errorf("simulate replay: %w", err)
	}

	var data []byte
	if opts.indent {
		data, err = json.MarshalIndent(ds, "", "  ")
	} else {
		data, err = json.Marshal(ds)
	}
	if err != nil {
		return fmt.Errorf("encode replay: %w", err)
	}
	data = append(data, '\n')

	// Round-trip through the loader so a generated file is always loadable.
	if _, err := domain.ParseReplayDataset(data); err != nil {
		return fmt.Errorf("generated replay does not load: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil { //nolint:gosec // fixture files are world-readable
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	if opts.verbose {
		for _, f := range ds.Frames {
			cmd.Printf("  frame %2d  %s  rain %5.1f mm  river %4.1f m  risk %4.1f (%s)\n",
				f.FrameID, f.Timestamp, f.Rainfall, f.RiverLevel, f.RiskScore, domain.ClassifyRisk(f.RiskScore))
		}
	}
	cmd.Printf("wrote %s: %d frames, %d events, %s-%s\n", opts.out, ds.Len(), len(ds.Events), ds.StartTime, ds.EndTime)
	return nil
}
