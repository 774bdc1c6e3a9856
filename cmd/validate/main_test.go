package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ShippedFixtures(t *testing.T) {
	var out bytes.Buffer
	code := run(filepath.Join("..", "..", "data", "mock"), &out)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Contains(t, out.String(), "Replay: 12 frames")
}

func writeFixtures(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func validFiles() map[string]string {
	return map[string]string{
		"weather.json": `{"heatmapData":[{"lng":91.7,"lat":26.1,"intensity":0.5,"value":20}]}`,
		"rivers.json":  `{"rivers":[{"name":"Brahmaputra","currentLevel":6.2,"status":"warning","coordinates":{"lat":26.18,"lng":91.74}}]}`,
		"predict.json": `{"predictions":[],"floodZones":[]}`,
		"replay.json": `{"startTime":"06:00","endTime":"06:30","frames":[
			{"frameId":1,"timestamp":"2024-07-02T06:00:00Z","riskScore":2},
			{"frameId":2,"timestamp":"2024-07-02T06:30:00Z","riskScore":5}],
			"events":[{"frame":1,"label":"Risk elevated","type":"warning"}]}`,
	}
}

func TestRun_Valid(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run(writeFixtures(t, validFiles()), &out), out.String())
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		want   string
	}{
		{
			name:   "missing document",
			mutate: func(f map[string]string) { delete(f, "rivers.json") },
			want:   "rivers.json",
		},
		{
			name: "unknown river status",
			mutate: func(f map[string]string) {
				f["rivers.json"] = `{"rivers":[{"name":"Beki","status":"flooding","coordinates":{"lat":26.4,"lng":90.9}}]}`
			},
			want: `status "flooding"`,
		},
		{
			name: "open flood zone ring",
			mutate: func(f map[string]string) {
				f["predict.json"] = `{"floodZones":[{"severity":"high","coordinates":[[91,26],[92,26],[92,27],[91,27]]}]}`
			},
			want: "not closed",
		},
		{
			name: "frame ids out of sequence",
			mutate: func(f map[string]string) {
				f["replay.json"] = `{"frames":[
					{"frameId":1,"timestamp":"2024-07-02T06:00:00Z","riskScore":2},
					{"frameId":3,"timestamp":"2024-07-02T06:30:00Z","riskScore":2}]}`
			},
			want: "frameId 3, expected 2",
		},
		{
			name: "timestamps go backwards",
			mutate: func(f map[string]string) {
				f["replay.json"] = `{"frames":[
					{"frameId":1,"timestamp":"2024-07-02T06:30:00Z","riskScore":2},
					{"frameId":2,"timestamp":"2024-07-02T06:00:00Z","riskScore":2}]}`
			},
			want: "not after previous frame",
		},
		{
			name: "scrubber label mismatch",
			mutate: func(f map[string]string) {
				f["replay.json"] = `{"startTime":"05:00","frames":[
					{"frameId":1,"timestamp":"2024-07-02T06:00:00Z","riskScore":2}]}`
			},
			want: `startTime "05:00"`,
		},
		{
			name: "risk out of range",
			mutate: func(f map[string]string) {
				f["replay.json"] = `{"frames":[{"frameId":1,"riskScore":11}]}`
			},
			want: "out of range",
		},
		{
			name: "duplicate event",
			mutate: func(f map[string]string) {
				f["replay.json"] = `{"frames":[{"frameId":1,"timestamp":"2024-07-02T06:00:00Z","riskScore":2}],
					"events":[{"frame":0,"label":"Start"},{"frame":0,"label":"Start"}]}`
			},
			want: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := validFiles()
			tt.mutate(files)

			var out bytes.Buffer
			code := run(writeFixtures(t, files), &out)

			assert.Equal(t, 1, code)
			assert.Contains(t, out.String(), "Validation FAILED.")
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
