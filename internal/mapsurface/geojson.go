package mapsurface

import "github.com/couchcryptid/flood-replay-service/internal/domain"

// FeatureCollection is the GeoJSON source backing the heatmap layer.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single weighted heatmap point.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   Point             `json:"geometry"`
	Properties HeatmapProperties `json:"properties"`
}

// Point is a GeoJSON point in [lng, lat] order.
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// HeatmapProperties carries the weights the heatmap paint expressions read.
type HeatmapProperties struct {
	Intensity float64 `json:"intensity"`
	Value     float64 `json:"value"`
}

// HeatmapFeatures converts frame rainfall points into a FeatureCollection.
// Features is never nil so the source always encodes as an array.
func HeatmapFeatures(points []domain.RainfallPoint) FeatureCollection {
	features := make([]Feature, 0, len(points))
	for _, p := range points {
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Point{
				Type:        "Point",
				Coordinates: [2]float64{p.Lng, p.Lat},
			},
			Properties: HeatmapProperties{Intensity: p.Intensity, Value: p.Value},
		})
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
