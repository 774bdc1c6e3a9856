package domain

import (
	"context"
	"log/slog"
)

// RegionLabel names the area a replay covers and where the map centres.
type RegionLabel struct {
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Confidence       float64 `json:"confidence,omitempty"`
	Source           string  `json:"source"` // "reverse", "forward", "original", "failed"
}

// Centroid averages the rainfall points of the first frame that has any.
// ok is false when no frame carries heatmap points.
func (d ReplayDataset) Centroid() (lat, lng float64, ok bool) {
	for _, f := range d.Frames {
		if len(f.RainfallLayer) == 0 {
			continue
		}
		for _, p := range f.RainfallLayer {
			lat += p.Lat
			lng += p.Lng
		}
		n := float64(len(f.RainfallLayer))
		return lat / n, lng / n, true
	}
	return 0, 0, false
}

// LabelRegion resolves a human-readable region for the dataset. With
// heatmap points it reverse geocodes their centroid; without them it
// forward geocodes the dataset's region name to find a map centre.
// A nil geocoder or a failed lookup degrades to the fixture's own values.
func LabelRegion(ctx context.Context, ds ReplayDataset, geocoder Geocoder, logger *slog.Logger) RegionLabel {
	label := RegionLabel{Name: ds.Region, Source: "original"}
	lat, lng, hasCoords := ds.Centroid()
	if hasCoords {
		label.Lat, label.Lng = lat, lng
	}

	if geocoder == nil {
		return label
	}

	if hasCoords {
		result, err := geocoder.ReverseGeocode(ctx, lat, lng)
		if err != nil {
			logger.Warn("reverse geocoding failed", "lat", lat, "lng", lng, "error", err)
			label.Source = "failed"
			return label
		}
		if result.FormattedAddress != "" {
			if label.Name == "" {
				label.Name = result.PlaceName
			}
			label.FormattedAddress = result.FormattedAddress
			label.Confidence = result.Confidence
			label.Source = "reverse"
		}
		return label
	}

	if ds.Region == "" {
		return label
	}

	result, err := geocoder.ForwardGeocode(ctx, ds.Region)
	if err != nil {
		logger.Warn("forward geocoding failed", "region", ds.Region, "error", err)
		label.Source = "failed"
		return label
	}
	if result.Lat != 0 || result.Lon != 0 {
		label.Lat, label.Lng = result.Lat, result.Lon
		label.FormattedAddress = result.FormattedAddress
		label.Confidence = result.Confidence
		label.Source = "forward"
	}
	return label
}
