// Package geojson handles GeoJSON feature collections of point features.
package geojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a single geographic feature with geometry and properties.
// Geometry is nil for records without a known location.
type Feature struct {
	Properties map[string]any `json:"properties"`
	Geometry   *Geometry      `json:"geometry"`
	Type       string         `json:"type"`
}

// Geometry represents the geometry of a feature.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [Lon, Lat]
}

// NewFeatureCollection returns an empty collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// NewPoint returns a Point geometry.
func NewPoint(lat, lon float64) *Geometry {
	return &Geometry{Type: "Point", Coordinates: []float64{lon, lat}}
}

// Add appends a feature.
func (fc *FeatureCollection) Add(geometry *Geometry, properties map[string]any) {
	if properties == nil {
		properties = map[string]any{}
	}
	fc.Features = append(fc.Features, Feature{
		Type:       "Feature",
		Geometry:   geometry,
		Properties: properties,
	})
}

// Encode writes the collection as indented JSON.
func (fc *FeatureCollection) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return nil
}

// WriteFile writes the collection to path, creating parent directories.
func (fc *FeatureCollection) WriteFile(path string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // path comes from the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return fc.Encode(f)
}
