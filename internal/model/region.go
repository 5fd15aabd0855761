package model

import (
	"errors"
	"fmt"
	"strings"
)

// Input errors.
var (
	ErrInvalidRegion       = errors.New("invalid region")
	ErrInvalidDownloadType = errors.New("invalid download type")
)

// RegionKind identifies how a region is scoped.
type RegionKind string

// Region kinds.
const (
	RegionCountry RegionKind = "country"
	RegionBBox    RegionKind = "bbox"
	RegionRadius  RegionKind = "radius"
)

// Region describes the area a query is restricted to.
type Region struct {
	Kind        RegionKind
	Name        string
	CountryCode string
	// Bounds holds south, west, north, east.
	Bounds   [4]float64
	Center   LatLon
	RadiusKm float64
}

// CountryRegion creates a region scoped to a country's administrative boundary.
func CountryRegion(name, isoCode string) Region {
	return Region{Kind: RegionCountry, Name: name, CountryCode: strings.ToUpper(isoCode)}
}

// BBoxRegion creates a region scoped to a bounding box.
func BBoxRegion(name string, south, west, north, east float64) Region {
	return Region{Kind: RegionBBox, Name: name, Bounds: [4]float64{south, west, north, east}}
}

// RadiusRegion creates a circular region around a center point.
func RadiusRegion(name string, center LatLon, radiusKm float64) Region {
	return Region{Kind: RegionRadius, Name: name, Center: center, RadiusKm: radiusKm}
}

// Validate checks the region descriptor without touching the network.
func (r Region) Validate() error {
	switch r.Kind {
	case RegionCountry:
		if len(r.CountryCode) != 2 {
			return fmt.Errorf("%w: country code %q", ErrInvalidRegion, r.CountryCode)
		}
	case RegionBBox:
		s, w, n, e := r.Bounds[0], r.Bounds[1], r.Bounds[2], r.Bounds[3]
		if !validLat(s) || !validLat(n) || !validLon(w) || !validLon(e) {
			return fmt.Errorf("%w: bounds out of range %v", ErrInvalidRegion, r.Bounds)
		}
		if s >= n || w >= e {
			return fmt.Errorf("%w: empty bounding box %v", ErrInvalidRegion, r.Bounds)
		}
	case RegionRadius:
		if !validLat(r.Center.Lat) || !validLon(r.Center.Lon) {
			return fmt.Errorf("%w: center out of range %v", ErrInvalidRegion, r.Center)
		}
		if r.RadiusKm <= 0 {
			return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidRegion, r.RadiusKm)
		}
	default:
		return fmt.Errorf("%w: unknown region kind %q", ErrInvalidRegion, r.Kind)
	}
	return nil
}

// Shape returns the query shape used for this region.
func (r Region) Shape() string {
	switch r.Kind {
	case RegionCountry:
		return "area"
	case RegionBBox:
		return "bbox"
	case RegionRadius:
		return "radius"
	}
	return string(r.Kind)
}

// Descriptor returns a normalized textual form of the region. Two regions
// with equal descriptors issue identical queries.
func (r Region) Descriptor() string {
	switch r.Kind {
	case RegionCountry:
		return "country:" + strings.ToUpper(r.CountryCode)
	case RegionBBox:
		return fmt.Sprintf("bbox:%.6f,%.6f,%.6f,%.6f", r.Bounds[0], r.Bounds[1], r.Bounds[2], r.Bounds[3])
	case RegionRadius:
		return fmt.Sprintf("radius:%.6f,%.6f,%.3f", r.Center.Lat, r.Center.Lon, r.RadiusKm)
	}
	return string(r.Kind)
}

// Label returns a human-readable name for logs and reports.
func (r Region) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Descriptor()
}

func validLat(v float64) bool { return v >= -90 && v <= 90 }
func validLon(v float64) bool { return v >= -180 && v <= 180 }

// DownloadType selects which power elements a query returns.
type DownloadType string

// Download types.
const (
	DownloadPlants     DownloadType = "plants"
	DownloadGenerators DownloadType = "generators"
	DownloadBoth       DownloadType = "both"
)

// ParseDownloadType validates a download type name.
func ParseDownloadType(s string) (DownloadType, error) {
	switch dt := DownloadType(strings.ToLower(strings.TrimSpace(s))); dt {
	case DownloadPlants, DownloadGenerators, DownloadBoth:
		return dt, nil
	case "":
		return DownloadBoth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDownloadType, s)
}

// IncludesPlants reports whether plant elements are requested.
func (d DownloadType) IncludesPlants() bool {
	return d == DownloadPlants || d == DownloadBoth
}

// IncludesGenerators reports whether generator elements are requested.
func (d DownloadType) IncludesGenerators() bool {
	return d == DownloadGenerators || d == DownloadBoth
}
