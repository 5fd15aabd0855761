// Package model contains the data types shared across the pipeline.
package model

import (
	"fmt"
	"time"
)

// ElementKind is the map element type reported by the query service.
type ElementKind string

// Element kinds.
const (
	KindNode     ElementKind = "node"
	KindWay      ElementKind = "way"
	KindRelation ElementKind = "relation"
)

// Power tag values that select plant-level and generator-level elements.
const (
	PowerPlant     = "plant"
	PowerGenerator = "generator"
)

// LatLon is a WGS84 coordinate.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Member is one member of a relation as returned with inline geometry.
type Member struct {
	Lat      *float64    `json:"lat,omitempty"`
	Lon      *float64    `json:"lon,omitempty"`
	Type     ElementKind `json:"type"`
	Role     string      `json:"role"`
	Geometry []LatLon    `json:"geometry,omitempty"`
	Ref      int64       `json:"ref"`
}

// RawElement is one geometry-bearing record from the query service.
// It is never modified after decoding.
type RawElement struct {
	Lat      *float64          `json:"lat,omitempty"`
	Lon      *float64          `json:"lon,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Kind     ElementKind       `json:"type"`
	Geometry []LatLon          `json:"geometry,omitempty"`
	Members  []Member          `json:"members,omitempty"`
	ID       int64             `json:"id"`
}

// Key returns the stable "<kind>/<id>" identifier of the element.
func (e RawElement) Key() string {
	return fmt.Sprintf("%s/%d", e.Kind, e.ID)
}

// Tag returns the value of a tag or the empty string.
func (e RawElement) Tag(key string) string {
	if e.Tags == nil {
		return ""
	}
	return e.Tags[key]
}

// PowerRole reports whether the element is tagged as a plant or a generator.
func (e RawElement) PowerRole() string {
	return e.Tag("power")
}

// ElementSet is the raw result of one regional query, split by power role.
type ElementSet struct {
	FetchedAt  time.Time
	Plants     []RawElement
	Generators []RawElement
	FromCache  bool
}

// Len returns the total number of elements in the set.
func (s *ElementSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Plants) + len(s.Generators)
}
