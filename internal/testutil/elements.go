// Package testutil provides builders for raw power elements, a scripted
// element fetcher and test storage for the osm-powerplants packages.
package testutil

import (
	"github.com/Veraticus/osm-powerplants/internal/model"
)

// ElementBuilder provides a fluent interface for constructing raw elements.
//
// Example:
//
//	el := testutil.Node(1, 35.9, 14.4).
//		Plant().
//		Source("solar").
//		Capacity("10 MW").
//		Name("Sun Farm").
//		Build()
type ElementBuilder struct {
	el model.RawElement
}

// Node starts a node element at a coordinate.
func Node(id int64, lat, lon float64) *ElementBuilder {
	return &ElementBuilder{el: model.RawElement{
		Kind: model.KindNode,
		ID:   id,
		Lat:  &lat,
		Lon:  &lon,
		Tags: map[string]string{},
	}}
}

// Way starts a way element over the given vertices.
func Way(id int64, vertices ...model.LatLon) *ElementBuilder {
	return &ElementBuilder{el: model.RawElement{
		Kind:     model.KindWay,
		ID:       id,
		Geometry: append([]model.LatLon(nil), vertices...),
		Tags:     map[string]string{},
	}}
}

// Relation starts a relation element with the given members.
func Relation(id int64, members ...model.Member) *ElementBuilder {
	return &ElementBuilder{el: model.RawElement{
		Kind:    model.KindRelation,
		ID:      id,
		Members: append([]model.Member(nil), members...),
		Tags:    map[string]string{},
	}}
}

// Square returns the closed ring of a square with its south-west corner at
// (lat, lon).
func Square(lat, lon, size float64) []model.LatLon {
	return []model.LatLon{
		{Lat: lat, Lon: lon},
		{Lat: lat, Lon: lon + size},
		{Lat: lat + size, Lon: lon + size},
		{Lat: lat + size, Lon: lon},
		{Lat: lat, Lon: lon},
	}
}

// OuterMember returns a relation member way with role "outer".
func OuterMember(ref int64, ring []model.LatLon) model.Member {
	return model.Member{Type: model.KindWay, Ref: ref, Role: "outer", Geometry: ring}
}

// InnerMember returns a relation member way with role "inner".
func InnerMember(ref int64, ring []model.LatLon) model.Member {
	return model.Member{Type: model.KindWay, Ref: ref, Role: "inner", Geometry: ring}
}

// Plant tags the element power=plant.
func (b *ElementBuilder) Plant() *ElementBuilder {
	return b.Tag("power", model.PowerPlant)
}

// Generator tags the element power=generator.
func (b *ElementBuilder) Generator() *ElementBuilder {
	return b.Tag("power", model.PowerGenerator)
}

// Source sets the fuel tag matching the element's power role.
func (b *ElementBuilder) Source(value string) *ElementBuilder {
	return b.Tag(b.prefix()+":source", value)
}

// Method sets the technology tag matching the element's power role.
func (b *ElementBuilder) Method(value string) *ElementBuilder {
	return b.Tag(b.prefix()+":method", value)
}

// Capacity sets the electrical output tag matching the element's power role.
func (b *ElementBuilder) Capacity(value string) *ElementBuilder {
	return b.Tag(b.prefix()+":output:electricity", value)
}

// Name sets the name tag.
func (b *ElementBuilder) Name(value string) *ElementBuilder {
	return b.Tag("name", value)
}

// Tag sets an arbitrary tag.
func (b *ElementBuilder) Tag(key, value string) *ElementBuilder {
	b.el.Tags[key] = value
	return b
}

// WithoutCoordinates clears a node's coordinates.
func (b *ElementBuilder) WithoutCoordinates() *ElementBuilder {
	b.el.Lat, b.el.Lon = nil, nil
	return b
}

// Build returns the element. The builder may be reused.
func (b *ElementBuilder) Build() model.RawElement {
	out := b.el
	out.Tags = make(map[string]string, len(b.el.Tags))
	for k, v := range b.el.Tags {
		out.Tags[k] = v
	}
	return out
}

func (b *ElementBuilder) prefix() string {
	if b.el.Tags["power"] == model.PowerGenerator {
		return "generator"
	}
	return "plant"
}
