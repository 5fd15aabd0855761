// Package geometry resolves raw map elements into representative points and
// containment surfaces.
//
// The representative point of a way is the arithmetic mean of its distinct
// vertices, not the area-weighted centroid. Dense vertex runs pull the point
// toward them. Downstream consumers rely on this exact behavior, so it is
// kept as is.
package geometry

import (
	"github.com/Veraticus/osm-powerplants/internal/model"
)

// Ring is a sequence of vertices with an implicit closing edge. The closing
// vertex is never repeated.
type Ring []model.LatLon

// Polygon is an outer ring with optional holes.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// Geometry is the resolved form of one element. Kind selects which fields
// are meaningful: nodes only carry Center, ways and relations may carry
// Polygons when they enclose an area.
type Geometry struct {
	ID       string
	Kind     model.ElementKind
	Polygons []Polygon
	Center   model.LatLon
}

// HasSurface reports whether the geometry can contain points.
func (g Geometry) HasSurface() bool {
	return len(g.Polygons) > 0
}

// OuterRing returns the first outer ring, or nil for point-like geometries.
func (g Geometry) OuterRing() Ring {
	if len(g.Polygons) == 0 {
		return nil
	}
	return g.Polygons[0].Outer
}

// Resolve computes the geometry of an element. It returns false when the
// element carries no usable coordinates.
func Resolve(el model.RawElement) (Geometry, bool) {
	g := Geometry{ID: el.Key(), Kind: el.Kind}

	switch el.Kind {
	case model.KindNode:
		if el.Lat == nil || el.Lon == nil {
			return g, false
		}
		p := model.LatLon{Lat: *el.Lat, Lon: *el.Lon}
		if !validPoint(p) {
			return g, false
		}
		g.Center = p
		return g, true

	case model.KindWay:
		ring, closed := toRing(el.Geometry)
		if len(ring) == 0 {
			return g, false
		}
		g.Center = mean(ring)
		if closed && len(ring) >= 3 {
			g.Polygons = []Polygon{{Outer: ring}}
		}
		return g, true

	case model.KindRelation:
		return resolveRelation(el, g)
	}

	return g, false
}

// Centroid returns the representative point as (lat, lon).
func Centroid(g Geometry) (float64, float64) {
	return g.Center.Lat, g.Center.Lon
}

// Contains reports whether p falls inside any outer ring of g and outside
// that ring's holes. Points exactly on an edge may go either way.
func Contains(g Geometry, p model.LatLon) bool {
	for _, poly := range g.Polygons {
		if !inRing(p, poly.Outer) {
			continue
		}
		inHole := false
		for _, hole := range poly.Holes {
			if inRing(p, hole) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

func resolveRelation(el model.RawElement, g Geometry) (Geometry, bool) {
	var (
		reps     []model.LatLon
		nodes    []model.LatLon
		outerSeg [][]model.LatLon
		innerSeg [][]model.LatLon
	)

	for _, m := range el.Members {
		switch m.Type {
		case model.KindWay:
			ring, _ := toRing(m.Geometry)
			if len(ring) == 0 {
				continue
			}
			reps = append(reps, mean(ring))
			if m.Role == "inner" {
				innerSeg = append(innerSeg, validOnly(m.Geometry))
			} else {
				outerSeg = append(outerSeg, validOnly(m.Geometry))
			}
		case model.KindNode:
			if m.Lat != nil && m.Lon != nil {
				p := model.LatLon{Lat: *m.Lat, Lon: *m.Lon}
				if validPoint(p) {
					nodes = append(nodes, p)
				}
			}
		}
	}

	switch {
	case len(reps) > 0:
		g.Center = mean(reps)
	case len(nodes) > 0:
		g.Center = mean(nodes)
	default:
		return g, false
	}

	for _, outer := range assembleRings(outerSeg) {
		g.Polygons = append(g.Polygons, Polygon{Outer: outer})
	}
	for _, inner := range assembleRings(innerSeg) {
		for i := range g.Polygons {
			if inRing(inner[0], g.Polygons[i].Outer) {
				g.Polygons[i].Holes = append(g.Polygons[i].Holes, inner)
				break
			}
		}
	}

	return g, true
}

// toRing drops invalid vertices and the repeated closing vertex. closed
// reports whether the input ended where it started.
func toRing(pts []model.LatLon) (Ring, bool) {
	valid := validOnly(pts)
	if len(valid) == 0 {
		return nil, false
	}
	closed := len(valid) > 1 && valid[0] == valid[len(valid)-1]
	if closed {
		valid = valid[:len(valid)-1]
	}
	return Ring(valid), closed
}

func validOnly(pts []model.LatLon) []model.LatLon {
	out := make([]model.LatLon, 0, len(pts))
	for _, p := range pts {
		if validPoint(p) {
			out = append(out, p)
		}
	}
	return out
}

func validPoint(p model.LatLon) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func mean(pts []model.LatLon) model.LatLon {
	var lat, lon float64
	for _, p := range pts {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(pts))
	return model.LatLon{Lat: lat / n, Lon: lon / n}
}

// inRing is the even-odd ray casting rule with lon as x and lat as y.
func inRing(p model.LatLon, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, yj := ring[i].Lat, ring[j].Lat
		xi, xj := ring[i].Lon, ring[j].Lon
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lon < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
