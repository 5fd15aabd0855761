package geometry

import "github.com/Veraticus/osm-powerplants/internal/model"

// assembleRings joins member way segments end to end into closed rings.
// Chains that never close are dropped.
func assembleRings(segments [][]model.LatLon) []Ring {
	var (
		rings []Ring
		open  [][]model.LatLon
	)

	for _, seg := range segments {
		if len(seg) < 2 {
			continue
		}
		if isClosed(seg) {
			if ring, _ := toRing(seg); len(ring) >= 3 {
				rings = append(rings, ring)
			}
			continue
		}
		open = append(open, append([]model.LatLon(nil), seg...))
	}

	for len(open) > 0 {
		cur := open[0]
		open = open[1:]

		for !isClosed(cur) {
			idx := -1
			for i, s := range open {
				if joined, ok := join(cur, s); ok {
					cur = joined
					idx = i
					break
				}
			}
			if idx < 0 {
				break
			}
			open = append(open[:idx], open[idx+1:]...)
		}

		if isClosed(cur) {
			if ring, _ := toRing(cur); len(ring) >= 3 {
				rings = append(rings, ring)
			}
		}
	}

	return rings
}

// join appends s to either end of cur when they share an endpoint.
func join(cur, s []model.LatLon) ([]model.LatLon, bool) {
	first, last := cur[0], cur[len(cur)-1]
	sFirst, sLast := s[0], s[len(s)-1]

	switch {
	case last == sFirst:
		return append(cur, s[1:]...), true
	case last == sLast:
		return append(cur, reversed(s)[1:]...), true
	case first == sLast:
		return append(append([]model.LatLon(nil), s[:len(s)-1]...), cur...), true
	case first == sFirst:
		r := reversed(s)
		return append(append([]model.LatLon(nil), r[:len(r)-1]...), cur...), true
	}
	return nil, false
}

func isClosed(pts []model.LatLon) bool {
	return len(pts) > 2 && pts[0] == pts[len(pts)-1]
}

func reversed(pts []model.LatLon) []model.LatLon {
	out := make([]model.LatLon, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
