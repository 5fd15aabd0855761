package geometry

import (
	"testing"

	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func ll(lat, lon float64) model.LatLon { return model.LatLon{Lat: lat, Lon: lon} }

// square returns a closed ring around (lat0, lon0) with the given size.
func square(lat0, lon0, size float64) []model.LatLon {
	return []model.LatLon{
		ll(lat0, lon0),
		ll(lat0, lon0+size),
		ll(lat0+size, lon0+size),
		ll(lat0+size, lon0),
		ll(lat0, lon0),
	}
}

func TestResolve_Node(t *testing.T) {
	g, ok := Resolve(model.RawElement{Kind: model.KindNode, ID: 123, Lat: ptr(52.0), Lon: ptr(13.0)})
	require.True(t, ok)

	lat, lon := Centroid(g)
	assert.Equal(t, 52.0, lat)
	assert.Equal(t, 13.0, lon)
	assert.Equal(t, "node/123", g.ID)
	assert.False(t, g.HasSurface())
	assert.False(t, Contains(g, ll(52.0, 13.0)))
}

func TestResolve_Way(t *testing.T) {
	way := model.RawElement{Kind: model.KindWay, ID: 456, Geometry: square(52.0, 13.0, 0.1)}

	g, ok := Resolve(way)
	require.True(t, ok)
	require.True(t, g.HasSurface())
	assert.Len(t, g.OuterRing(), 4, "closing vertex is not repeated")

	lat, lon := Centroid(g)
	assert.InDelta(t, 52.05, lat, 1e-9)
	assert.InDelta(t, 13.05, lon, 1e-9)

	assert.True(t, Contains(g, ll(52.05, 13.05)))
	assert.False(t, Contains(g, ll(53.0, 14.0)))
}

func TestResolve_WayVertexMeanBias(t *testing.T) {
	// Extra vertices along the bottom edge pull the representative point
	// south of the true centroid.
	pts := []model.LatLon{
		ll(0, 0), ll(0, 0.25), ll(0, 0.5), ll(0, 0.75), ll(0, 1),
		ll(1, 1), ll(1, 0), ll(0, 0),
	}
	g, ok := Resolve(model.RawElement{Kind: model.KindWay, ID: 1, Geometry: pts})
	require.True(t, ok)

	lat, _ := Centroid(g)
	assert.InDelta(t, 2.0/7.0, lat, 1e-9)
}

func TestResolve_OpenWayHasNoSurface(t *testing.T) {
	g, ok := Resolve(model.RawElement{
		Kind:     model.KindWay,
		ID:       7,
		Geometry: []model.LatLon{ll(0, 0), ll(0, 1), ll(1, 1)},
	})
	require.True(t, ok)
	assert.False(t, g.HasSurface())
	assert.False(t, Contains(g, ll(0.2, 0.8)))
}

func TestResolve_Unresolvable(t *testing.T) {
	tests := []struct {
		name string
		el   model.RawElement
	}{
		{"node without coordinates", model.RawElement{Kind: model.KindNode, ID: 1}},
		{"node out of range", model.RawElement{Kind: model.KindNode, ID: 1, Lat: ptr(120), Lon: ptr(0)}},
		{"empty way", model.RawElement{Kind: model.KindWay, ID: 2}},
		{"relation without members", model.RawElement{Kind: model.KindRelation, ID: 3}},
		{"relation with empty members", model.RawElement{
			Kind:    model.KindRelation,
			ID:      4,
			Members: []model.Member{{Type: model.KindWay, Ref: 9, Role: "outer"}},
		}},
		{"unknown kind", model.RawElement{Kind: "area", ID: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Resolve(tt.el)
			assert.False(t, ok)
		})
	}
}

func TestResolve_MultipolygonRelation(t *testing.T) {
	rel := model.RawElement{
		Kind: model.KindRelation,
		ID:   99,
		Members: []model.Member{
			{Type: model.KindWay, Ref: 1, Role: "outer", Geometry: square(0, 0, 1)},
			{Type: model.KindWay, Ref: 2, Role: "outer", Geometry: square(10, 10, 1)},
			{Type: model.KindWay, Ref: 3, Role: "inner", Geometry: square(0.25, 0.25, 0.5)},
		},
	}

	g, ok := Resolve(rel)
	require.True(t, ok)
	require.Len(t, g.Polygons, 2)
	require.Len(t, g.Polygons[0].Holes, 1)

	// Mean of the three member representative points.
	lat, lon := Centroid(g)
	assert.InDelta(t, (0.5+10.5+0.5)/3, lat, 1e-9)
	assert.InDelta(t, (0.5+10.5+0.5)/3, lon, 1e-9)

	assert.True(t, Contains(g, ll(0.1, 0.1)), "inside first part")
	assert.True(t, Contains(g, ll(10.5, 10.5)), "inside second part")
	assert.False(t, Contains(g, ll(0.5, 0.5)), "inside the hole")
	assert.False(t, Contains(g, ll(5, 5)), "between parts")
}

func TestResolve_RelationJoinsOpenWays(t *testing.T) {
	// The outer boundary is split into two open ways, the second reversed.
	rel := model.RawElement{
		Kind: model.KindRelation,
		ID:   100,
		Members: []model.Member{
			{Type: model.KindWay, Ref: 1, Role: "outer", Geometry: []model.LatLon{ll(0, 0), ll(0, 2), ll(2, 2)}},
			{Type: model.KindWay, Ref: 2, Role: "outer", Geometry: []model.LatLon{ll(0, 0), ll(2, 0), ll(2, 2)}},
		},
	}

	g, ok := Resolve(rel)
	require.True(t, ok)
	require.Len(t, g.Polygons, 1)
	assert.Len(t, g.Polygons[0].Outer, 4)
	assert.True(t, Contains(g, ll(1, 1)))
	assert.False(t, Contains(g, ll(3, 1)))
}

func TestResolve_RelationOfNodes(t *testing.T) {
	rel := model.RawElement{
		Kind: model.KindRelation,
		ID:   101,
		Members: []model.Member{
			{Type: model.KindNode, Ref: 1, Lat: ptr(1), Lon: ptr(1)},
			{Type: model.KindNode, Ref: 2, Lat: ptr(3), Lon: ptr(5)},
		},
	}

	g, ok := Resolve(rel)
	require.True(t, ok)
	assert.False(t, g.HasSurface())
	lat, lon := Centroid(g)
	assert.InDelta(t, 2.0, lat, 1e-9)
	assert.InDelta(t, 3.0, lon, 1e-9)
}

func TestContains_ConcavePolygon(t *testing.T) {
	// U shape: the notch between the arms is outside.
	u := []model.LatLon{
		ll(0, 0), ll(0, 3), ll(3, 3), ll(3, 2), ll(1, 2), ll(1, 1), ll(3, 1), ll(3, 0), ll(0, 0),
	}
	g, ok := Resolve(model.RawElement{Kind: model.KindWay, ID: 5, Geometry: u})
	require.True(t, ok)

	assert.True(t, Contains(g, ll(0.5, 1.5)))
	assert.True(t, Contains(g, ll(2, 0.5)))
	assert.False(t, Contains(g, ll(2, 1.5)))
}
