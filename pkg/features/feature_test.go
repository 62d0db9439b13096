package features

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
)

func TestCombine_SingleGeometryReturnedAsIs(t *testing.T) {
	p := orb.Point{1, 2}
	got, err := Combine(&Collection{Features: []Feature{
		{Geometry: p},
		{Geometry: nil, Properties: map[string]any{"name": "no shape"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestCombine_ManyGeometriesBecomeCollection(t *testing.T) {
	got, err := Combine(&Collection{Features: []Feature{
		{Geometry: orb.Point{1, 2}},
		{Geometry: orb.LineString{{0, 0}, {1, 1}}},
		{},
	}})
	require.NoError(t, err)

	coll, ok := got.(orb.Collection)
	require.True(t, ok, "expected orb.Collection, got %T", got)
	assert.Len(t, coll, 2)
}

func TestCombine_Empty(t *testing.T) {
	_, err := Combine(&Collection{Features: []Feature{{}, {}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)

	_, err = Combine(&Collection{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
}

func TestWithGeometry(t *testing.T) {
	c := &Collection{Features: []Feature{
		{Geometry: orb.Point{1, 1}, Layer: "a"},
		{Layer: "b"},
		{Geometry: orb.Point{2, 2}, Layer: "c"},
	}}
	got := c.WithGeometry()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Layer)
	assert.Equal(t, "c", got[1].Layer)
}

func TestPolygons_GroupsHolesWithOuterRing(t *testing.T) {
	// Outer rings are clockwise, holes counter-clockwise.
	outer := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
	second := []shp.Point{{X: 20, Y: 20}, {X: 20, Y: 30}, {X: 30, Y: 30}, {X: 30, Y: 20}, {X: 20, Y: 20}}

	pts := append(append(append([]shp.Point{}, outer...), hole...), second...)
	parts := []int32{0, int32(len(outer)), int32(len(outer) + len(hole))}

	got := polygons(parts, pts)
	mp, ok := got.(orb.MultiPolygon)
	require.True(t, ok, "expected MultiPolygon, got %T", got)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2, "first polygon keeps its hole")
	assert.Len(t, mp[1], 1)
}

func TestPolygons_SingleRing(t *testing.T) {
	ring := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 0}}
	got := polygons([]int32{0}, ring)
	_, ok := got.(orb.Polygon)
	assert.True(t, ok, "expected Polygon, got %T", got)

	assert.Nil(t, polygons([]int32{0}, ring[:2]), "degenerate rings are dropped")
}

func TestLines(t *testing.T) {
	pts := []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 5, Y: 5}, {X: 6, Y: 6}}
	got := lines([]int32{0, 2}, pts)
	mls, ok := got.(orb.MultiLineString)
	require.True(t, ok)
	assert.Len(t, mls, 2)

	single := lines([]int32{0}, pts[:2])
	_, ok = single.(orb.LineString)
	assert.True(t, ok)
}

func TestTypedAttribute(t *testing.T) {
	intField := shp.Field{Fieldtype: 'N'}
	floatField := shp.Field{Fieldtype: 'N', Precision: 2}
	logical := shp.Field{Fieldtype: 'L'}
	date := shp.Field{Fieldtype: 'D'}
	char := shp.Field{Fieldtype: 'C'}

	assert.Equal(t, int64(42), typedAttribute(intField, " 42"))
	assert.Equal(t, 12.5, typedAttribute(floatField, "12.50"))
	assert.Nil(t, typedAttribute(intField, "*****"))
	assert.Equal(t, true, typedAttribute(logical, "T"))
	assert.Equal(t, false, typedAttribute(logical, "n"))
	assert.Nil(t, typedAttribute(logical, "?"))
	assert.Equal(t, "1931-05-01", typedAttribute(date, "19310501"))
	assert.Equal(t, "Brick", typedAttribute(char, "Brick   "))
	assert.Nil(t, typedAttribute(char, "   "))
}

func TestDecodeText(t *testing.T) {
	latin := string([]byte{'C', 'a', 'f', 0xE9})
	assert.Equal(t, "Café", decodeText(latin, false))
	assert.Equal(t, "Café", decodeText("Café\x00\x00", false))
}
