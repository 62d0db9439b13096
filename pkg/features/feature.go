// Package features decodes packaged feature collections (zipped shapefiles or
// GeoJSON) into geometry + property bag pairs.
package features

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
)

// Feature is one decoded record. Geometry is nil when the source record has
// no shape.
type Feature struct {
	Geometry   orb.Geometry
	Properties map[string]any
	// CRS is the reference system declared by the layer the feature came from.
	CRS CRS
	// Layer is the archive entry the feature was read from.
	Layer string
}

// Collection is the ordered result of decoding one archive.
type Collection struct {
	Features []Feature
	// Fields lists property names in first-seen order across all layers.
	Fields []string
}

func (c *Collection) addFields(names []string) {
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		seen[f] = struct{}{}
	}
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		c.Fields = append(c.Fields, n)
	}
}

// WithGeometry returns the features that carry a geometry, preserving order.
func (c *Collection) WithGeometry() []Feature {
	out := make([]Feature, 0, len(c.Features))
	for _, f := range c.Features {
		if f.Geometry != nil {
			out = append(out, f)
		}
	}
	return out
}

// Combine reduces a collection to one geometry for intersection queries.
// A single geometry is returned as-is; several become an orb.Collection.
// Features without geometry are dropped.
func Combine(c *Collection) (orb.Geometry, error) {
	geoms := make(orb.Collection, 0, len(c.Features))
	for _, f := range c.Features {
		if f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	}

	switch len(geoms) {
	case 0:
		return nil, fmt.Errorf("%w: no feature has a geometry", apperrors.ErrEmptyInput)
	case 1:
		return geoms[0], nil
	default:
		return geoms, nil
	}
}

// FirstCoordinate returns the first vertex of g in traversal order.
func FirstCoordinate(g orb.Geometry) (orb.Point, bool) {
	switch v := g.(type) {
	case orb.Point:
		return v, true
	case orb.MultiPoint:
		return firstOf(v)
	case orb.LineString:
		return firstOf(v)
	case orb.Ring:
		return firstOf(v)
	case orb.MultiLineString:
		for _, ls := range v {
			if p, ok := firstOf(ls); ok {
				return p, true
			}
		}
	case orb.Polygon:
		for _, r := range v {
			if p, ok := firstOf(r); ok {
				return p, true
			}
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			if p, ok := FirstCoordinate(poly); ok {
				return p, true
			}
		}
	case orb.Collection:
		for _, child := range v {
			if p, ok := FirstCoordinate(child); ok {
				return p, true
			}
		}
	case orb.Bound:
		return v.Min, true
	}
	return orb.Point{}, false
}

func firstOf[T ~[]orb.Point](pts T) (orb.Point, bool) {
	if len(pts) == 0 {
		return orb.Point{}, false
	}
	return pts[0], true
}
