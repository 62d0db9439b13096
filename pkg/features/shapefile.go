package features

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"golang.org/x/text/encoding/charmap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
)

func readShapefileLayer(entries entrySet, base string) (*Collection, error) {
	shpFile := entries.sibling(base, ".shp")
	shpRC, err := shpFile.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", apperrors.ErrMalformedInput, shpFile.Name, err)
	}

	dbfFile := entries.sibling(base, ".dbf")
	if dbfFile == nil {
		shpRC.Close()
		return nil, fmt.Errorf("%w: %s has no matching .dbf attribute table", apperrors.ErrMalformedInput, shpFile.Name)
	}
	dbfRC, err := dbfFile.Open()
	if err != nil {
		shpRC.Close()
		return nil, fmt.Errorf("%w: cannot open %s: %v", apperrors.ErrMalformedInput, dbfFile.Name, err)
	}

	crs := CRS{}
	if prj := entries.sibling(base, ".prj"); prj != nil {
		data, err := readEntry(prj)
		if err != nil {
			shpRC.Close()
			dbfRC.Close()
			return nil, err
		}
		crs = ParsePRJ(string(data))
	}

	utf8Declared := false
	if cpg := entries.sibling(base, ".cpg"); cpg != nil {
		if data, err := readEntry(cpg); err == nil {
			enc := strings.ToUpper(strings.TrimSpace(string(data)))
			utf8Declared = enc == "UTF-8" || enc == "UTF8" || enc == "65001"
		}
	}

	sr := shp.SequentialReaderFromExt(shpRC, dbfRC)
	defer sr.Close()

	return decodeLayer(sr, shpFile.Name, crs, utf8Declared)
}

func decodeLayer(sr shp.SequentialReader, layer string, crs CRS, utf8Declared bool) (*Collection, error) {
	fields := sr.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = decodeText(strings.TrimSpace(f.String()), utf8Declared)
	}

	out := &Collection{Fields: names}
	for sr.Next() {
		_, shape := sr.Shape()
		props := make(map[string]any, len(fields))
		for i, f := range fields {
			if v := typedAttribute(f, decodeText(sr.Attribute(i), utf8Declared)); v != nil {
				props[names[i]] = v
			}
		}
		out.Features = append(out.Features, Feature{
			Geometry:   shapeToGeometry(shape),
			Properties: props,
			CRS:        crs,
			Layer:      layer,
		})
	}
	if err := sr.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedInput, layer, err)
	}
	return out, nil
}

// decodeText turns DBF bytes into UTF-8. Without a UTF-8 code page
// declaration, invalid sequences are read as Windows-1252.
func decodeText(s string, utf8Declared bool) string {
	s = strings.TrimRight(s, "\x00")
	if utf8Declared || utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

// typedAttribute converts a raw DBF cell according to its field type.
func typedAttribute(f shp.Field, raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	switch f.Fieldtype {
	case 'N', 'F':
		if f.Precision == 0 {
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return i
			}
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
		// overflow markers such as "*****"
		return nil
	case 'L':
		switch raw {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		default:
			return nil
		}
	case 'D':
		if d, err := time.Parse("20060102", raw); err == nil {
			return d.Format(time.DateOnly)
		}
		return raw
	default:
		return raw
	}
}

func shapeToGeometry(s shp.Shape) orb.Geometry {
	switch g := s.(type) {
	case *shp.Point:
		return orb.Point{g.X, g.Y}
	case *shp.PointZ:
		return orb.Point{g.X, g.Y}
	case *shp.PointM:
		return orb.Point{g.X, g.Y}
	case *shp.MultiPoint:
		return multiPoint(g.Points)
	case *shp.MultiPointZ:
		return multiPoint(g.Points)
	case *shp.MultiPointM:
		return multiPoint(g.Points)
	case *shp.PolyLine:
		return lines(g.Parts, g.Points)
	case *shp.PolyLineZ:
		return lines(g.Parts, g.Points)
	case *shp.PolyLineM:
		return lines(g.Parts, g.Points)
	case *shp.Polygon:
		return polygons(g.Parts, g.Points)
	case *shp.PolygonZ:
		return polygons(g.Parts, g.Points)
	case *shp.PolygonM:
		return polygons(g.Parts, g.Points)
	default:
		return nil
	}
}

func multiPoint(pts []shp.Point) orb.Geometry {
	if len(pts) == 0 {
		return nil
	}
	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// splitParts cuts the flat point list of a multi-part shape at each part offset.
func splitParts(parts []int32, pts []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(pts) {
			continue
		}
		part := make([]orb.Point, 0, end-start)
		for _, p := range pts[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		out = append(out, part)
	}
	return out
}

func lines(parts []int32, pts []shp.Point) orb.Geometry {
	var mls orb.MultiLineString
	for _, part := range splitParts(parts, pts) {
		if len(part) >= 2 {
			mls = append(mls, orb.LineString(part))
		}
	}
	switch len(mls) {
	case 0:
		return nil
	case 1:
		return mls[0]
	default:
		return mls
	}
}

// polygons groups shapefile rings: clockwise rings start a new polygon and
// counter-clockwise rings are holes of the polygon before them.
func polygons(parts []int32, pts []shp.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for _, part := range splitParts(parts, pts) {
		if len(part) < 4 {
			continue
		}
		ring := orb.Ring(part)
		if signedArea(ring) < 0 || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	default:
		return mp
	}
}

// signedArea is positive for counter-clockwise rings.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
