package features

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// CRSKind is the coarse class of a coordinate reference system.
type CRSKind int

const (
	// CRSUndeclared means the input carried no usable CRS declaration.
	CRSUndeclared CRSKind = iota
	CRSGeodetic
	CRSProjected
)

func (k CRSKind) String() string {
	switch k {
	case CRSGeodetic:
		return "geodetic"
	case CRSProjected:
		return "projected"
	default:
		return "undeclared"
	}
}

// CRS is the reference system an input declares. EPSG is zero when the
// declaration names no authority code.
type CRS struct {
	Kind CRSKind
	EPSG int
}

// Declared reports whether the input carried a CRS declaration.
func (c CRS) Declared() bool {
	return c.Kind != CRSUndeclared
}

var (
	rootAuthority = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]\s*\]\s*$`)
	epsgName      = regexp.MustCompile(`EPSG:{1,2}(\d+)$`)
)

// ParsePRJ reads the WKT of a shapefile .prj entry.
func ParsePRJ(wkt string) CRS {
	s := strings.ToUpper(strings.TrimSpace(wkt))

	var crs CRS
	switch {
	case strings.HasPrefix(s, "PROJCS[") || strings.HasPrefix(s, "PROJCRS["):
		crs.Kind = CRSProjected
	case strings.HasPrefix(s, "GEOGCS[") || strings.HasPrefix(s, "GEOGCRS[") || strings.HasPrefix(s, "GEODCRS["):
		crs.Kind = CRSGeodetic
	default:
		return CRS{}
	}

	if m := rootAuthority.FindStringSubmatch(s); m != nil {
		crs.EPSG, _ = strconv.Atoi(m[1])
	}
	return crs
}

// geodeticCodes are EPSG codes of latitude/longitude systems seen in practice.
var geodeticCodes = map[int]bool{4326: true, 4269: true, 4258: true, 4152: true, 4267: true}

// ParseCRSName reads a GeoJSON named CRS such as "urn:ogc:def:crs:EPSG::2263",
// "EPSG:4326" or "urn:ogc:def:crs:OGC:1.3:CRS84".
func ParseCRSName(name string) CRS {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return CRS{}
	}
	if strings.HasSuffix(s, "CRS84") {
		return CRS{Kind: CRSGeodetic, EPSG: 4326}
	}
	m := epsgName.FindStringSubmatch(s)
	if m == nil {
		return CRS{}
	}
	code, err := strconv.Atoi(m[1])
	if err != nil || code <= 0 {
		return CRS{}
	}
	if geodeticCodes[code] {
		return CRS{Kind: CRSGeodetic, EPSG: code}
	}
	return CRS{Kind: CRSProjected, EPSG: code}
}

// LooksProjected applies the magnitude heuristic: a geometry whose first
// coordinate has |x| above threshold cannot be a longitude.
func LooksProjected(g orb.Geometry, threshold float64) bool {
	p, ok := FirstCoordinate(g)
	if !ok {
		return false
	}
	return math.Abs(p.X()) > threshold
}
