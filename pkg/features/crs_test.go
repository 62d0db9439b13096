package features

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

const (
	wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	nyPRJ    = `PROJCS["NAD_1983_StatePlane_New_York_Long_Island_FIPS_3104_Feet",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Lambert_Conformal_Conic"],UNIT["Foot_US",0.3048006096012192]]`
	epsgPRJ  = `PROJCS["NAD83 / New York Long Island (ftUS)",GEOGCS["NAD83",AUTHORITY["EPSG","4269"]],UNIT["US survey foot",0.3048006096012192],AUTHORITY["EPSG","2263"]]`
)

func TestParsePRJ(t *testing.T) {
	assert.Equal(t, CRS{Kind: CRSGeodetic}, ParsePRJ(wgs84PRJ))
	assert.Equal(t, CRS{Kind: CRSProjected}, ParsePRJ(nyPRJ))
	assert.Equal(t, CRS{Kind: CRSProjected, EPSG: 2263}, ParsePRJ(epsgPRJ))
	assert.Equal(t, CRS{}, ParsePRJ(""))
	assert.Equal(t, CRS{}, ParsePRJ("not wkt"))
	assert.False(t, ParsePRJ("").Declared())
}

func TestParseCRSName(t *testing.T) {
	assert.Equal(t, CRS{Kind: CRSProjected, EPSG: 2263}, ParseCRSName("urn:ogc:def:crs:EPSG::2263"))
	assert.Equal(t, CRS{Kind: CRSGeodetic, EPSG: 4326}, ParseCRSName("EPSG:4326"))
	assert.Equal(t, CRS{Kind: CRSGeodetic, EPSG: 4326}, ParseCRSName("urn:ogc:def:crs:OGC:1.3:CRS84"))
	assert.Equal(t, CRS{}, ParseCRSName("local"))
	assert.Equal(t, CRS{}, ParseCRSName(""))
}

func TestLooksProjected(t *testing.T) {
	assert.True(t, LooksProjected(orb.Point{987654.3, 201234.5}, 1000))
	assert.True(t, LooksProjected(orb.Point{-1001, 5}, 1000), "magnitude is absolute")
	assert.False(t, LooksProjected(orb.Point{-73.98, 40.75}, 1000))
	assert.False(t, LooksProjected(orb.Collection{}, 1000), "no coordinates")

	poly := orb.Polygon{{{-73.9, 40.7}, {-73.8, 40.7}, {-73.8, 40.8}, {-73.9, 40.7}}}
	assert.False(t, LooksProjected(orb.Collection{orb.MultiPolygon{poly}}, 1000))
}
