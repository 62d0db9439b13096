package services

import (
	"github.com/paulmach/orb"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/features"
)

// CRSPolicy decides which reference system a decoded geometry is in.
type CRSPolicy struct {
	ProjectedSRID int
	GeodeticSRID  int
	// Threshold is the coordinate magnitude above which an undeclared
	// geometry is taken to be projected already.
	Threshold float64
}

// SRIDFor prefers the CRS the input declared and falls back to the magnitude
// heuristic only when nothing was declared.
func (p CRSPolicy) SRIDFor(crs features.CRS, g orb.Geometry) int {
	switch crs.Kind {
	case features.CRSProjected:
		if crs.EPSG != 0 {
			return crs.EPSG
		}
		return p.ProjectedSRID
	case features.CRSGeodetic:
		if crs.EPSG != 0 {
			return crs.EPSG
		}
		return p.GeodeticSRID
	}
	if features.LooksProjected(g, p.Threshold) {
		return p.ProjectedSRID
	}
	return p.GeodeticSRID
}
