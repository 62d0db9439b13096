package services

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/encoding/wkb"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/features"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
)

// BoundaryService finds stored sites intersecting an uploaded shape.
type BoundaryService interface {
	FindIntersecting(ctx context.Context, archivePath string) ([]int64, error)
}

type boundaryService struct {
	geometryRepo repositories.GeometryRepository
	scope        ScopeFunc
	crs          CRSPolicy
	logger       *zap.Logger
}

// NewBoundaryService creates a new boundary service.
func NewBoundaryService(geometryRepo repositories.GeometryRepository, scope ScopeFunc, crs CRSPolicy, logger *zap.Logger) BoundaryService {
	return &boundaryService{
		geometryRepo: geometryRepo,
		scope:        scope,
		crs:          crs,
		logger:       logger.Named("boundary"),
	}
}

var _ BoundaryService = (*boundaryService)(nil)

func (s *boundaryService) FindIntersecting(ctx context.Context, archivePath string) ([]int64, error) {
	coll, err := features.ReadArchive(archivePath)
	if err != nil {
		return nil, err
	}
	combined, err := features.Combine(coll)
	if err != nil {
		return nil, err
	}
	data, err := wkb.Marshal(combined)
	if err != nil {
		return nil, fmt.Errorf("failed to encode boundary geometry: %w", err)
	}

	// All layers of one archive are assumed to share a reference system.
	var declared features.CRS
	if withGeom := coll.WithGeometry(); len(withGeom) > 0 {
		declared = withGeom[0].CRS
	}
	srid := s.crs.SRIDFor(declared, combined)

	scoped, cleanup, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ids, err := s.geometryRepo.FindIntersecting(scoped, data, srid, s.crs.ProjectedSRID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Boundary query",
		zap.String("geometry_type", combined.GeoJSONType()),
		zap.Int("srid", srid),
		zap.Int("matches", len(ids)))
	return ids, nil
}
