package services

import (
	"context"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
)

// ClusterService aggregates a project's site geometries for map display.
type ClusterService interface {
	// GetClusters buckets the project's sites on a grid of cellSize degrees.
	// A non-positive cellSize uses the configured default.
	GetClusters(ctx context.Context, projectID int64, cellSize float64) (*models.ClusterResult, error)
}

// ClusterConfig configures grid aggregation.
type ClusterConfig struct {
	DefaultCellSize float64
	SampleSize      int
	GeodeticSRID    int
}

type clusterService struct {
	projectRepo  repositories.ProjectRepository
	geometryRepo repositories.GeometryRepository
	scope        ScopeFunc
	cfg          ClusterConfig
	logger       *zap.Logger
}

// NewClusterService creates a new cluster service.
func NewClusterService(projectRepo repositories.ProjectRepository, geometryRepo repositories.GeometryRepository, scope ScopeFunc, cfg ClusterConfig, logger *zap.Logger) ClusterService {
	if cfg.DefaultCellSize <= 0 {
		cfg.DefaultCellSize = 0.01
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 5
	}
	if cfg.GeodeticSRID == 0 {
		cfg.GeodeticSRID = 4326
	}
	return &clusterService{
		projectRepo:  projectRepo,
		geometryRepo: geometryRepo,
		scope:        scope,
		cfg:          cfg,
		logger:       logger.Named("cluster"),
	}
}

var _ ClusterService = (*clusterService)(nil)

func (s *clusterService) GetClusters(ctx context.Context, projectID int64, cellSize float64) (*models.ClusterResult, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = s.cfg.DefaultCellSize
	}

	scoped, cleanup, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if _, err := s.projectRepo.Get(scoped, projectID); err != nil {
		return nil, err
	}
	points, err := s.geometryRepo.ListProjectPoints(scoped, projectID, s.cfg.GeodeticSRID)
	if err != nil {
		return nil, err
	}

	result := AggregateGrid(points, cellSize, s.cfg.SampleSize)
	result.ProjectID = projectID
	return result, nil
}

type gridCell struct {
	x, y int64
}

type cellAccumulator struct {
	sumLon, sumLat float64
	count          int
	samples        []int64
}

// AggregateGrid buckets points into square cells of cellSize. Each cluster is
// placed at the mean of its members and carries up to sampleSize member ids.
// Clusters are ordered by descending count, then position.
func AggregateGrid(points []models.SitePoint, cellSize float64, sampleSize int) *models.ClusterResult {
	result := &models.ClusterResult{
		CellSize: cellSize,
		Clusters: []models.Cluster{},
		Total:    len(points),
	}
	if len(points) == 0 {
		return result
	}

	cells := make(map[gridCell]*cellAccumulator)
	var order []gridCell
	bound := orb.Bound{Min: orb.Point{points[0].Lon, points[0].Lat}, Max: orb.Point{points[0].Lon, points[0].Lat}}

	for _, p := range points {
		bound = bound.Extend(orb.Point{p.Lon, p.Lat})
		key := gridCell{
			x: int64(math.Floor(p.Lon / cellSize)),
			y: int64(math.Floor(p.Lat / cellSize)),
		}
		acc, ok := cells[key]
		if !ok {
			acc = &cellAccumulator{}
			cells[key] = acc
			order = append(order, key)
		}
		acc.sumLon += p.Lon
		acc.sumLat += p.Lat
		acc.count++
		if len(acc.samples) < sampleSize {
			acc.samples = append(acc.samples, p.SiteID)
		}
	}

	for _, key := range order {
		acc := cells[key]
		result.Clusters = append(result.Clusters, models.Cluster{
			Lon:       acc.sumLon / float64(acc.count),
			Lat:       acc.sumLat / float64(acc.count),
			Count:     acc.count,
			SampleIDs: acc.samples,
		})
	}
	slices.SortStableFunc(result.Clusters, func(a, b models.Cluster) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.Lon != b.Lon {
			if a.Lon < b.Lon {
				return -1
			}
			return 1
		}
		switch {
		case a.Lat < b.Lat:
			return -1
		case a.Lat > b.Lat:
			return 1
		}
		return 0
	})

	result.BBox = &models.BoundingBox{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}
	return result
}
