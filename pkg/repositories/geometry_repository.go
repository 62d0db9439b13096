package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// StagedGeometry is one site geometry waiting in the staging table. SRID is
// the system the WKB coordinates are expressed in.
type StagedGeometry struct {
	SiteID int64
	WKB    []byte
	SRID   int
}

// GeometryRepository stages, transforms and queries site geometries.
type GeometryRepository interface {
	CreateStaging(ctx context.Context) error
	Stage(ctx context.Context, rows []StagedGeometry) (int64, error)
	// CommitStaged moves staged rows into site_geometries, transforming every
	// row whose SRID differs from targetSRID.
	CommitStaged(ctx context.Context, lineageID int64, startDT time.Time, targetSRID int) (int64, error)
	// FindIntersecting returns the sites whose stored geometry intersects the
	// given WKB geometry.
	FindIntersecting(ctx context.Context, wkb []byte, srid, targetSRID int) ([]int64, error)
	// ListProjectPoints returns the centroid of every non-empty geometry of a
	// project's sites, expressed in outSRID.
	ListProjectPoints(ctx context.Context, projectID int64, outSRID int) ([]models.SitePoint, error)
}

type geometryRepository struct{}

// NewGeometryRepository creates a new geometry repository.
func NewGeometryRepository() GeometryRepository {
	return &geometryRepository{}
}

var _ GeometryRepository = (*geometryRepository)(nil)

const geometryStagingTable = "tmp_site_geometries"

func (r *geometryRepository) CreateStaging(ctx context.Context) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		CREATE TEMP TABLE ` + geometryStagingTable + ` (
			site_id  bigint NOT NULL,
			geom_wkb bytea NOT NULL,
			srid     integer NOT NULL
		) ON COMMIT DROP`

	if _, err := scope.Querier().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create geometry staging table: %w", err)
	}
	return nil
}

func (r *geometryRepository) Stage(ctx context.Context, rows []StagedGeometry) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	n, err := scope.Querier().CopyFrom(ctx,
		pgx.Identifier{geometryStagingTable},
		[]string{"site_id", "geom_wkb", "srid"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return []any{rows[i].SiteID, rows[i].WKB, int32(rows[i].SRID)}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to stage geometries: %w", err)
	}
	return n, nil
}

func (r *geometryRepository) CommitStaged(ctx context.Context, lineageID int64, startDT time.Time, targetSRID int) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO site_geometries (site_id, geom, lineage_id, start_dt)
		SELECT site_id,
		       CASE WHEN srid = $3::int
		            THEN ST_SetSRID(ST_GeomFromWKB(geom_wkb), srid)
		            ELSE ST_Transform(ST_SetSRID(ST_GeomFromWKB(geom_wkb), srid), $3::int)
		       END,
		       $1, $2
		FROM ` + geometryStagingTable

	tag, err := scope.Querier().Exec(ctx, query, lineageID, startDT, targetSRID)
	if err != nil {
		return 0, fmt.Errorf("failed to commit staged geometries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *geometryRepository) FindIntersecting(ctx context.Context, wkb []byte, srid, targetSRID int) ([]int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		WITH boundary AS (
			SELECT CASE WHEN $2::int = $3::int
			            THEN ST_SetSRID(ST_GeomFromWKB($1), $2::int)
			            ELSE ST_Transform(ST_SetSRID(ST_GeomFromWKB($1), $2::int), $3::int)
			       END AS geom
		)
		SELECT DISTINCT g.site_id
		FROM site_geometries g, boundary b
		WHERE ST_Intersects(g.geom, b.geom)
		ORDER BY g.site_id`

	rows, err := scope.Querier().Query(ctx, query, wkb, srid, targetSRID)
	if err != nil {
		return nil, fmt.Errorf("failed to query intersecting sites: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan intersecting sites: %w", err)
	}
	return ids, nil
}

func (r *geometryRepository) ListProjectPoints(ctx context.Context, projectID int64, outSRID int) ([]models.SitePoint, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT c.site_id, ST_X(c.pt), ST_Y(c.pt)
		FROM (
			SELECT g.site_id, ST_Transform(ST_Centroid(g.geom), $2::int) AS pt
			FROM project_sites ps
			JOIN site_geometries g ON g.site_id = ps.site_id
			WHERE ps.project_id = $1
			  AND g.geom IS NOT NULL
			  AND NOT ST_IsEmpty(g.geom)
		) c
		ORDER BY c.site_id`

	rows, err := scope.Querier().Query(ctx, query, projectID, outSRID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project points: %w", err)
	}
	defer rows.Close()

	var points []models.SitePoint
	for rows.Next() {
		var p models.SitePoint
		if err := rows.Scan(&p.SiteID, &p.Lon, &p.Lat); err != nil {
			return nil, fmt.Errorf("failed to scan project point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project points: %w", err)
	}
	return points, nil
}
