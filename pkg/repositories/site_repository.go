package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
)

// SiteRepository creates sites in bulk.
type SiteRepository interface {
	// ReserveIDs draws n identifiers from the site sequence in one round-trip.
	ReserveIDs(ctx context.Context, n int) ([]int64, error)
	// Insert streams the sites through COPY.
	Insert(ctx context.Context, ids []int64, lineageID int64, enteredAt time.Time) (int64, error)
	// LinkToProject streams project_sites rows through COPY.
	LinkToProject(ctx context.Context, projectID int64, ids []int64) (int64, error)
}

type siteRepository struct{}

// NewSiteRepository creates a new site repository.
func NewSiteRepository() SiteRepository {
	return &siteRepository{}
}

var _ SiteRepository = (*siteRepository)(nil)

func (r *siteRepository) ReserveIDs(ctx context.Context, n int) ([]int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}
	if n <= 0 {
		return nil, nil
	}

	rows, err := scope.Querier().Query(ctx,
		`SELECT nextval('sites_id_seq') FROM generate_series(1, $1)`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve site ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan reserved site ids: %w", err)
	}
	if len(ids) != n {
		return nil, fmt.Errorf("reserved %d site ids, wanted %d", len(ids), n)
	}
	return ids, nil
}

func (r *siteRepository) Insert(ctx context.Context, ids []int64, lineageID int64, enteredAt time.Time) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	n, err := scope.Querier().CopyFrom(ctx,
		pgx.Identifier{"sites"},
		[]string{"id", "lineage_id", "entered_at"},
		pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
			return []any{ids[i], lineageID, enteredAt}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy sites: %w", err)
	}
	return n, nil
}

func (r *siteRepository) LinkToProject(ctx context.Context, projectID int64, ids []int64) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	n, err := scope.Querier().CopyFrom(ctx,
		pgx.Identifier{"project_sites"},
		[]string{"project_id", "site_id"},
		pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
			return []any{projectID, ids[i]}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy project sites: %w", err)
	}
	return n, nil
}
