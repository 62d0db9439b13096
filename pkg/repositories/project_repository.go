package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id int64) (*models.Project, error)
	CountSites(ctx context.Context, projectID int64) (int64, error)
	HasSite(ctx context.Context, projectID, siteID int64) (bool, error)
	ListSiteIDs(ctx context.Context, projectID int64, offset, limit int) ([]int64, error)
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

var _ ProjectRepository = (*projectRepository)(nil)

// Create inserts a project and fills in its generated ID.
func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO projects (name, lineage_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := scope.Querier().QueryRow(ctx, query, project.Name, project.LineageID, project.CreatedAt).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID.
func (r *projectRepository) Get(ctx context.Context, id int64) (*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, name, lineage_id, created_at
		FROM projects
		WHERE id = $1`

	var project models.Project
	err := scope.Querier().QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.LineageID,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// CountSites returns how many sites are linked to the project.
func (r *projectRepository) CountSites(ctx context.Context, projectID int64) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	var count int64
	err := scope.Querier().QueryRow(ctx,
		`SELECT count(*) FROM project_sites WHERE project_id = $1`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count project sites: %w", err)
	}
	return count, nil
}

// HasSite reports whether the site is linked to the project.
func (r *projectRepository) HasSite(ctx context.Context, projectID, siteID int64) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	var exists bool
	err := scope.Querier().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_sites WHERE project_id = $1 AND site_id = $2)`,
		projectID, siteID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project site: %w", err)
	}
	return exists, nil
}

// ListSiteIDs returns one page of the project's site IDs in ascending order.
func (r *projectRepository) ListSiteIDs(ctx context.Context, projectID int64, offset, limit int) ([]int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT site_id
		FROM project_sites
		WHERE project_id = $1
		ORDER BY site_id
		OFFSET $2 LIMIT $3`

	rows, err := scope.Querier().Query(ctx, query, projectID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list project sites: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan project sites: %w", err)
	}
	return ids, nil
}
