package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// AttributeRepository defines data access for attribute definitions and their
// project catalogs.
type AttributeRepository interface {
	// GetByName looks a definition up case-insensitively within scope.
	// Returns apperrors.ErrNotFound when absent.
	GetByName(ctx context.Context, scope, name string) (*models.AttributeDefinition, error)
	// Create inserts a definition. Returns apperrors.ErrConflict when another
	// definition with the same scope and case-folded name already exists; the
	// surrounding transaction stays usable in that case.
	Create(ctx context.Context, def *models.AttributeDefinition) error
	ListByProject(ctx context.Context, projectID int64) ([]*models.AttributeDefinition, error)
	// LinkToProject links attributes in the given display order, skipping
	// links that already exist.
	LinkToProject(ctx context.Context, projectID int64, attributeIDs []int64) error
}

type attributeRepository struct{}

// NewAttributeRepository creates a new attribute repository.
func NewAttributeRepository() AttributeRepository {
	return &attributeRepository{}
}

var _ AttributeRepository = (*attributeRepository)(nil)

const attributeColumns = `id, name, display_text, description, value_type, scope`

func scanAttribute(row pgx.Row) (*models.AttributeDefinition, error) {
	var def models.AttributeDefinition
	var valueType string
	if err := row.Scan(&def.ID, &def.Name, &def.DisplayText, &def.Description, &valueType, &def.Scope); err != nil {
		return nil, err
	}
	def.ValueType = models.ValueType(valueType)
	return &def, nil
}

func (r *attributeRepository) GetByName(ctx context.Context, scopeName, name string) (*models.AttributeDefinition, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + attributeColumns + `
		FROM attribute_defs
		WHERE scope = $1 AND lower(name) = lower($2)`

	def, err := scanAttribute(scope.Querier().QueryRow(ctx, query, scopeName, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attribute %q: %w", name, err)
	}
	return def, nil
}

func (r *attributeRepository) Create(ctx context.Context, def *models.AttributeDefinition) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	// Nested Begin on a transaction is a savepoint, so a unique violation
	// only unwinds this insert.
	tx, err := scope.Querier().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin attribute insert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	query := `
		INSERT INTO attribute_defs (name, display_text, description, value_type, scope)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err = tx.QueryRow(ctx, query,
		def.Name,
		def.DisplayText,
		def.Description,
		string(def.ValueType),
		def.Scope,
	).Scan(&def.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create attribute %q: %w", def.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release attribute savepoint: %w", err)
	}
	return nil
}

func (r *attributeRepository) ListByProject(ctx context.Context, projectID int64) ([]*models.AttributeDefinition, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT a.id, a.name, a.display_text, a.description, a.value_type, a.scope
		FROM project_attributes pa
		JOIN attribute_defs a ON a.id = pa.attribute_id
		WHERE pa.project_id = $1
		ORDER BY pa.display_order, a.id`

	rows, err := scope.Querier().Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project attributes: %w", err)
	}
	defer rows.Close()

	var defs []*models.AttributeDefinition
	for rows.Next() {
		def, err := scanAttribute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project attribute: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project attributes: %w", err)
	}
	return defs, nil
}

func (r *attributeRepository) LinkToProject(ctx context.Context, projectID int64, attributeIDs []int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}
	if len(attributeIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO project_attributes (project_id, attribute_id, display_order)
		SELECT $1, a.id, a.ord
		FROM unnest($2::bigint[]) WITH ORDINALITY AS a(id, ord)
		ON CONFLICT (project_id, attribute_id) DO NOTHING`

	if _, err := scope.Querier().Exec(ctx, query, projectID, attributeIDs); err != nil {
		return fmt.Errorf("failed to link project attributes: %w", err)
	}
	return nil
}
