package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// LineageRepository records ingestion run provenance.
type LineageRepository interface {
	Create(ctx context.Context, lineage *models.Lineage) error
}

type lineageRepository struct{}

// NewLineageRepository creates a new lineage repository.
func NewLineageRepository() LineageRepository {
	return &lineageRepository{}
}

var _ LineageRepository = (*lineageRepository)(nil)

func (r *lineageRepository) Create(ctx context.Context, lineage *models.Lineage) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if lineage.CreatedAt.IsZero() {
		lineage.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO source_lineage (system, app, process, owner, label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := scope.Querier().QueryRow(ctx, query,
		lineage.System,
		lineage.App,
		lineage.Process,
		lineage.Owner,
		lineage.Label,
		lineage.CreatedAt,
	).Scan(&lineage.ID)
	if err != nil {
		return fmt.Errorf("failed to create lineage record: %w", err)
	}
	return nil
}
