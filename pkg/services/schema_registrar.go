package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/eav"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
)

// SchemaRegistrar maps field names to attribute definitions for a single
// import run. Its cache lives exactly as long as the registrar; create a new
// one per run.
type SchemaRegistrar struct {
	repo   repositories.AttributeRepository
	scope  string
	cache  map[string]*models.AttributeDefinition
	order  []*models.AttributeDefinition
	seen   map[int64]struct{}
	logger *zap.Logger
}

// NewSchemaRegistrar creates a registrar for attributes of the given scope.
func NewSchemaRegistrar(repo repositories.AttributeRepository, scope string, logger *zap.Logger) *SchemaRegistrar {
	if scope == "" {
		scope = models.DefaultAttributeScope
	}
	return &SchemaRegistrar{
		repo:   repo,
		scope:  scope,
		cache:  make(map[string]*models.AttributeDefinition),
		seen:   make(map[int64]struct{}),
		logger: logger,
	}
}

// Resolve returns the definition for name, creating it with the inferred type
// when no definition exists. An existing definition keeps its original type.
// Losing a creation race to a concurrent run is not an error: the winner's
// definition is returned.
func (r *SchemaRegistrar) Resolve(ctx context.Context, name string, inferred models.ValueType) (*models.AttributeDefinition, error) {
	name = eav.NormalizeName(name)
	key := eav.FoldName(name)
	if def, ok := r.cache[key]; ok {
		return def, nil
	}

	def, err := r.repo.GetByName(ctx, r.scope, name)
	switch {
	case err == nil:
		if def.ValueType != inferred {
			r.logger.Debug("Keeping existing attribute type",
				zap.String("attribute", def.Name),
				zap.String("value_type", string(def.ValueType)),
				zap.String("inferred", string(inferred)))
		}
	case errors.Is(err, apperrors.ErrNotFound):
		def, err = r.create(ctx, name, inferred)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to look up attribute %q: %w", name, err)
	}

	r.cache[key] = def
	if _, dup := r.seen[def.ID]; !dup {
		r.seen[def.ID] = struct{}{}
		r.order = append(r.order, def)
	}
	return def, nil
}

func (r *SchemaRegistrar) create(ctx context.Context, name string, valueType models.ValueType) (*models.AttributeDefinition, error) {
	def := &models.AttributeDefinition{
		Name:        name,
		DisplayText: eav.DisplayText(name),
		ValueType:   valueType,
		Scope:       r.scope,
	}

	err := r.repo.Create(ctx, def)
	if err == nil {
		r.logger.Info("Registered attribute",
			zap.String("attribute", def.Name),
			zap.Int64("attribute_id", def.ID),
			zap.String("value_type", string(def.ValueType)))
		return def, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return nil, err
	}

	winner, err := r.repo.GetByName(ctx, r.scope, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribute %q after concurrent creation: %w", name, err)
	}
	r.logger.Info("Adopted concurrently registered attribute",
		zap.String("attribute", winner.Name),
		zap.Int64("attribute_id", winner.ID))
	return winner, nil
}

// Registered returns each distinct definition resolved so far, in the order
// they were first resolved.
func (r *SchemaRegistrar) Registered() []*models.AttributeDefinition {
	out := make([]*models.AttributeDefinition, len(r.order))
	copy(out, r.order)
	return out
}
