package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/eav"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
)

// SiteValues maps site id -> attribute name -> joined display value.
type SiteValues map[int64]map[string]string

// AttributeResolver reassembles per-site attribute values. It issues exactly
// one query per attribute regardless of how many sites are requested.
type AttributeResolver interface {
	// Resolve fetches defs for siteIDs. An empty siteIDs means every site.
	// An attribute whose fetch fails contributes no values; Resolve itself
	// only fails when ctx is done.
	Resolve(ctx context.Context, defs []*models.AttributeDefinition, siteIDs []int64) (SiteValues, error)
}

type attributeResolver struct {
	repo           repositories.AttributeValueRepository
	scope          ScopeFunc
	maxConcurrency int
	logger         *zap.Logger
}

// NewAttributeResolver creates a resolver that fetches up to maxConcurrency
// attributes at once, each on its own pooled connection.
func NewAttributeResolver(repo repositories.AttributeValueRepository, scope ScopeFunc, maxConcurrency int, logger *zap.Logger) AttributeResolver {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &attributeResolver{
		repo:           repo,
		scope:          scope,
		maxConcurrency: maxConcurrency,
		logger:         logger.Named("attribute-resolver"),
	}
}

var _ AttributeResolver = (*attributeResolver)(nil)

func (r *attributeResolver) Resolve(ctx context.Context, defs []*models.AttributeDefinition, siteIDs []int64) (SiteValues, error) {
	fetched := make([][]repositories.SiteValue, len(defs))

	// A caller already holding a connection (e.g. inside a transaction)
	// cannot share it across goroutines.
	if _, ok := database.GetScope(ctx); ok {
		for i, def := range defs {
			fetched[i] = r.fetchOrLog(ctx, def, siteIDs)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.maxConcurrency)
		for i, def := range defs {
			g.Go(func() error {
				scoped, cleanup, err := r.scope(gctx)
				if err != nil {
					r.logger.Warn("Failed to acquire connection for attribute",
						zap.String("attribute", def.Name), zap.Error(err))
					return nil
				}
				defer cleanup()
				fetched[i] = r.fetchOrLog(scoped, def, siteIDs)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(SiteValues)
	for i, def := range defs {
		grouped := groupBySite(fetched[i])
		for siteID, values := range grouped {
			site, ok := out[siteID]
			if !ok {
				site = make(map[string]string, len(defs))
				out[siteID] = site
			}
			site[def.Name] = eav.Join(values)
		}
	}
	return out, nil
}

func (r *attributeResolver) fetchOrLog(ctx context.Context, def *models.AttributeDefinition, siteIDs []int64) []repositories.SiteValue {
	rows, err := r.fetch(ctx, def, siteIDs)
	if err != nil {
		r.logger.Warn("Failed to resolve attribute",
			zap.String("attribute", def.Name),
			zap.String("value_type", string(def.ValueType)),
			zap.Error(err))
		return nil
	}
	return rows
}

func (r *attributeResolver) fetch(ctx context.Context, def *models.AttributeDefinition, siteIDs []int64) ([]repositories.SiteValue, error) {
	switch def.ValueType {
	case models.ValueTypeInt, models.ValueTypeTxt, models.ValueTypeNum, models.ValueTypeTS:
		return r.repo.FetchGeneric(ctx, def, siteIDs)
	case models.ValueTypeTbl:
		table, ok := repositories.DomainTable(def.Name)
		if !ok {
			return nil, nil
		}
		return r.repo.FetchDomainTable(ctx, table, siteIDs)
	case models.ValueTypeRef, models.ValueTypeRefs:
		vocab, ok := repositories.VocabularyFor(def.Name)
		if !ok {
			return nil, nil
		}
		return r.repo.FetchVocabulary(ctx, vocab, siteIDs)
	default:
		return nil, fmt.Errorf("unknown value type %q", def.ValueType)
	}
}

// groupBySite keeps the repository's per-site ordering.
func groupBySite(rows []repositories.SiteValue) map[int64][]string {
	out := make(map[int64][]string)
	for _, row := range rows {
		out[row.SiteID] = append(out[row.SiteID], row.Text)
	}
	return out
}
