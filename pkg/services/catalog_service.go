package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
)

// CatalogService reads a project's attribute catalog.
type CatalogService interface {
	// ListAttributes returns the project's attributes in display order.
	ListAttributes(ctx context.Context, projectID int64) ([]*models.AttributeDefinition, error)
	// GetCatalog returns one page of sites with every project attribute resolved.
	GetCatalog(ctx context.Context, projectID int64, offset, limit int) (*models.CatalogPage, error)
	// GetSiteAttributes resolves the project's attributes for a single site.
	GetSiteAttributes(ctx context.Context, projectID, siteID int64) (*models.SiteAttributes, error)
}

// CatalogConfig bounds catalog paging.
type CatalogConfig struct {
	DefaultLimit int
	MaxLimit     int
}

type catalogService struct {
	projectRepo   repositories.ProjectRepository
	attributeRepo repositories.AttributeRepository
	resolver      AttributeResolver
	scope         ScopeFunc
	cfg           CatalogConfig
	logger        *zap.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	projectRepo repositories.ProjectRepository,
	attributeRepo repositories.AttributeRepository,
	resolver AttributeResolver,
	scope ScopeFunc,
	cfg CatalogConfig,
	logger *zap.Logger,
) CatalogService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &catalogService{
		projectRepo:   projectRepo,
		attributeRepo: attributeRepo,
		resolver:      resolver,
		scope:         scope,
		cfg:           cfg,
		logger:        logger.Named("catalog"),
	}
}

var _ CatalogService = (*catalogService)(nil)

// pageWindow clamps a requested window to the configured bounds.
func (s *catalogService) pageWindow(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return offset, limit
}

// projectAttributes loads the project and its attributes on one pooled
// connection, released before values are resolved.
func (s *catalogService) projectAttributes(ctx context.Context, projectID int64, page func(ctx context.Context) error) ([]*models.AttributeDefinition, error) {
	scoped, cleanup, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if _, err := s.projectRepo.Get(scoped, projectID); err != nil {
		return nil, err
	}
	defs, err := s.attributeRepo.ListByProject(scoped, projectID)
	if err != nil {
		return nil, err
	}
	if page != nil {
		if err := page(scoped); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

func (s *catalogService) ListAttributes(ctx context.Context, projectID int64) ([]*models.AttributeDefinition, error) {
	return s.projectAttributes(ctx, projectID, nil)
}

func (s *catalogService) GetCatalog(ctx context.Context, projectID int64, offset, limit int) (*models.CatalogPage, error) {
	offset, limit = s.pageWindow(offset, limit)

	var (
		total   int64
		siteIDs []int64
	)
	defs, err := s.projectAttributes(ctx, projectID, func(ctx context.Context) error {
		var err error
		if total, err = s.projectRepo.CountSites(ctx, projectID); err != nil {
			return err
		}
		siteIDs, err = s.projectRepo.ListSiteIDs(ctx, projectID, offset, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &models.CatalogPage{
		ProjectID:  projectID,
		Attributes: defs,
		Sites:      make([]models.SiteAttributes, 0, len(siteIDs)),
		Total:      total,
		Offset:     offset,
		Limit:      limit,
	}
	if len(siteIDs) == 0 {
		return page, nil
	}

	values, err := s.resolver.Resolve(ctx, defs, siteIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attributes: %w", err)
	}
	for _, id := range siteIDs {
		page.Sites = append(page.Sites, siteAttributes(id, defs, values[id]))
	}

	s.logger.Debug("Resolved catalog page",
		zap.Int64("project_id", projectID),
		zap.Int("sites", len(siteIDs)),
		zap.Int("attributes", len(defs)))
	return page, nil
}

func (s *catalogService) GetSiteAttributes(ctx context.Context, projectID, siteID int64) (*models.SiteAttributes, error) {
	defs, err := s.projectAttributes(ctx, projectID, func(ctx context.Context) error {
		linked, err := s.projectRepo.HasSite(ctx, projectID, siteID)
		if err != nil {
			return err
		}
		if !linked {
			return fmt.Errorf("site %d in project %d: %w", siteID, projectID, apperrors.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	values, err := s.resolver.Resolve(ctx, defs, []int64{siteID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attributes: %w", err)
	}
	site := siteAttributes(siteID, defs, values[siteID])
	return &site, nil
}

// siteAttributes renders one value per attribute; attributes without data
// are present with an empty string.
func siteAttributes(siteID int64, defs []*models.AttributeDefinition, resolved map[string]string) models.SiteAttributes {
	values := make(map[string]string, len(defs))
	for _, def := range defs {
		values[def.Name] = resolved[def.Name]
	}
	return models.SiteAttributes{SiteID: siteID, Values: values}
}
