package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
)

// ============================================================================
// In-memory store shared by the repository mocks
// ============================================================================

var errInjected = errors.New("injected failure")

type memState struct {
	nextID       int64
	lineages     []*models.Lineage
	projects     map[int64]*models.Project
	sites        []int64
	projectSites map[int64][]int64
	attrs        []*models.AttributeDefinition
	geometries   []repositories.StagedGeometry
	values       []repositories.StagedValue
	projectAttrs map[int64][]int64

	stagedGeometries []repositories.StagedGeometry
	stagedValues     []repositories.StagedValue
}

func (s memState) clone() memState {
	c := s
	c.lineages = slices.Clone(s.lineages)
	c.projects = maps.Clone(s.projects)
	c.sites = slices.Clone(s.sites)
	c.projectSites = maps.Clone(s.projectSites)
	c.attrs = slices.Clone(s.attrs)
	c.geometries = slices.Clone(s.geometries)
	c.values = slices.Clone(s.values)
	c.projectAttrs = maps.Clone(s.projectAttrs)
	c.stagedGeometries = nil
	c.stagedValues = nil
	return c
}

type memStore struct {
	mu sync.Mutex
	memState

	// failOn names a repository method that returns errInjected.
	failOn string

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{memState: memState{
		nextID:       100,
		projects:     make(map[int64]*models.Project),
		projectSites: make(map[int64][]int64),
		projectAttrs: make(map[int64][]int64),
	}}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) fail(method string) error {
	if s.failOn == method {
		return fmt.Errorf("%s: %w", method, errInjected)
	}
	return nil
}

// WithinTx restores the pre-call state when fn fails.
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snapshot := s.memState.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.memState = snapshot
		s.rollbacks++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.stagedGeometries = nil
	s.stagedValues = nil
	s.commits++
	s.mu.Unlock()
	return nil
}

func (s *memStore) addAttribute(name string, t models.ValueType) *models.AttributeDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	def := &models.AttributeDefinition{ID: s.id(), Name: name, DisplayText: name, ValueType: t, Scope: models.DefaultAttributeScope}
	s.attrs = append(s.attrs, def)
	return def
}

// ============================================================================
// Repository views
// ============================================================================

type memLineageRepo struct{ s *memStore }

func (r memLineageRepo) Create(ctx context.Context, l *models.Lineage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lineage.Create"); err != nil {
		return err
	}
	l.ID = r.s.id()
	r.s.lineages = append(r.s.lineages, l)
	return nil
}

type memProjectRepo struct{ s *memStore }

func (r memProjectRepo) Create(ctx context.Context, p *models.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("project.Create"); err != nil {
		return err
	}
	p.ID = r.s.id()
	r.s.projects[p.ID] = p
	return nil
}

func (r memProjectRepo) Get(ctx context.Context, id int64) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (r memProjectRepo) CountSites(ctx context.Context, projectID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.projectSites[projectID])), nil
}

func (r memProjectRepo) HasSite(ctx context.Context, projectID, siteID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Contains(r.s.projectSites[projectID], siteID), nil
}

func (r memProjectRepo) ListSiteIDs(ctx context.Context, projectID int64, offset, limit int) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.s.projectSites[projectID]
	if offset >= len(ids) {
		return []int64{}, nil
	}
	return slices.Clone(ids[offset:min(offset+limit, len(ids))]), nil
}

type memSiteRepo struct{ s *memStore }

func (r memSiteRepo) ReserveIDs(ctx context.Context, n int) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("site.ReserveIDs"); err != nil {
		return nil, err
	}
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = r.s.id()
	}
	return ids, nil
}

func (r memSiteRepo) Insert(ctx context.Context, ids []int64, lineageID int64, enteredAt time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("site.Insert"); err != nil {
		return 0, err
	}
	r.s.sites = append(r.s.sites, ids...)
	return int64(len(ids)), nil
}

func (r memSiteRepo) LinkToProject(ctx context.Context, projectID int64, ids []int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.projectSites[projectID] = append(slices.Clone(r.s.projectSites[projectID]), ids...)
	return int64(len(ids)), nil
}

type memGeometryRepo struct {
	s         *memStore
	stageRuns int
	// intersecting is returned by FindIntersecting.
	intersecting []int64
	lastSRID     int
	points       []models.SitePoint
}

func (r *memGeometryRepo) CreateStaging(ctx context.Context) error { return nil }

func (r *memGeometryRepo) Stage(ctx context.Context, rows []repositories.StagedGeometry) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.stageRuns++
	r.s.stagedGeometries = append(r.s.stagedGeometries, rows...)
	return int64(len(rows)), nil
}

func (r *memGeometryRepo) CommitStaged(ctx context.Context, lineageID int64, startDT time.Time, targetSRID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("geometry.CommitStaged"); err != nil {
		return 0, err
	}
	n := len(r.s.stagedGeometries)
	r.s.geometries = append(r.s.geometries, r.s.stagedGeometries...)
	r.s.stagedGeometries = nil
	return int64(n), nil
}

func (r *memGeometryRepo) FindIntersecting(ctx context.Context, wkb []byte, srid, targetSRID int) ([]int64, error) {
	r.lastSRID = srid
	return r.intersecting, nil
}

func (r *memGeometryRepo) ListProjectPoints(ctx context.Context, projectID int64, outSRID int) ([]models.SitePoint, error) {
	return r.points, nil
}

type memAttributeRepo struct {
	s *memStore
	// raceOnCreate simulates another run winning the insert.
	raceOnCreate bool
	lookups      int
}

func (r *memAttributeRepo) GetByName(ctx context.Context, scope, name string) (*models.AttributeDefinition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.lookups++
	for _, def := range r.s.attrs {
		if def.Scope == scope && strings.EqualFold(def.Name, name) {
			return def, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memAttributeRepo) Create(ctx context.Context, def *models.AttributeDefinition) error {
	if r.raceOnCreate {
		r.raceOnCreate = false
		r.s.addAttribute(def.Name, models.ValueTypeTxt)
		return apperrors.ErrConflict
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attribute.Create"); err != nil {
		return err
	}
	def.ID = r.s.id()
	r.s.attrs = append(r.s.attrs, def)
	return nil
}

func (r *memAttributeRepo) ListByProject(ctx context.Context, projectID int64) ([]*models.AttributeDefinition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AttributeDefinition
	for _, id := range r.s.projectAttrs[projectID] {
		for _, def := range r.s.attrs {
			if def.ID == id {
				out = append(out, def)
			}
		}
	}
	return out, nil
}

func (r *memAttributeRepo) LinkToProject(ctx context.Context, projectID int64, attributeIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attribute.LinkToProject"); err != nil {
		return err
	}
	linked := slices.Clone(r.s.projectAttrs[projectID])
	for _, id := range attributeIDs {
		if !slices.Contains(linked, id) {
			linked = append(linked, id)
		}
	}
	r.s.projectAttrs[projectID] = linked
	return nil
}

type memValueRepo struct {
	s         *memStore
	stageRuns int
}

func (r *memValueRepo) CreateStaging(ctx context.Context) error { return nil }

func (r *memValueRepo) Stage(ctx context.Context, rows []repositories.StagedValue) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("value.Stage"); err != nil {
		return 0, err
	}
	r.stageRuns++
	r.s.stagedValues = append(r.s.stagedValues, rows...)
	return int64(len(rows)), nil
}

func (r *memValueRepo) CommitStaged(ctx context.Context, lineageID int64, startDT time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := len(r.s.stagedValues)
	r.s.values = append(r.s.values, r.s.stagedValues...)
	r.s.stagedValues = nil
	return int64(n), nil
}

func (r *memValueRepo) FetchGeneric(ctx context.Context, def *models.AttributeDefinition, siteIDs []int64) ([]repositories.SiteValue, error) {
	return nil, nil
}

func (r *memValueRepo) FetchDomainTable(ctx context.Context, table string, siteIDs []int64) ([]repositories.SiteValue, error) {
	return nil, nil
}

func (r *memValueRepo) FetchVocabulary(ctx context.Context, vocab repositories.Vocabulary, siteIDs []int64) ([]repositories.SiteValue, error) {
	return nil, nil
}

// ============================================================================
// Read-path mocks
// ============================================================================

// countingValueRepo serves canned rows and counts issued queries.
type countingValueRepo struct {
	memValueRepo
	rows    map[string][]repositories.SiteValue // keyed by attribute name or table
	failing map[string]bool
	queries atomic.Int64
}

func (r *countingValueRepo) filter(key string, siteIDs []int64) ([]repositories.SiteValue, error) {
	r.queries.Add(1)
	if r.failing[key] {
		return nil, errInjected
	}
	var out []repositories.SiteValue
	for _, row := range r.rows[key] {
		if len(siteIDs) == 0 || slices.Contains(siteIDs, row.SiteID) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *countingValueRepo) FetchGeneric(ctx context.Context, def *models.AttributeDefinition, siteIDs []int64) ([]repositories.SiteValue, error) {
	return r.filter(def.Name, siteIDs)
}

func (r *countingValueRepo) FetchDomainTable(ctx context.Context, table string, siteIDs []int64) ([]repositories.SiteValue, error) {
	return r.filter(table, siteIDs)
}

func (r *countingValueRepo) FetchVocabulary(ctx context.Context, vocab repositories.Vocabulary, siteIDs []int64) ([]repositories.SiteValue, error) {
	return r.filter(vocab.LinkTable, siteIDs)
}

// recordingReporter collects progress events.
type recordingReporter struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (r *recordingReporter) Report(ctx context.Context, e models.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func noopScope(ctx context.Context) (context.Context, func(), error) {
	return ctx, func() {}, nil
}

var (
	_ repositories.LineageRepository        = memLineageRepo{}
	_ repositories.ProjectRepository        = memProjectRepo{}
	_ repositories.SiteRepository           = memSiteRepo{}
	_ repositories.GeometryRepository       = (*memGeometryRepo)(nil)
	_ repositories.AttributeRepository      = (*memAttributeRepo)(nil)
	_ repositories.AttributeValueRepository = (*memValueRepo)(nil)
	_ repositories.AttributeValueRepository = (*countingValueRepo)(nil)
)
