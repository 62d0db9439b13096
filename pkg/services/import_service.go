package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/encoding/wkb"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/audit"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/eav"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/features"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/sqlguard"
)

// ImportRequest describes one archive to ingest.
type ImportRequest struct {
	// ArchivePath is a zipped shapefile, a zip holding GeoJSON, or a bare GeoJSON file.
	ArchivePath string
	// Name labels the run. Defaults to the archive's file name.
	Name string
	// OriginalFilename is the client-side file name, used for the default label.
	OriginalFilename string
}

// ImportService materializes archives as sites, geometries and attribute values.
type ImportService interface {
	// Import runs the whole pipeline in a single transaction. Malformed or
	// empty archives fail before anything is written; any later failure rolls
	// back every row of the run and is returned as an *ImportError.
	Import(ctx context.Context, req ImportRequest) (*models.ImportResult, error)
}

// ImportConfig tunes the pipeline.
type ImportConfig struct {
	StagingBatchSize int
	CRS              CRSPolicy
	AttributeScope   string
	LineageSystem    string
	LineageApp       string
	// Timeout bounds a run independently of the caller. A client that
	// disconnects does not cancel the run; it still commits or rolls back.
	Timeout time.Duration
}

// ImportError reports a failed run with the stage it failed in.
// Processed counts rows handled within that stage before the failure.
type ImportError struct {
	RunID     uuid.UUID
	Stage     models.ImportStage
	Processed int64
	Err       error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s failed during %s after %d rows: %v", e.RunID, e.Stage, e.Processed, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

type importService struct {
	tx            database.Transactor
	lineageRepo   repositories.LineageRepository
	projectRepo   repositories.ProjectRepository
	siteRepo      repositories.SiteRepository
	geometryRepo  repositories.GeometryRepository
	attributeRepo repositories.AttributeRepository
	valueRepo     repositories.AttributeValueRepository
	reporter      ProgressReporter
	cfg           ImportConfig
	auditor       *audit.SecurityAuditor
	logger        *zap.Logger
}

// NewImportService creates an import service. A nil reporter disables
// progress events.
func NewImportService(
	tx database.Transactor,
	lineageRepo repositories.LineageRepository,
	projectRepo repositories.ProjectRepository,
	siteRepo repositories.SiteRepository,
	geometryRepo repositories.GeometryRepository,
	attributeRepo repositories.AttributeRepository,
	valueRepo repositories.AttributeValueRepository,
	reporter ProgressReporter,
	cfg ImportConfig,
	logger *zap.Logger,
) ImportService {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if cfg.StagingBatchSize <= 0 {
		cfg.StagingBatchSize = 5000
	}
	return &importService{
		tx:            tx,
		lineageRepo:   lineageRepo,
		projectRepo:   projectRepo,
		siteRepo:      siteRepo,
		geometryRepo:  geometryRepo,
		attributeRepo: attributeRepo,
		valueRepo:     valueRepo,
		reporter:      reporter,
		cfg:           cfg,
		auditor:       audit.NewSecurityAuditor(logger),
		logger:        logger.Named("import"),
	}
}

var _ ImportService = (*importService)(nil)

// scannedFeature is a feature that survived the pre-scan, already encoded
// for staging.
type scannedFeature struct {
	props map[string]any
	wkb   []byte
	srid  int
}

// scannedField is one attribute candidate. names holds every spelling of the
// field seen in the input; the first is used for registration.
type scannedField struct {
	names    []string
	inferred models.ValueType
}

type preScanResult struct {
	features []scannedFeature
	fields   []scannedField
	skipped  int
}

// importRun tracks where a run is for error reporting.
type importRun struct {
	id        uuid.UUID
	stage     models.ImportStage
	processed int64
}

func (r *importRun) enter(stage models.ImportStage) {
	r.stage = stage
	r.processed = 0
}

func (s *importService) Import(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	ctx = context.WithoutCancel(ctx)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	run := &importRun{id: uuid.New(), stage: models.StagePreScan}
	label := runLabel(req)
	logger := s.logger.With(zap.String("run_id", run.id.String()), zap.String("label", label))

	coll, err := features.ReadArchive(req.ArchivePath)
	if err != nil {
		return nil, err
	}

	scan := s.preScan(ctx, run.id, coll, logger)
	if len(scan.features) == 0 {
		return nil, fmt.Errorf("%w: none of %d features has a usable geometry", apperrors.ErrEmptyInput, len(coll.Features))
	}
	s.report(ctx, run, int64(len(scan.features)), int64(len(coll.Features)), true)

	logger.Info("Starting import",
		zap.Int("features", len(scan.features)),
		zap.Int("skipped", scan.skipped),
		zap.Int("fields", len(scan.fields)))

	result := &models.ImportResult{
		RunID:           run.id,
		ProjectName:     label,
		EntitiesSkipped: scan.skipped,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.load(ctx, run, label, started, scan, result); err != nil {
			return err
		}
		run.enter(models.StageCommit)
		return nil
	})
	if err != nil {
		logger.Error("Import rolled back",
			zap.String("stage", string(run.stage)),
			zap.Int64("processed", run.processed),
			zap.Error(err))
		return nil, &ImportError{RunID: run.id, Stage: run.stage, Processed: run.processed, Err: err}
	}
	s.report(ctx, run, int64(result.EntitiesCreated), int64(result.EntitiesCreated), true)

	result.ElapsedSeconds = time.Since(started).Seconds()
	logger.Info("Import committed",
		zap.Int64("project_id", result.ProjectID),
		zap.Int("sites", result.EntitiesCreated),
		zap.Int64("values", result.ValuesWritten),
		zap.Float64("elapsed_seconds", result.ElapsedSeconds))
	return result, nil
}

func runLabel(req ImportRequest) string {
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	if req.OriginalFilename != "" {
		return filepath.Base(req.OriginalFilename)
	}
	return filepath.Base(req.ArchivePath)
}

// preScan drops features without a usable geometry and infers one type per
// field from the first non-empty sample. Fields never holding a value are
// left out.
func (s *importService) preScan(ctx context.Context, runID uuid.UUID, coll *features.Collection, logger *zap.Logger) preScanResult {
	var out preScanResult

	for _, f := range coll.Features {
		if f.Geometry == nil {
			out.skipped++
			continue
		}
		data, err := wkb.Marshal(f.Geometry)
		if err != nil {
			logger.Warn("Skipping feature with unencodable geometry", zap.String("layer", f.Layer), zap.Error(err))
			out.skipped++
			continue
		}
		out.features = append(out.features, scannedFeature{
			props: f.Properties,
			wkb:   data,
			srid:  s.cfg.CRS.SRIDFor(f.CRS, f.Geometry),
		})
	}

	byKey := make(map[string]int)
	var groups []scannedField
	for _, raw := range coll.Fields {
		name := eav.NormalizeName(raw)
		if name == "" {
			continue
		}
		if hit := sqlguard.CheckFieldName(name); hit != nil {
			prov, _ := models.GetProvenance(ctx)
			s.auditor.LogSuspiciousFieldName(runID, prov.Owner, audit.FieldNameDetails{
				FieldName:   name,
				Fingerprint: hit.Fingerprint,
				Source:      string(prov.Source),
			})
			logger.Warn("Skipping suspicious field name", zap.String("field", name))
			continue
		}
		key := eav.FoldName(name)
		if i, ok := byKey[key]; ok {
			groups[i].names = append(groups[i].names, raw)
			continue
		}
		byKey[key] = len(groups)
		groups = append(groups, scannedField{names: []string{raw}})
	}

	for _, g := range groups {
		inferred, ok := firstSampleType(out.features, g.names)
		if !ok {
			continue
		}
		g.inferred = inferred
		out.fields = append(out.fields, g)
	}
	return out
}

func firstSampleType(feats []scannedFeature, names []string) (models.ValueType, bool) {
	for _, f := range feats {
		for _, n := range names {
			if t, ok := eav.Infer(f.props[n]); ok {
				return t, true
			}
		}
	}
	return "", false
}

// load runs every stage that writes. It must be called inside a transaction.
func (s *importService) load(ctx context.Context, run *importRun, label string, started time.Time, scan preScanResult, result *models.ImportResult) error {
	// Lineage + project
	run.enter(models.StageLineage)
	prov, ok := models.GetProvenance(ctx)
	if !ok {
		prov = models.ProvenanceContext{Source: models.SourceHTTP}
	}
	owner := prov.Owner
	if owner == "" {
		owner = "system"
	}
	lineage := &models.Lineage{
		System:  s.cfg.LineageSystem,
		App:     s.cfg.LineageApp,
		Process: "import:" + prov.Source.String(),
		Owner:   owner,
		Label:   label,
	}
	if err := s.lineageRepo.Create(ctx, lineage); err != nil {
		return err
	}
	project := &models.Project{Name: label, LineageID: lineage.ID, CreatedAt: started}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return err
	}
	result.LineageID = lineage.ID
	result.ProjectID = project.ID
	s.report(ctx, run, 2, 2, true)

	// Schema registration, before any site exists
	run.enter(models.StageSchema)
	registrar := NewSchemaRegistrar(s.attributeRepo, s.cfg.AttributeScope, s.logger)
	defs := make([]*models.AttributeDefinition, len(scan.fields))
	for i, f := range scan.fields {
		def, err := registrar.Resolve(ctx, f.names[0], f.inferred)
		if err != nil {
			return err
		}
		defs[i] = def
		run.processed++
	}
	s.report(ctx, run, run.processed, int64(len(scan.fields)), true)

	// Identifier reservation
	run.enter(models.StageReserve)
	n := len(scan.features)
	ids, err := s.siteRepo.ReserveIDs(ctx, n)
	if err != nil {
		return err
	}
	run.processed = int64(len(ids))
	s.report(ctx, run, run.processed, int64(n), true)

	// Sites + project links
	run.enter(models.StageSites)
	created, err := s.siteRepo.Insert(ctx, ids, lineage.ID, started)
	if err != nil {
		return err
	}
	run.processed = created
	if _, err := s.siteRepo.LinkToProject(ctx, project.ID, ids); err != nil {
		return err
	}
	result.EntitiesCreated = int(created)
	s.report(ctx, run, created, int64(n), true)

	if err := s.loadGeometries(ctx, run, lineage.ID, started, scan.features, ids); err != nil {
		return err
	}

	written, skipped, err := s.loadValues(ctx, run, lineage.ID, started, scan, defs, ids)
	if err != nil {
		return err
	}
	result.ValuesWritten = written
	result.ValuesSkipped = skipped

	// Project attribute catalog, in registration order
	run.enter(models.StageLinkAttrs)
	registered := registrar.Registered()
	attrIDs := make([]int64, len(registered))
	names := make([]string, len(registered))
	for i, def := range registered {
		attrIDs[i] = def.ID
		names[i] = def.Name
	}
	if err := s.attributeRepo.LinkToProject(ctx, project.ID, attrIDs); err != nil {
		return err
	}
	run.processed = int64(len(attrIDs))
	result.AttributesUsed = len(attrIDs)
	result.AttributeNames = names
	s.report(ctx, run, run.processed, run.processed, true)

	return nil
}

func (s *importService) loadGeometries(ctx context.Context, run *importRun, lineageID int64, startDT time.Time, feats []scannedFeature, ids []int64) error {
	run.enter(models.StageGeometries)
	total := int64(len(feats))

	if err := s.geometryRepo.CreateStaging(ctx); err != nil {
		return err
	}

	batch := make([]repositories.StagedGeometry, 0, min(s.cfg.StagingBatchSize, len(feats)))
	for i, f := range feats {
		batch = append(batch, repositories.StagedGeometry{SiteID: ids[i], WKB: f.wkb, SRID: f.srid})
		if len(batch) < s.cfg.StagingBatchSize {
			continue
		}
		n, err := s.geometryRepo.Stage(ctx, batch)
		if err != nil {
			return err
		}
		run.processed += n
		s.report(ctx, run, run.processed, total, false)
		batch = batch[:0]
	}
	if len(batch) > 0 {
		n, err := s.geometryRepo.Stage(ctx, batch)
		if err != nil {
			return err
		}
		run.processed += n
	}

	committed, err := s.geometryRepo.CommitStaged(ctx, lineageID, startDT, s.cfg.CRS.ProjectedSRID)
	if err != nil {
		return err
	}
	if committed != total {
		return fmt.Errorf("committed %d geometries, staged %d", committed, total)
	}
	s.report(ctx, run, committed, total, true)
	return nil
}

// loadValues streams every (feature, field, non-empty value) triple through
// the staging table, flushing every StagingBatchSize rows. Values that do not
// parse under the attribute's type, and values of attributes stored outside
// the generic value table, are skipped.
func (s *importService) loadValues(
	ctx context.Context,
	run *importRun,
	lineageID int64,
	startDT time.Time,
	scan preScanResult,
	defs []*models.AttributeDefinition,
	ids []int64,
) (written, skipped int64, err error) {
	run.enter(models.StageValues)

	if err := s.valueRepo.CreateStaging(ctx); err != nil {
		return 0, 0, err
	}

	batch := make([]repositories.StagedValue, 0, s.cfg.StagingBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.valueRepo.Stage(ctx, batch)
		if err != nil {
			return err
		}
		run.processed += n
		s.report(ctx, run, run.processed, 0, false)
		batch = batch[:0]
		return nil
	}

	for i, f := range scan.features {
		for j, field := range scan.fields {
			def := defs[j]
			for _, name := range field.names {
				raw, present := f.props[name]
				if !present || eav.IsEmpty(raw) {
					continue
				}
				if !def.ValueType.IsGeneric() {
					skipped++
					continue
				}
				v, ok := eav.Coerce(raw, def.ValueType)
				if !ok {
					skipped++
					continue
				}
				batch = append(batch, repositories.StagedValue{SiteID: ids[i], AttributeID: def.ID, Value: v})
				if len(batch) >= s.cfg.StagingBatchSize {
					if err := flush(); err != nil {
						return 0, 0, err
					}
				}
			}
		}
	}
	if err := flush(); err != nil {
		return 0, 0, err
	}

	written, err = s.valueRepo.CommitStaged(ctx, lineageID, startDT)
	if err != nil {
		return 0, 0, err
	}
	if written != run.processed {
		return 0, 0, fmt.Errorf("committed %d attribute values, staged %d", written, run.processed)
	}
	s.report(ctx, run, written, written, true)
	return written, skipped, nil
}

func (s *importService) report(ctx context.Context, run *importRun, processed, total int64, done bool) {
	s.reporter.Report(ctx, models.ProgressEvent{
		RunID:     run.id,
		Stage:     run.stage,
		Processed: processed,
		Total:     total,
		Done:      done,
	})
}

// IsInputError reports whether err means the archive itself was unusable.
func IsInputError(err error) bool {
	return errors.Is(err, apperrors.ErrMalformedInput) || errors.Is(err, apperrors.ErrEmptyInput)
}
