// import-archive loads a shapefile zip or GeoJSON file into the data hub
// without going through the HTTP API.
//
// Usage: go run ./scripts/import-archive [-name "Project name"] [-owner someone] <archive>
//
// Configuration: same config.yaml / environment variables as the server
// (PGHOST, PGUSER, PGPASSWORD, ...). Migrations are applied first.
//
// Flags:
//
//	-name      Project name (default: archive file name)
//	-owner     Lineage owner (default: $USER)
//	-progress  Print progress events (default: true)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/config"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/notify"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

func main() {
	name := flag.String("name", "", "Project name (default: archive file name)")
	owner := flag.String("owner", os.Getenv("USER"), "Lineage owner")
	progress := flag.Bool("progress", true, "Print progress events")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-name NAME] [-owner OWNER] <archive.zip|file.geojson>\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(args[0], *name, *owner, *progress); err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		var importErr *services.ImportError
		if errors.As(err, &importErr) {
			fmt.Fprintf(os.Stderr, "No data was written (failed during %s).\n", importErr.Stage)
		}
		if services.IsInputError(err) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func run(path, name, owner string, progress bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load("cli")
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	connStr := cfg.Database.ConnectionString()
	db, err := database.NewConnection(ctx, &database.Config{URL: connStr, MaxConnections: 4, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.MigrateURL(connStr, logger); err != nil {
		return err
	}

	var reporter services.ProgressReporter
	if progress {
		reporter = notify.NewThrottled(printer{}, cfg.Progress.EventsPerSecond)
	}

	svc := services.NewImportService(db,
		repositories.NewLineageRepository(),
		repositories.NewProjectRepository(),
		repositories.NewSiteRepository(),
		repositories.NewGeometryRepository(),
		repositories.NewAttributeRepository(),
		repositories.NewAttributeValueRepository(),
		reporter,
		services.ImportConfig{
			StagingBatchSize: cfg.Ingest.StagingBatchSize,
			CRS: services.CRSPolicy{
				ProjectedSRID: cfg.Ingest.ProjectedSRID,
				GeodeticSRID:  cfg.Ingest.GeodeticSRID,
				Threshold:     cfg.Ingest.ProjectedThreshold,
			},
			AttributeScope: cfg.Ingest.AttributeScope,
			LineageSystem:  cfg.Ingest.LineageSystem,
			LineageApp:     cfg.Ingest.LineageApp,
			Timeout:        cfg.Ingest.ImportTimeout,
		}, logger)

	result, err := svc.Import(models.WithCLIProvenance(ctx, owner), services.ImportRequest{
		ArchivePath:      path,
		Name:             name,
		OriginalFilename: filepath.Base(path),
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// printer writes progress events to stderr.
type printer struct{}

func (printer) Report(_ context.Context, e models.ProgressEvent) {
	if e.Total > 0 {
		fmt.Fprintf(os.Stderr, "%-20s %d/%d\n", e.Stage, e.Processed, e.Total)
		return
	}
	fmt.Fprintf(os.Stderr, "%-20s %d\n", e.Stage, e.Processed)
}
