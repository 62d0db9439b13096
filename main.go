package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/auth"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/config"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/handlers"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/logging"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/mcp"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/middleware"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/notify"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/repositories"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", logging.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Env == "local" || cfg.Env == "dev" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build(zap.Fields(zap.String("version", cfg.Version)))
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		logging.URL("nats_url", cfg.NATS.URL),
	)

	connStr := cfg.Database.ConnectionString()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.MigrateURL(connStr, logger); err != nil {
		return err
	}

	// Progress: always logged, optionally published on NATS.
	reporter := notify.Multi{notify.NewLogReporter(logger)}
	if cfg.NATS.Enabled() {
		nr, err := notify.Connect(notify.NATSConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := nr.Close(); err != nil {
				logger.Warn("Failed to drain NATS connection", logging.Error(err))
			}
		}()
		reporter = append(reporter, notify.NewThrottled(nr, cfg.Progress.EventsPerSecond))
	}

	// Repositories
	lineageRepo := repositories.NewLineageRepository()
	projectRepo := repositories.NewProjectRepository()
	siteRepo := repositories.NewSiteRepository()
	geometryRepo := repositories.NewGeometryRepository()
	attributeRepo := repositories.NewAttributeRepository()
	valueRepo := repositories.NewAttributeValueRepository()

	// Services
	scope := services.NewScopeFunc(db)
	crs := services.CRSPolicy{
		ProjectedSRID: cfg.Ingest.ProjectedSRID,
		GeodeticSRID:  cfg.Ingest.GeodeticSRID,
		Threshold:     cfg.Ingest.ProjectedThreshold,
	}
	importService := services.NewImportService(db,
		lineageRepo, projectRepo, siteRepo, geometryRepo, attributeRepo, valueRepo,
		reporter,
		services.ImportConfig{
			StagingBatchSize: cfg.Ingest.StagingBatchSize,
			CRS:              crs,
			AttributeScope:   cfg.Ingest.AttributeScope,
			LineageSystem:    cfg.Ingest.LineageSystem,
			LineageApp:       cfg.Ingest.LineageApp,
			Timeout:          cfg.Ingest.ImportTimeout,
		}, logger)
	resolver := services.NewAttributeResolver(valueRepo, scope, cfg.Resolver.MaxConcurrency, logger)
	catalogService := services.NewCatalogService(projectRepo, attributeRepo, resolver, scope,
		services.CatalogConfig{DefaultLimit: cfg.Catalog.DefaultPageSize, MaxLimit: cfg.Catalog.MaxPageSize}, logger)
	boundaryService := services.NewBoundaryService(geometryRepo, scope, crs, logger)
	clusterService := services.NewClusterService(projectRepo, geometryRepo, scope,
		services.ClusterConfig{
			DefaultCellSize: cfg.Cluster.DefaultCellSize,
			SampleSize:      cfg.Cluster.SampleSize,
			GeodeticSRID:    cfg.Ingest.GeodeticSRID,
		}, logger)

	// Auth
	protect := handlers.Protect(handlers.NoAuth)
	if cfg.Auth.Enabled {
		jwks, err := auth.NewJWKSClient(ctx, auth.JWKSConfig{JWKSURL: cfg.Auth.JWKSURL, Issuer: cfg.Auth.Issuer})
		if err != nil {
			return fmt.Errorf("failed to initialize JWKS client: %w", err)
		}
		protect = auth.NewMiddleware(jwks, logger).RequireAuth
	} else {
		logger.Warn("Authentication disabled; /api and /mcp are open")
	}

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	maxUpload := cfg.Ingest.MaxUploadBytes()
	handlers.NewImportHandler(importService, maxUpload, logger).RegisterRoutes(mux, protect)
	handlers.NewBoundaryHandler(boundaryService, maxUpload, logger).RegisterRoutes(mux, protect)
	handlers.NewCatalogHandler(catalogService, logger).RegisterRoutes(mux, protect)
	handlers.NewClusterHandler(clusterService, logger).RegisterRoutes(mux, protect)

	mcpServer := mcp.NewServer("research-data-hub", cfg.Version, mcp.Deps{
		Catalog:  catalogService,
		Clusters: clusterService,
		DB:       db,
	}, logger)
	mux.Handle("/mcp", protect(mcpServer.NewStreamableHTTPServer()))

	var handler http.Handler = mux
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recoverer(logger)(handler)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting research data hub", zap.String("addr", srv.Addr))
		var err error
		if cfg.TLSCertPath != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
