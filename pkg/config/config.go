package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the research data hub.
// Configuration can come from an optional YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Resolver ResolverConfig `yaml:"resolver"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Cluster  ClusterConfig  `yaml:"cluster"`
	NATS     NATSConfig     `yaml:"nats"`
	Progress ProgressConfig `yaml:"progress"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// Enabled controls whether /api and /mcp require a bearer token.
	// Leave disabled for local development without an auth server.
	Enabled bool   `yaml:"enabled" env:"AUTH_ENABLED" env-default:"false"`
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`
	// Issuer, when set, must match the iss claim of every token.
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER" env-default:""`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"researchdatahub"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"research_data_hub"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// IngestConfig tunes the bulk load pipeline.
type IngestConfig struct {
	// StagingBatchSize is how many rows are buffered before a COPY into staging.
	StagingBatchSize int `yaml:"staging_batch_size" env:"INGEST_STAGING_BATCH_SIZE" env-default:"5000"`
	// ProjectedSRID is the system every stored geometry ends up in.
	ProjectedSRID int `yaml:"projected_srid" env:"INGEST_PROJECTED_SRID" env-default:"2263"`
	GeodeticSRID  int `yaml:"geodetic_srid" env:"INGEST_GEODETIC_SRID" env-default:"4326"`
	// ProjectedThreshold applies only to input without a declared CRS.
	ProjectedThreshold float64       `yaml:"projected_threshold" env:"INGEST_PROJECTED_THRESHOLD" env-default:"1000"`
	AttributeScope     string        `yaml:"attribute_scope" env:"INGEST_ATTRIBUTE_SCOPE" env-default:"site"`
	MaxUploadMB        int64         `yaml:"max_upload_mb" env:"INGEST_MAX_UPLOAD_MB" env-default:"256"`
	ImportTimeout      time.Duration `yaml:"import_timeout" env:"INGEST_IMPORT_TIMEOUT" env-default:"30m"`
	LineageSystem      string        `yaml:"lineage_system" env:"INGEST_LINEAGE_SYSTEM" env-default:"research-data-hub"`
	LineageApp         string        `yaml:"lineage_app" env:"INGEST_LINEAGE_APP" env-default:"ingest"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *IngestConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// ResolverConfig bounds the attribute read fan-out.
type ResolverConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" env:"RESOLVER_MAX_CONCURRENCY" env-default:"4"`
}

// CatalogConfig bounds catalog paging.
type CatalogConfig struct {
	DefaultPageSize int `yaml:"default_page_size" env:"CATALOG_DEFAULT_PAGE_SIZE" env-default:"50"`
	MaxPageSize     int `yaml:"max_page_size" env:"CATALOG_MAX_PAGE_SIZE" env-default:"500"`
}

// ClusterConfig configures map aggregation.
type ClusterConfig struct {
	DefaultCellSize float64 `yaml:"default_cell_size" env:"CLUSTER_DEFAULT_CELL_SIZE" env-default:"0.01"`
	SampleSize      int     `yaml:"sample_size" env:"CLUSTER_SAMPLE_SIZE" env-default:"5"`
}

// NATSConfig configures progress publishing. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url" env:"NATS_URL" env-default:""`
	SubjectPrefix string `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX" env-default:"researchdatahub"`
}

// Enabled reports whether a NATS server is configured.
func (c *NATSConfig) Enabled() bool {
	return c.URL != ""
}

// ProgressConfig throttles intermediate progress events.
type ProgressConfig struct {
	EventsPerSecond float64 `yaml:"events_per_second" env:"PROGRESS_EVENTS_PER_SECOND" env-default:"5"`
}

const configFile = "config.yaml"

// StoredGeometrySRID is the SRID fixed by the site_geometries column type.
const StoredGeometrySRID = 2263

// Load reads configuration from config.yaml (when present) with environment variable overrides.
// .env and .env.local are loaded into the environment first; variables already set win.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(configFile); err == nil {
		if err := cleanenv.ReadConfig(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", configFile, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Database.Host = ResolveHostForDocker(cfg.Database.Host)

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Ingest.StagingBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.staging_batch_size must be positive"))
	}
	if c.Ingest.ProjectedSRID <= 0 || c.Ingest.GeodeticSRID <= 0 {
		errs = append(errs, fmt.Errorf("ingest SRIDs must be positive"))
	} else if c.Ingest.ProjectedSRID != StoredGeometrySRID {
		errs = append(errs, fmt.Errorf("ingest.projected_srid must be %d, the SRID of the site_geometries column", StoredGeometrySRID))
	}
	if c.Ingest.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("ingest.max_upload_mb must be positive"))
	}
	if strings.TrimSpace(c.Ingest.AttributeScope) == "" {
		errs = append(errs, fmt.Errorf("ingest.attribute_scope must not be empty"))
	}
	if c.Resolver.MaxConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("resolver.max_concurrency must be positive"))
	}
	if c.Catalog.DefaultPageSize <= 0 || c.Catalog.MaxPageSize < c.Catalog.DefaultPageSize {
		errs = append(errs, fmt.Errorf("catalog page sizes must satisfy 0 < default_page_size <= max_page_size"))
	}
	if c.Cluster.DefaultCellSize <= 0 {
		errs = append(errs, fmt.Errorf("cluster.default_cell_size must be positive"))
	}
	if c.Auth.Enabled && c.Auth.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwks_url is required when auth is enabled"))
	}
	return errors.Join(errs...)
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps localhost to host.docker.internal inside a container
// so a database running on the host machine stays reachable.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
