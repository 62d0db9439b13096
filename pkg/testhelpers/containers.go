// Package testhelpers provides a PostGIS container for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/retry"
)

// PostGISImage is the store image integration tests run against.
const PostGISImage = "postgis/postgis:16-3.4"

// TestDB holds the shared container and a migrated connection pool.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostGIS container with migrations applied.
// The container is created once and reused across all tests in the run;
// call Reset to clear data between tests.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostGISImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "rdh_test",
			"POSTGRES_USER":     "rdh",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The image restarts postgres once after running its init scripts.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://rdh:test_password@%s:%s/rdh_test?sslmode=disable",
		host, port.Port())

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 10,
		Retry: &retry.Config{
			MaxRetries:   10,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   1.5,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	if err := database.MigrateURL(connStr, zap.NewNop()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// Reset removes everything imports write while keeping the seeded
// vocabularies and domain attribute definitions.
func (tdb *TestDB) Reset(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	stmts := []string{
		`TRUNCATE source_lineage, projects, sites, project_sites, site_geometries,
			site_attribute_values, project_attributes,
			site_addresses, site_bbls, site_alternate_names,
			site_boroughs, site_architects, site_styles, architects, styles
			RESTART IDENTITY CASCADE`,
		`DELETE FROM attribute_defs WHERE value_type IN ('int', 'txt', 'num', 'ts')`,
	}
	for _, stmt := range stmts {
		if _, err := tdb.DB.Exec(ctx, stmt); err != nil {
			t.Fatalf("failed to reset test database: %v", err)
		}
	}
}
