//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/testhelpers"
)

func TestMigrations_Idempotent(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)

	// GetTestDB already migrated; a second run must be a no-op.
	require.NoError(t, database.MigrateURL(tdb.ConnStr, zap.NewNop()))

	var version int
	require.NoError(t, tdb.DB.QueryRow(context.Background(), "SELECT version FROM schema_migrations").Scan(&version))
	assert.Equal(t, 4, version)
}

func TestMigrations_SchemaShape(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	ctx := context.Background()

	for _, table := range []string{
		"source_lineage", "projects", "sites", "project_sites", "site_geometries",
		"attribute_defs", "site_attribute_values", "project_attributes",
		"site_addresses", "boroughs", "site_boroughs", "architects", "site_architects",
	} {
		var exists bool
		require.NoError(t, tdb.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists))
		assert.True(t, exists, table)
	}

	var srid int
	require.NoError(t, tdb.DB.QueryRow(ctx,
		"SELECT srid FROM geometry_columns WHERE f_table_name = 'site_geometries' AND f_geometry_column = 'geom'").Scan(&srid))
	assert.Equal(t, 2263, srid)
}

func TestMigrations_AttributeNamesUniqueIgnoringCase(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Reset(t)
	ctx := context.Background()

	_, err := tdb.DB.Exec(ctx, "INSERT INTO attribute_defs (name, display_text, value_type) VALUES ('Height', 'Height', 'int')")
	require.NoError(t, err)
	_, err = tdb.DB.Exec(ctx, "INSERT INTO attribute_defs (name, display_text, value_type) VALUES ('height', 'height', 'int')")
	assert.Error(t, err)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Reset(t)
	ctx := context.Background()

	err := tdb.DB.WithinTx(ctx, func(ctx context.Context) error {
		scope, ok := database.GetScope(ctx)
		require.True(t, ok)
		if _, err := scope.Querier().Exec(ctx,
			"INSERT INTO source_lineage (system, app, process, owner, label) VALUES ('s', 'a', 'p', 'o', 'l')"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var n int
	require.NoError(t, tdb.DB.QueryRow(ctx, "SELECT count(*) FROM source_lineage").Scan(&n))
	assert.Zero(t, n)
}
