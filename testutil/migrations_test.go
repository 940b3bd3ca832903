package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/migrations"
	"github.com/pkordes/trip-planner/backend/testutil"
)

var tables = []string{"days", "activities", "budget", "checklist", "checklist_items", "users", "revoked_tokens"}

// TestMigrations applies every migration, checks the resulting schema and
// rolls everything back again. Other packages may have migrated the shared
// test database already, so it starts from version 0.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err)

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "initial reset")

	results, err := provider.Up(ctx)
	require.NoError(t, err, "goose up")
	assert.Len(t, results, 5, "one result per migration file")

	for _, table := range tables {
		assert.True(t, tableExists(t, db, table), "table %q after up", table)
	}
	assert.True(t, indexExists(t, db, "days_id_idx"), "day id lookup index")
	assert.True(t, indexExists(t, db, "users_email_lower_idx"), "case-insensitive email index")

	var checklistRows int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM checklist`).Scan(&checklistRows))
	assert.Equal(t, 1, checklistRows, "checklist singleton is created by its migration")

	_, err = db.ExecContext(ctx, `INSERT INTO budget (singleton) VALUES (FALSE)`)
	assert.Error(t, err, "budget table only admits the singleton row")

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "goose down-to 0")
	for _, table := range tables {
		assert.False(t, tableExists(t, db, table), "table %q after down", table)
	}

	// Leave the database migrated for packages tested afterwards.
	_, err = provider.Up(ctx)
	require.NoError(t, err)
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	const q = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1)`
	var ok bool
	require.NoError(t, db.QueryRowContext(context.Background(), q, table).Scan(&ok))
	return ok
}

func indexExists(t *testing.T, db *sql.DB, index string) bool {
	t.Helper()
	const q = `SELECT EXISTS (
		SELECT 1 FROM pg_indexes
		WHERE schemaname = 'public' AND indexname = $1)`
	var ok bool
	require.NoError(t, db.QueryRowContext(context.Background(), q, index).Scan(&ok))
	return ok
}
