package repo_test

import (
	"os"
	"testing"

	"github.com/pkordes/trip-planner/backend/testutil"
)

// TestMain applies all pending migrations once for the package so individual
// tests never deal with schema state. Without TEST_DATABASE_URL every test
// skips itself.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		testutil.MigrateUp(dsn)
	}
	os.Exit(m.Run())
}
