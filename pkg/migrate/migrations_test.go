package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestListingsMigrationKeepsUserOwnedColumns(t *testing.T) {
	content := readMigration(t, "create_listings")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS listings",
		"id bigint PRIMARY KEY",
		"external_listing_refs jsonb NOT NULL",
		"auto_reprice_enabled boolean NOT NULL DEFAULT false",
		"stop_loss_price integer NULL",
		"FOREIGN KEY (platform_id) REFERENCES platforms(id)",
		"idx_listings_identity ON listings (platform_id, product_sku, variant_id)",
		"DROP TABLE IF EXISTS listings",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestErrorNotificationsMigrationHasThrottleIndexes(t *testing.T) {
	content := readMigration(t, "create_error_notifications")
	assert.Contains(t, content, "UNIQUE (listing_id, error_kind)")
	assert.Contains(t, content, "ON error_notifications (last_notified_at)")
	assert.Contains(t, content, "CHECK (error_kind IN ('stop_loss', 'api_error'))")
}

func TestHistoryMigrationCreatesAllLedgers(t *testing.T) {
	content := readMigration(t, "create_history_ledgers")
	for _, table := range []string{"price_history", "inventory_history", "custom_field_history"} {
		assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS "+table)
		assert.Contains(t, content, "DROP TABLE IF EXISTS "+table)
	}
	assert.Contains(t, content, "CHECK (change_type IN ('sold', 'restock', 'correction', 'initial'))")
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "Add Listing Notes!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260301093000_add_listing_notes.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "-- +goose Up"))
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigrationAt(dir, "Add Listing Notes!", now)
	assert.Error(t, err, "second create with the same version must fail")

	_, err = createSQLMigrationAt(dir, "!!!", now)
	assert.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_no_down.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}
