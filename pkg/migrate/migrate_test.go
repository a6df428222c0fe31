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

func TestShippedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestOrdersMigrationDeclaresConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders_table.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(raw)

	for _, want := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_public_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_payment_session_id",
		"payment_method IN ('cash', 'card')",
	} {
		assert.Contains(t, content, want)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Order Notes!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20261015093000_add_order_notes.sql"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "-- rollback add_order_notes"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "add order notes", now)
	assert.Error(t, err)

	_, err = CreateSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), body, 0o644))
	assert.Error(t, ValidateDir(dir))
}
