package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supawave/supawave-backend/pkg/migrate/migrations"
)

func readEmbedded(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "migration %s", suffix)
	b, err := migrations.FS.ReadFile(filepath.Base(matches[0]))
	require.NoError(t, err)
	return string(b)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir(""))
	require.NoError(t, ValidateDir("migrations"))
}

func TestStoreInventoryMigrationEnforcesLedgerInvariants(t *testing.T) {
	content := readEmbedded(t, "create_store_inventory")
	for _, want := range []string{
		"UNIQUE (store_id, product_id)",
		"CHECK (quantity >= 0)",
		"CHECK (reserved_quantity >= 0 AND reserved_quantity <= quantity)",
		"DROP TABLE IF EXISTS store_inventory",
	} {
		require.Contains(t, content, want)
	}
}

func TestTransferMigrationConstraints(t *testing.T) {
	content := readEmbedded(t, "create_inventory_transfers")
	for _, want := range []string{
		"CHECK (from_store_id <> to_store_id)",
		"UNIQUE (transfer_id, product_id)",
		"CHECK (quantity > 0)",
		"status transfer_status NOT NULL DEFAULT 'pending'",
	} {
		require.Contains(t, content, want)
	}
}

func TestStoreMigrationPartialIndexes(t *testing.T) {
	content := readEmbedded(t, "create_stores")
	require.Contains(t, content, "ON stores (business_id) WHERE is_main_store")
	require.Contains(t, content, "ON stores (business_id, lower(name)) WHERE is_active")
	require.Contains(t, content, "ON stores (manager_user_id) WHERE manager_user_id IS NOT NULL")
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"001_init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"missing down": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n")}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"unbalanced block": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, ValidateFS(fsys))
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	path, err := createAt(dir, "Add Store Hours!", at)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260701080000_add_store_hours.sql"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "-- +goose Up"))
	require.NoError(t, ValidateDir(dir))

	_, err = createAt(dir, "add store hours", at)
	require.Error(t, err, "existing file must not be overwritten")

	_, err = createAt(dir, "!!!", at)
	require.Error(t, err)
}
