package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"database/sql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestDB creates a fresh on-disk database in a per-test temp dir.
// Every test gets its own file so state never leaks between tests.
func setupTestDB(t *testing.T) *SQLite {
	t.Helper()

	db, err := NewSQLite(filepath.Join(t.TempDir(), "argus.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewSQLite(t *testing.T) {
	db := setupTestDB(t)

	// WAL and foreign keys must be in force.
	var journalMode string
	require.NoError(t, db.WriteDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fkEnabled int
	require.NoError(t, db.WriteDB.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled))
	assert.Equal(t, 1, fkEnabled)

	// The read pool must reject writes.
	_, err := db.ReadDB.Exec("INSERT INTO events (timestamp, action, created_at) VALUES (CURRENT_TIMESTAMP, 'x', CURRENT_TIMESTAMP)")
	assert.Error(t, err)
}

func TestNewSQLite_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "argus.db")

	db, err := NewSQLite(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)

	sentinel := errors.New("boom")
	err := db.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO allowlist_entries (id, entry_type, entry_value, reason, created_at) VALUES ('e1', 'ip', '10.0.0.1', 'test', CURRENT_TIMESTAMP)")
		require.NoError(t, err)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int
	require.NoError(t, db.ReadDB.QueryRow("SELECT COUNT(*) FROM allowlist_entries").Scan(&count))
	assert.Equal(t, 0, count, "insert must be rolled back")
}
