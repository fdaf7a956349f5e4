package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"riftbound/internal/catalog"
	"riftbound/pkg/database"
)

// NewTestDB opens a migrated sqlite database in a temp dir. A file is used
// rather than :memory: so every pooled connection sees the same schema.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "riftbound.db")})
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db), "failed to migrate test database")
	return db
}

// SeedCards writes the fixture catalog.
func SeedCards(t *testing.T, db *sql.DB) {
	t.Helper()
	repo := catalog.NewRepo(db)
	for _, c := range Cards() {
		require.NoError(t, repo.Upsert(context.Background(), c))
	}
}

// SeedUser inserts a user row and returns its id.
func SeedUser(t *testing.T, db *sql.DB, id, username string) string {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)`,
		id, username, username+"@example.com", "x")
	require.NoError(t, err)
	return id
}
