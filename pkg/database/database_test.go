package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	v, dirty, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'deck_cards'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestWithTransactionCommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := WithTransaction(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO cards (id, name, card_code, card_type, rarity) VALUES (1, 'Darius', 'OGN-001', 'Legend', 'Rare')`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cards (id, name, card_code, card_type, rarity) VALUES (2, 'Garen', 'OGN-002', 'Legend', 'Rare')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = WithTransaction(ctx, db, func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO cards (id, name, card_code, card_type, rarity) VALUES (3, 'Jinx', 'OGN-003', 'Legend', 'Rare')`)
			panic("unexpected")
		})
	})

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&count))
	assert.Zero(t, count)
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO deck_cards (deck_id, card_id, slot, quantity) VALUES (99, 99, 'main_deck', 1)`)
	assert.Error(t, err)
}
