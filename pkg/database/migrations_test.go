package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_Run(t *testing.T) {
	fsys := fstest.MapFS{
		"001_create_things.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL);"),
		},
		"002_add_color.sql": &fstest.MapFile{
			Data: []byte("ALTER TABLE things ADD COLUMN color TEXT;"),
		},
	}

	t.Run("applies pending migrations in order", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, NewMigrator(db, zap.NewNop()).Run(fsys))

		_, err := db.Exec("INSERT INTO things (name, color) VALUES (?, ?)", "widget", "red")
		assert.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Equal(t, 2, count)
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := openTestDB(t)
		migrator := NewMigrator(db, zap.NewNop())

		require.NoError(t, migrator.Run(fsys))
		require.NoError(t, migrator.Run(fsys))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Equal(t, 2, count)
	})

	t.Run("rejects unversioned filenames", func(t *testing.T) {
		db := openTestDB(t)
		bad := fstest.MapFS{
			"initial.sql": &fstest.MapFile{Data: []byte("SELECT 1;")},
		}
		assert.Error(t, NewMigrator(db, zap.NewNop()).Run(bad))
	})
}

func TestDB_WithTransaction(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, n INTEGER)")
	require.NoError(t, err)

	t.Run("commits on success", func(t *testing.T) {
		err := db.WithTransaction(func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO items (n) VALUES (1)")
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		wantErr := errors.New("boom")
		err := db.WithTransaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec("INSERT INTO items (n) VALUES (2)"); err != nil {
				return err
			}
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
		assert.Equal(t, 1, count)
	})
}
