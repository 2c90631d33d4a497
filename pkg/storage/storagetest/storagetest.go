// Package storagetest provides migrated databases for package tests.
package storagetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/platinummonkey/teamsites/pkg/storage"
)

// NewSQLite returns an in-memory SQLite database with every migration applied.
// The database is closed when the test ends.
func NewSQLite(t *testing.T) *sql.DB {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.Driver = storage.DriverSQLite
	cfg.DSN = "file::memory:?_foreign_keys=on"

	db, err := storage.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to open sqlite test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
