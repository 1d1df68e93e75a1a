// Package testing holds shared test fixtures.
package testing

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teranos/measure/db"
)

// CreateTestDB creates a migrated in-memory SQLite database.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	// Each pooled connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	if err := db.Migrate(conn, nil); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

// SeedCatalogue inserts (id, text) rows into the catalogue table. A nil text
// pointer inserts NULL.
func SeedCatalogue(t *testing.T, conn *sql.DB, rows map[int64]*string) {
	t.Helper()
	for id, text := range rows {
		if _, err := conn.Exec("INSERT INTO catalogue (id, measurements) VALUES (?, ?)", id, text); err != nil {
			t.Fatalf("Failed to seed catalogue row %d: %v", id, err)
		}
	}
}
