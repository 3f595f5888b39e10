// Package testutil provides shared test helpers for setting up catalog databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/fehu/internal/catalog"
	"github.com/starford/fehu/internal/catalogservice"
)

// TestDB creates a temporary SQLite catalog database that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fehu-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService creates a catalog service backed by a temporary database.
func TestService(t *testing.T) *catalogservice.Service {
	t.Helper()
	return catalogservice.NewService(TestDB(t), nil)
}
