package nvm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stagetwo/webgate/internal/infrastructure/database"
	_ "github.com/stagetwo/webgate/migrations" // registers the embedded schema
)

// testDB opens a migrated temporary database.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "nvm-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

// backends returns one fresh region of size per backend.
func backends(t *testing.T, size int64) map[string]Region {
	t.Helper()

	mem, err := NewMemory(size)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	file, err := OpenFile(filepath.Join(t.TempDir(), "nvm.bin"), size)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { file.Close() })

	lite, err := OpenSQLite(context.Background(), testDB(t), "secret", size)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { lite.Close() })

	return map[string]Region{
		"memory": mem,
		"file":   file,
		"sqlite": lite,
	}
}
