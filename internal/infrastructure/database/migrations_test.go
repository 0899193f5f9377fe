package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nerrad567/doorman/internal/infrastructure/database"
	"github.com/nerrad567/doorman/migrations"
)

var testMigrations = fstest.MapFS{
	"20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
	"20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
	"20260102_000000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
	"README.md":                        {Data: []byte("ignored")},
}

func open(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	return db
}

func tableExists(t *testing.T, db *database.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	for range 2 {
		if err := db.Migrate(ctx, testMigrations); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
	}

	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("migrations did not create both tables")
	}

	pending, err := db.PendingMigrations(ctx, testMigrations)
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestMigrateDownWithoutDownSQL(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The latest migration (gadgets) has no down file.
	if err := db.MigrateDown(ctx, testMigrations); err == nil {
		t.Error("MigrateDown() should fail without down SQL")
	}
}

func TestMigrateDown(t *testing.T) {
	db := open(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"20260101_000000_widgets.up.sql":   testMigrations["20260101_000000_widgets.up.sql"],
		"20260101_000000_widgets.down.sql": testMigrations["20260101_000000_widgets.down.sql"],
	}

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "widgets") {
		t.Error("widgets still exists after MigrateDown()")
	}

	pending, err := db.PendingMigrations(ctx, fsys)
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}
}

func TestLoadMigrationsOrder(t *testing.T) {
	ms, err := database.LoadMigrations(testMigrations)
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("loaded %d migrations, want 2", len(ms))
	}
	if ms[0].Name != "widgets" || ms[1].Name != "gadgets" {
		t.Errorf("order = [%s %s], want [widgets gadgets]", ms[0].Name, ms[1].Name)
	}
	if ms[0].DownSQL == "" {
		t.Error("widgets migration lost its down SQL")
	}
}

func TestEmbeddedSchema(t *testing.T) {
	db := open(t)

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate(migrations.FS) error = %v", err)
	}
	for _, table := range []string{"devices", "access_events"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}
}
