package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"watchlens/internal/infrastructure/logging"
)

var snapshotTables = []string{"watch_records", "record_categories", "category_counts", "daily_counts", "goose_db_version"}

func openTempDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_RunMigrations(t *testing.T) {
	db := openTempDB(t, "migrations.db")
	runner := NewMigrationRunner(db, logging.NewNopLogger())
	ctx := context.Background()

	if err := runner.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	for _, table := range snapshotTables {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestMigrationRunner_NilDB(t *testing.T) {
	runner := NewMigrationRunner(nil, nil)
	ctx := context.Background()

	if err := runner.RunMigrations(ctx); err == nil || err.Error() != "database connection is nil" {
		t.Errorf("RunMigrations error = %v", err)
	}
	if _, err := runner.GetCurrentVersion(ctx); err == nil || err.Error() != "database connection is nil" {
		t.Errorf("GetCurrentVersion error = %v", err)
	}
	// validation reads only the embedded files
	if err := runner.ValidateMigrations(); err != nil {
		t.Errorf("ValidateMigrations should not need a connection: %v", err)
	}
}

func TestMigrationRunner_GetCurrentVersion(t *testing.T) {
	db := openTempDB(t, "version.db")
	runner := NewMigrationRunner(db, logging.NewNopLogger())
	ctx := context.Background()

	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("Failed to get initial version: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected initial version 0, got %d", version)
	}

	if err := runner.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	version, err = runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("Failed to get version after migration: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1 after migration, got %d", version)
	}
}

func TestMigrationRunner_MultipleRuns(t *testing.T) {
	db := openTempDB(t, "multiple.db")
	runner := NewMigrationRunner(db, logging.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := runner.RunMigrations(ctx); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
	}

	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 {
		t.Errorf("repeated runs should be idempotent, got version %d", version)
	}
}

func TestMigrationRunner_ConcurrentAccess(t *testing.T) {
	const runners = 4
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, runners)
	for i := 0; i < runners; i++ {
		db := openTempDB(t, "concurrent.db")
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- NewMigrationRunner(db, logging.NewNopLogger()).RunMigrations(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent migration failed: %v", err)
		}
	}
}
