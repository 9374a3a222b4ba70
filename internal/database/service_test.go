package database

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	dberrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/testutils"
)

func TestSQLiteService_Connect(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "history.db")

	config := DefaultConfig()
	config.Path = dbPath

	service := NewSQLiteService(logging.NewNopLogger())
	ctx := context.Background()

	if err := service.Connect(ctx, config); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer service.Close()

	if err := service.Health(ctx); err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	if service.Config() != config {
		t.Error("Config() should return the connected configuration")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created: %s", dbPath)
	}
}

func TestOpen_AutoMigrate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name        string
		autoMigrate bool
		wantVersion int64
	}{
		{name: "migrates when enabled", autoMigrate: true, wantVersion: 1},
		{name: "leaves schema alone when disabled", autoMigrate: false, wantVersion: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := TestConfig()
			config.AutoMigrate = tt.autoMigrate

			service, err := Open(ctx, config, logging.NewNopLogger())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer service.Close()

			version, err := service.GetMigrationVersion(ctx)
			if err != nil {
				t.Fatalf("GetMigrationVersion: %v", err)
			}
			if version != tt.wantVersion {
				t.Errorf("version = %d, want %d", version, tt.wantVersion)
			}
		})
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	t.Parallel()

	config := TestConfig()
	config.BatchSize = 0

	_, err := Open(context.Background(), config, nil)
	if err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
	if !dberrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSQLiteService_Migrate(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	config.Path = filepath.Join(t.TempDir(), "migrate.db")

	logger := testutils.NewRecordingLogger()
	service := NewSQLiteService(logger)
	ctx := context.Background()

	if err := service.Connect(ctx, config); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer service.Close()

	if err := service.Migrate(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	db := service.DB()
	for _, table := range snapshotTables {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatalf("%s table was not created: %v", table, err)
		}
	}
	if !logger.HasMessage("info", "Connected to SQLite database") {
		t.Error("expected connect to be logged")
	}
}

func TestSQLiteService_ForeignKeysCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	service, err := Open(ctx, TestConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer service.Close()

	db := service.DB()
	if _, err := db.ExecContext(ctx, `INSERT INTO watch_records (id, title, channel, watched_at) VALUES (1, 't', 'c', '2024-01-01T00:00:00Z')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO record_categories (record_id, position, category) VALUES (1, 0, 'Gaming')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO record_categories (record_id, position, category) VALUES (99, 0, 'Gaming')`); err == nil {
		t.Error("expected foreign key violation for unknown record")
	} else if !dberrors.IsConstraint(dberrors.WrapDatabaseError("insert", err)) {
		t.Errorf("expected constraint classification, got %v", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM watch_records`); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM record_categories`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("categories should cascade with their record, %d left", n)
	}
}

func TestSQLiteService_ConnectionPool_Configuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		journalMode string
		forceSingle bool
		maxConns    int
		want        int
	}{
		{name: "WAL caps pool at four", journalMode: "WAL", maxConns: 10, want: 4},
		{name: "WAL honours smaller pool", journalMode: "WAL", maxConns: 2, want: 2},
		{name: "non-WAL uses single connection", journalMode: "DELETE", maxConns: 10, want: 1},
		{name: "forced single connection", journalMode: "WAL", forceSingle: true, maxConns: 10, want: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := DefaultConfig()
			config.Path = filepath.Join(t.TempDir(), "pool.db")
			config.JournalMode = tt.journalMode
			config.ForceSingleConnection = tt.forceSingle
			config.MaxConnections = tt.maxConns
			config.MaxIdleConns = 1

			service := NewSQLiteService(logging.NewNopLogger())
			if err := service.Connect(context.Background(), config); err != nil {
				t.Fatalf("Connect: %v", err)
			}
			defer service.Close()

			if got := service.GetStats().MaxOpenConnections; got != tt.want {
				t.Errorf("MaxOpenConnections = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSQLiteService_Connect_InvalidPath(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("path handling differs on Windows")
	}

	service := NewSQLiteService(logging.NewNopLogger())
	config := DefaultConfig()
	config.Path = "/invalid/path/that/does/not/exist/history.db"

	err := service.Connect(context.Background(), config)
	if err == nil {
		t.Fatal("Expected error for invalid path, got nil")
	}
	if !dberrors.IsConnection(err) {
		t.Errorf("Expected connection error for invalid path, got: %v", err)
	}
}

func TestSQLiteService_NotConnected(t *testing.T) {
	t.Parallel()
	service := NewSQLiteService(logging.NewNopLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "Health", call: func() error { return service.Health(ctx) }},
		{name: "Migrate", call: func() error { return service.Migrate(ctx) }},
		{name: "Optimize", call: func() error { return service.Optimize(ctx) }},
		{name: "GetMigrationVersion", call: func() error {
			_, err := service.GetMigrationVersion(ctx)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected error without connection")
			}
			if !dberrors.IsConnection(err) {
				t.Errorf("expected connection error, got %v", err)
			}
		})
	}

	if service.DB() != nil {
		t.Error("DB() should be nil before Connect")
	}
	if stats := service.GetStats(); stats.OpenConnections != 0 {
		t.Errorf("GetStats without connection = %+v", stats)
	}
	if err := service.Close(); err != nil {
		t.Errorf("Close without connection should not error, got: %v", err)
	}
}

func TestSQLiteService_Close_NullsReferences(t *testing.T) {
	t.Parallel()
	service, err := Open(context.Background(), TestConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if service.db == nil || service.migrationRunner == nil {
		t.Fatal("expected references to be populated before closing")
	}
	if err := service.Close(); err != nil {
		t.Fatalf("Failed to close database: %v", err)
	}
	if service.db != nil || service.migrationRunner != nil {
		t.Error("expected references to be nil after closing")
	}
}

func TestSQLiteService_Optimize(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	config.Path = filepath.Join(t.TempDir(), "optimize.db")
	ctx := context.Background()

	service, err := Open(ctx, config, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer service.Close()

	if err := service.Optimize(ctx); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if err := service.Health(ctx); err != nil {
		t.Errorf("Health after optimize: %v", err)
	}
}

func TestSQLiteService_Reconnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service := NewSQLiteService(logging.NewNopLogger())

	for i := 0; i < 2; i++ {
		config := DefaultConfig()
		config.Path = filepath.Join(t.TempDir(), "reconnect.db")
		if err := service.Connect(ctx, config); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
		if err := service.Health(ctx); err != nil {
			t.Fatalf("health %d: %v", i, err)
		}
	}
	if err := service.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteService_ContextCancellation(t *testing.T) {
	t.Parallel()
	service, err := Open(context.Background(), TestConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer service.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Health(ctx); err == nil {
		t.Error("expected health check to fail on a cancelled context")
	}
}
