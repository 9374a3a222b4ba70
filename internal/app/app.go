package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"watchlens/internal/categories"
	"watchlens/internal/config"
	"watchlens/internal/database"
	"watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/ingestion"
	"watchlens/internal/observability"
	"watchlens/internal/report"
	"watchlens/internal/repository"
	"watchlens/internal/services"
	"watchlens/internal/types"
)

const (
	tracerName = "watchlens/app"

	healthCheckTimeout = 5 * time.Second
	reconnectTimeout   = 10 * time.Second
	closeTimeout       = 30 * time.Second
)

// Result describes one completed run
type Result struct {
	RunID         string
	Ingest        ingestion.IngestSummary
	Analysis      *services.Analysis
	Manifest      *report.Manifest
	ProcessedCSV  string
	SnapshotSaved bool
}

// App wires ingestion, analysis, reporting and the snapshot store for one run
type App struct {
	config          *config.Config
	format          string
	runID           string
	rules           *categories.RuleSet
	dbService       database.Service
	repository      repository.HistoryRepository
	shutdownTracing observability.ShutdownFunc
	tracer          trace.Tracer
	logger          logging.Logger
}

// Option customizes an App
type Option func(*App)

// WithRepository uses repo for the snapshot instead of opening the configured database
func WithRepository(repo repository.HistoryRepository) Option {
	return func(a *App) {
		a.repository = repo
	}
}

// WithRunID overrides the generated run id
func WithRunID(id string) Option {
	return func(a *App) {
		a.runID = id
	}
}

// New validates cfg and prepares a run. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	format, err := cfg.InputFormat()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	a := &App{
		config: cfg.Clone(),
		format: format,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logger.With("run_id", a.runID)
	errors.UseLogger(a.logger)

	if a.config.RulesPath != "" {
		a.rules, err = categories.LoadFile(a.config.RulesPath)
	} else {
		a.rules, err = categories.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load category rules: %w", err)
	}

	a.shutdownTracing, err = observability.Setup(ctx, observability.Config{
		Enabled:     a.config.Tracing.Enabled,
		File:        a.config.TraceFile(),
		Environment: a.config.Environment,
		RunID:       a.runID,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.tracer = otel.Tracer(tracerName)

	if err := a.initializeSnapshot(ctx); err != nil {
		a.shutdownTracing(ctx)
		return nil, err
	}

	a.logger.Info("Application initialized",
		"environment", a.config.Environment,
		"input", a.config.Input.Path,
		"format", a.format,
		"categories", a.rules.Len(),
		"snapshot", a.repository != nil)
	return a, nil
}

// RunID returns the id attached to every log line and the manifest
func (a *App) RunID() string {
	return a.runID
}

// initializeSnapshot opens the snapshot database when the run reads or writes it.
// A snapshot that only receives output is optional: failures disable it with a warning.
func (a *App) initializeSnapshot(ctx context.Context) error {
	if a.repository != nil {
		return nil
	}
	readsSnapshot := a.format == config.FormatSQLite
	if !a.config.Snapshot.Enabled && !readsSnapshot {
		return nil
	}

	dbConfig := a.config.Snapshot.Database.Clone()
	if readsSnapshot && a.config.Input.Path != "" {
		dbConfig.Path = a.config.Input.Path
	}
	if readsSnapshot && !dbConfig.IsInMemory() {
		if _, err := os.Stat(dbConfig.Path); err != nil {
			return fmt.Errorf("open snapshot %s: %w", dbConfig.Path, err)
		}
	}

	err := a.openDatabase(ctx, dbConfig)
	if err == nil {
		return nil
	}
	if readsSnapshot {
		return fmt.Errorf("open snapshot %s: %w", dbConfig.Path, err)
	}

	logging.LogError(a.logger, err, "initialize_snapshot", map[string]interface{}{"db_path": dbConfig.Path})
	a.logger.Warn("Continuing without snapshot persistence")
	return nil
}

// openDatabase connects, migrates and health-checks the snapshot database, reconnecting once on retryable failures
func (a *App) openDatabase(ctx context.Context, dbConfig *database.Config) error {
	dbService, err := database.Open(ctx, dbConfig, a.logger)
	if err != nil {
		return err
	}

	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := dbService.Health(healthCtx); err != nil {
		if !errors.IsRetryable(err) {
			dbService.Close()
			return errors.NewRepositoryErrorWithContext("startup", err, errors.ClassifyError(err), map[string]string{
				"operation": "health_check",
			})
		}
		if err := a.reconnectDatabase(ctx, dbService, dbConfig); err != nil {
			dbService.Close()
			return err
		}
	}

	a.dbService = dbService
	a.repository = repository.NewSQLiteRepository(dbService, a.logger)
	return nil
}

func (a *App) reconnectDatabase(ctx context.Context, dbService database.Service, dbConfig *database.Config) error {
	a.logger.Warn("Snapshot database unhealthy, attempting to reconnect", "db_path", dbConfig.Path)

	reconnectCtx, cancel := context.WithTimeout(ctx, reconnectTimeout)
	defer cancel()

	if err := dbService.Connect(reconnectCtx, dbConfig); err != nil {
		return errors.NewRepositoryErrorWithContext("startup", err, errors.ErrCodeConnection, map[string]string{
			"operation": "reconnect",
			"db_path":   dbConfig.Path,
		})
	}
	if err := dbService.Migrate(reconnectCtx); err != nil {
		return errors.NewRepositoryErrorWithContext("startup", err, errors.ErrCodeConnection, map[string]string{
			"operation": "migrate",
			"db_path":   dbConfig.Path,
		})
	}

	a.logger.Info("Snapshot database reconnected", "db_path", dbConfig.Path)
	return nil
}

// Run ingests the history, analyzes it, writes the reports and refreshes the snapshot
func (a *App) Run(ctx context.Context) (*Result, error) {
	ctx, span := a.tracer.Start(ctx, "run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", a.runID), attribute.String("format", a.format))

	start := time.Now()
	result := &Result{RunID: a.runID}

	records, summary, err := a.ingest(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result.Ingest = summary

	analyzer, err := services.NewAnalyzer(services.NewClassifier(a.rules), a.config.Analysis, a.logger)
	if err != nil {
		return nil, err
	}
	result.Analysis, err = analyzer.Analyze(ctx, records)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("analyze: %w", err)
	}

	if a.config.Output.WriteCSV && a.format != config.FormatCSV {
		path := a.config.ProcessedCSVPath()
		if err := ingestion.WriteCSVFile(path, records); err != nil {
			return nil, err
		}
		result.ProcessedCSV = path
	}

	emitter, err := report.NewEmitter(report.Options{
		StatsDir:   a.config.StatsDir(),
		FiguresDir: a.config.FiguresDir(),
		Charts:     a.config.Output.Charts,
		FontPath:   a.config.Output.FontPath,
		Width:      a.config.Output.ChartWidth,
		Height:     a.config.Output.ChartHeight,
	}, a.runID, a.logger)
	if err != nil {
		return nil, err
	}
	result.Manifest, err = emitter.Emit(ctx, result.Analysis)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("emit report: %w", err)
	}

	result.SnapshotSaved = a.saveSnapshot(ctx, result.Analysis)

	logging.LogOperation(a.logger, "run", time.Since(start), map[string]interface{}{
		"records":        result.Analysis.Batch.Len(),
		"skipped":        summary.Skipped(),
		"stats_files":    len(result.Manifest.Stats),
		"figures":        len(result.Manifest.Figures),
		"snapshot_saved": result.SnapshotSaved,
	})
	return result, nil
}

func (a *App) ingest(ctx context.Context) ([]types.WatchRecord, ingestion.IngestSummary, error) {
	ctx, span := a.tracer.Start(ctx, "ingest")
	defer span.End()

	var rows []ingestion.RawRow
	var err error

	switch a.format {
	case config.FormatSQLite:
		records, err := a.repository.ListRecords(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, ingestion.IngestSummary{}, fmt.Errorf("read snapshot: %w", err)
		}
		a.logger.Info("Loaded watch history from snapshot", "records", len(records))
		return records, ingestion.IngestSummary{Total: len(records), Kept: len(records)}, nil
	case config.FormatCSV:
		rows, err = ingestion.ReadCSVFile(a.config.Input.Path)
	default:
		rows, err = ingestion.NewHTMLExportParser(a.logger).ParseFile(ctx, a.config.Input.Path)
	}
	if err != nil {
		span.RecordError(err)
		return nil, ingestion.IngestSummary{}, fmt.Errorf("ingest %s: %w", a.config.Input.Path, err)
	}

	loc, err := a.config.Location()
	if err != nil {
		return nil, ingestion.IngestSummary{}, err
	}
	records, summary := ingestion.Normalize(rows, loc, a.logger)
	span.SetAttributes(attribute.Int("rows", summary.Total), attribute.Int("kept", summary.Kept))
	return records, summary, nil
}

// saveSnapshot replaces the stored history with this run's records and aggregates.
// Failures are logged and reported through the return value; the run's reports are already written.
func (a *App) saveSnapshot(ctx context.Context, analysis *services.Analysis) bool {
	if a.repository == nil || !a.config.Snapshot.Enabled {
		return false
	}
	if a.format == config.FormatSQLite {
		a.logger.Info("Input is the snapshot; leaving it unchanged")
		return false
	}

	ctx, span := a.tracer.Start(ctx, "snapshot")
	defer span.End()

	records := analysis.Batch.Records()
	sets := make([]types.CategorySet, len(records))
	for i := range records {
		sets[i] = analysis.Batch.Categories(i)
	}

	err := a.repository.WithTransaction(ctx, func(repo repository.HistoryRepository) error {
		if err := repo.ReplaceHistory(ctx, records, sets); err != nil {
			return err
		}
		if err := repo.SaveCategoryCounts(ctx, analysis.Stats.CategoryStats, types.BatchStrategyUpsert); err != nil {
			return err
		}
		return repo.SaveDailyCounts(ctx, analysis.Stats.DailyCounts, types.BatchStrategyUpsert)
	})
	if err != nil {
		span.RecordError(err)
		logging.LogError(a.logger, err, "save_snapshot", map[string]interface{}{"records": len(records)})
		return false
	}

	if a.dbService != nil && a.dbService.Config().OptimizeAfterSave {
		if err := a.dbService.Optimize(ctx); err != nil {
			a.logger.Warn("Snapshot optimization failed", "error", err)
		}
	}
	return true
}

// Close flushes tracing and closes the snapshot database
func (a *App) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()

	var firstErr error
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(shutdownCtx); err != nil {
			a.logger.Warn("Failed to flush traces", "error", err)
			firstErr = err
		}
	}
	if err := a.closeDatabaseConnection(shutdownCtx); err != nil {
		a.logger.Error("Error during database closure", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// closeDatabaseConnection closes the database, giving up when ctx expires
func (a *App) closeDatabaseConnection(ctx context.Context) error {
	if a.dbService == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- a.dbService.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.NewRepositoryErrorWithContext("shutdown", err, errors.ClassifyError(err), map[string]string{
				"operation": "close_connection",
			})
		}
		return nil
	case <-ctx.Done():
		a.logger.Warn("Database close operation timed out")
		return errors.NewRepositoryError("shutdown", ctx.Err(), errors.ErrCodeTimeout)
	}
}

// GetLogger returns the run-scoped logger
func (a *App) GetLogger() logging.Logger {
	return a.logger
}
