// Package observability configures OpenTelemetry tracing for a run.
package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"watchlens/internal/infrastructure/logging"
)

const serviceName = "watchlens"

// Config selects whether spans are exported and where
type Config struct {
	Enabled     bool
	File        string
	Environment string
	RunID       string
}

// ShutdownFunc flushes pending spans and releases the exporter
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider that writes span JSON to cfg.File.
// When tracing is disabled the global no-op provider is left in place.
func Setup(ctx context.Context, cfg Config, logger logging.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if cfg.File == "" {
		return nil, errors.New("trace file cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.Create(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f), stdouttrace.WithPrettyPrint())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create span exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", cfg.Environment),
		attribute.String("watchlens.run_id", cfg.RunID),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	logger.Info("Tracing initialized", "file", cfg.File)

	return func(ctx context.Context) error {
		otel.SetTracerProvider(previous)
		err := tp.Shutdown(ctx)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("shutdown tracing: %w", err)
		}
		return nil
	}, nil
}
