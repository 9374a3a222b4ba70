// Package report writes the statistics files and charts of an analysis run.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/services"
)

const tracerName = "watchlens/report"

// Options locates the report directories and sizes the charts
type Options struct {
	StatsDir   string
	FiguresDir string
	Charts     bool
	FontPath   string
	Width      int
	Height     int
}

// Manifest lists what one run wrote. It is saved as manifest.json in the stats directory.
type Manifest struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Records     int       `json:"records"`
	Stats       []string  `json:"stats"`
	Figures     []string  `json:"figures"`
}

// Emitter writes reports for analysis results
type Emitter struct {
	options  Options
	runID    string
	renderer *ChartRenderer
	logger   logging.Logger
	now      func() time.Time
}

// NewEmitter creates an emitter. The chart font is loaded up front when charts are enabled.
func NewEmitter(options Options, runID string, logger logging.Logger) (*Emitter, error) {
	if options.StatsDir == "" {
		return nil, fmt.Errorf("stats directory cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	e := &Emitter{options: options, runID: runID, logger: logger, now: time.Now}
	if options.Charts {
		if options.FiguresDir == "" {
			return nil, fmt.Errorf("figures directory cannot be empty when charts are enabled")
		}
		renderer, err := NewChartRenderer(options.FontPath, options.Width, options.Height, logger)
		if err != nil {
			return nil, err
		}
		e.renderer = renderer
	}
	return e, nil
}

// Emit writes the stats files, the charts when enabled, and the manifest
func (e *Emitter) Emit(ctx context.Context, a *services.Analysis) (*Manifest, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "emit")
	defer span.End()

	start := time.Now()
	if err := os.MkdirAll(e.options.StatsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create stats directory: %w", err)
	}

	manifest := &Manifest{
		RunID:       e.runID,
		GeneratedAt: e.now().UTC(),
		Records:     a.Batch.Len(),
		Figures:     []string{},
	}

	stats, err := statsFiles(e.options.StatsDir, a)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	manifest.Stats = stats

	if e.renderer != nil {
		chartCtx, chartSpan := otel.Tracer(tracerName).Start(ctx, "emit.charts")
		figures, err := e.renderer.RenderAll(chartCtx, e.options.FiguresDir, a)
		chartSpan.SetAttributes(attribute.Int("figures", len(figures)))
		chartSpan.End()
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("render charts: %w", err)
		}
		manifest.Figures = figures
	}

	manifestPath := filepath.Join(e.options.StatsDir, "manifest.json")
	if err := writeJSON(manifestPath, manifest); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("stats_files", len(manifest.Stats)),
		attribute.Int("figures", len(manifest.Figures)),
	)
	logging.LogOperation(e.logger, "emit_report", time.Since(start), map[string]interface{}{
		"stats_files": len(manifest.Stats),
		"figures":     len(manifest.Figures),
		"size":        humanize.Bytes(totalSize(append(manifest.Stats, manifest.Figures...))),
	})
	return manifest, nil
}

func totalSize(paths []string) uint64 {
	var n uint64
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			n += uint64(info.Size())
		}
	}
	return n
}
