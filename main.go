package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"watchlens/internal/app"
	"watchlens/internal/config"
	"watchlens/internal/infrastructure/logging"
)

type cliFlags struct {
	configPath string
	env        string
	input      string
	format     string
	outDir     string
	rules      string
	logLevel   string
	workers    int
	noCharts   bool
	snapshot   bool
	writeCSV   bool
}

func parseFlags(args []string) (*cliFlags, *flag.FlagSet, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("watchlens", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.env, "env", "", "configuration preset: development, test or production")
	fs.StringVar(&f.input, "input", "", "watch history export (.html, .csv) or snapshot database")
	fs.StringVar(&f.format, "format", "", "input format: html, csv or sqlite (default: from extension)")
	fs.StringVar(&f.outDir, "out", "", "output directory")
	fs.StringVar(&f.rules, "rules", "", "category rules YAML (default: built-in rules)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.IntVar(&f.workers, "workers", 0, "classification workers")
	fs.BoolVar(&f.noCharts, "no-charts", false, "skip PNG charts")
	fs.BoolVar(&f.snapshot, "snapshot", true, "save the analyzed history to the snapshot database")
	fs.BoolVar(&f.writeCSV, "write-csv", true, "write the normalized history as CSV")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// loadConfig applies the file or the -env preset, then WATCHLENS_* variables, then flags that were set
func loadConfig(f *cliFlags, fs *flag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	if f.configPath != "" {
		loaded, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		env := f.env
		if env == "" {
			env = os.Getenv("WATCHLENS_ENVIRONMENT")
		}
		cfg = config.ConfigForEnvironment(env)
	}
	if err := cfg.LoadFromEnvironment(); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["env"] {
		cfg.Environment = f.env
	}
	if set["input"] {
		cfg.Input.Path = f.input
	}
	if set["format"] {
		cfg.Input.Format = f.format
	}
	if set["out"] {
		cfg.Output.Dir = f.outDir
	}
	if set["rules"] {
		cfg.RulesPath = f.rules
	}
	if set["log-level"] {
		cfg.Log.Level = f.logLevel
	}
	if set["workers"] {
		cfg.Analysis.Workers = f.workers
	}
	if f.noCharts {
		cfg.Output.Charts = false
	}
	if set["snapshot"] {
		cfg.Snapshot.Enabled = f.snapshot
	}
	if set["write-csv"] {
		cfg.Output.WriteCSV = f.writeCSV
	}
	return cfg, nil
}

func run(ctx context.Context, args []string) error {
	f, fs, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f, fs)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	result, err := application.Run(ctx)
	if err != nil {
		logging.LogError(logger, err, "run", map[string]interface{}{"run_id": application.RunID()})
		return err
	}

	fmt.Printf("Analyzed %s videos (%s skipped) from %d channels\n",
		humanize.Comma(int64(result.Analysis.Batch.Len())),
		humanize.Comma(int64(result.Ingest.Skipped())),
		result.Analysis.Stats.Basic.UniqueChannels)
	fmt.Printf("Reports: %s (%d files), charts: %d\n",
		cfg.StatsDir(), len(result.Manifest.Stats), len(result.Manifest.Figures))
	if result.ProcessedCSV != "" {
		fmt.Printf("Normalized history: %s\n", result.ProcessedCSV)
	}
	if result.SnapshotSaved {
		fmt.Println("Snapshot updated")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchlens: %v\n", err)
		stop()
		os.Exit(1)
	}
}
