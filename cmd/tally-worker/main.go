package main

import (
	"context"
	"errors"
	"os"

	"tally/internal/backend"
	"tally/internal/cli"
	"tally/internal/config"
	applog "tally/internal/log"
	"tally/internal/sheets"
	gsheet "tally/internal/sheets/google"
	mem "tally/internal/sheets/memory"
	"tally/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting tally-worker", "events_backend", cfg.EventsBackend, "mirror_backend", cfg.MirrorBackend)

	if cfg.EventsBackend == config.EventsNone || cfg.MirrorBackend == config.MirrorNone {
		logger.Info("Nothing to mirror: events or mirror backend disabled")
		return
	}

	repo := cli.InitRepository(cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := cli.SignalContext()
	defer cancel()

	mirror, err := newMirror(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", "error", err, "backend", cfg.MirrorBackend)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid events configuration", "error", err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger.Logger).CreateSource(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize event source", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := source.Cleanup(); err != nil {
			logger.Warn("Failed to close event source", "error", err)
		}
	}()

	w := worker.NewMirrorWorker(repo, mirror)
	if err := w.Run(ctx, source.Source); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func newMirror(ctx context.Context, cfg *config.Config) (sheets.LedgerMirror, error) {
	switch cfg.MirrorBackend {
	case config.MirrorSheets:
		return gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			TabPrefix:          cfg.GoogleSheetPrefix,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
	default:
		return mem.New(), nil
	}
}
