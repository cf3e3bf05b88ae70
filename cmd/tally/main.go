package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tally/internal/advisor"
	"tally/internal/backend"
	"tally/internal/cache"
	"tally/internal/cli"
	"tally/internal/core"
	apphttp "tally/internal/http"
	"tally/internal/images"
	"tally/internal/llm"
	applog "tally/internal/log"
	"tally/internal/lock"
	"tally/internal/parser"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	logger.Info("Starting tally", "port", cfg.Port, "events_backend", cfg.EventsBackend)

	repo := cli.InitRepository(cfg.SQLiteDBPath)
	defer repo.Close()

	store, err := images.NewDiskStore(cfg.ImageDir)
	if err != nil {
		logger.Error("Failed to initialize image store", "error", err, "path", cfg.ImageDir)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid events configuration", "error", err)
		os.Exit(1)
	}
	published, err := backend.NewFactory(logger.WithComponent(applog.ComponentAMQP).Logger).CreatePublisher(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	if published.Cleanup != nil {
		defer func() {
			if err := published.Cleanup(); err != nil {
				logger.Warn("Failed to close event publisher", "error", err)
			}
		}()
	}

	reportCache := cache.NewLRUCache[*core.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	deps := services.Deps{Repo: repo, Locks: lock.NewManager(), Publisher: published.Publisher}
	engine := services.NewReportEngine(deps, reportCache)
	deps.Reports = engine

	janitor := cache.NewJanitor(reportCache)
	go janitor.Run(ctx, time.Minute)

	model := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	})
	if cfg.LLMAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, receipt parsing and chat will fail")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		RequestTimeout:  cfg.RequestTimeout,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		IngestRateLimit: cfg.IngestRateLimit,
		ChatWindow:      cfg.ChatWindow,
		ChatSessionTTL:  cfg.ChatSessionTTL,
		Logger:          logger,
		Ready:           repo.Ping,
	}, apphttp.Services{
		Workspaces:  services.NewWorkspaceService(deps),
		Categories:  services.NewCategoryRegistry(deps),
		Budgets:     services.NewBudgetStore(deps),
		Ledger:      services.NewLedgerStore(deps),
		Receipts:    services.NewReceiptArchive(deps),
		Reports:     engine,
		Ingestion:   services.NewIngestionPipeline(deps, store, parser.New(model)),
		Corrections: services.NewCorrectionProcessor(deps),
		Advisor:     advisor.New(engine, model),
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("HTTP server listening", "addr", srv.Addr, "max_upload_bytes", cfg.MaxUploadBytes)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		cancel()
		<-janitor.Done()
		os.Exit(1)
	}

	<-janitor.Done()
	logger.Info("Server stopped gracefully")
}
