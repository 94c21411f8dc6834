package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"lin/internal/broker"
	"lin/internal/cli"
	"lin/internal/config"
	"lin/internal/credentials"
	"lin/internal/eventbus"
	adminhttp "lin/internal/http"
	"lin/internal/log"
	gsheet "lin/internal/sheets/google"
	"lin/internal/storage"
	"lin/internal/worker"
)

const userAgent = "lin-sync"

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(os.Stdout, (*config.Config).ValidateWorker)
	logger = logger.WithComponent(log.ComponentWorker)

	logger.Info("Starting lin-sync", log.FieldBroker, cfg.Broker, log.FieldStore, cfg.CredentialStore)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, log.FieldPath, cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var store credentials.Store
	if cfg.CredentialStore == "sqlite" {
		store = repo.CredentialStore()
	} else {
		var closeStore func() error
		store, closeStore, err = cli.OpenCredentialStore(cfg, logger)
		if err != nil {
			logger.Error("Failed to open credential store", log.FieldError, err)
			os.Exit(1)
		}
		defer closeStore()
	}

	client, closeClient, err := cli.NewAPIClient(cfg, store, eventbus.New(), logger, userAgent)
	if err != nil {
		logger.Error("Failed to initialize API client", log.FieldError, err)
		os.Exit(1)
	}
	defer closeClient()

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exporter := worker.NewExportWorker(client, repo, sheetsClient, cfg.SyncBatchSize, logger)

	consumer, err := cli.NewConsumer(cfg, cli.Shared, logger)
	if err != nil {
		logger.Error("Failed to initialize broker consumer", log.FieldError, err)
		os.Exit(1)
	}

	admin := adminhttp.NewServer(cfg.AdminAddr, exporter, repo, store, logger)

	parent, fail := context.WithCancel(context.Background())
	defer fail()

	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Error("Admin server shutdown failed", log.FieldError, err)
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Warn("Broker consumer close failed", log.FieldError, err)
			}
		}
	})
	ctx = log.NewContext(ctx, logger)

	go func() {
		logger.Info("Admin server listening", "addr", cfg.AdminAddr)
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin server failed", log.FieldError, err)
			fail()
		}
	}()

	// Catch up on anything exported while the worker was down.
	logger.Info("Performing startup export check")
	if res, err := exporter.ProcessPending(ctx); err != nil {
		logger.Error("Startup export check failed", log.FieldError, err, "checked", res.Checked, "failed", res.Failed)
	} else {
		logger.Info("Startup export check complete", "checked", res.Checked, "exported", res.Exported)
	}

	if consumer != nil {
		go func() {
			err := consumer.Consume(ctx, exporter.HandleMessage)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, broker.ErrClosed) {
				logger.Error("Message consumption failed", log.FieldError, err)
				fail()
			}
		}()
	} else {
		logger.Info("No broker configured, relying on periodic export only")
	}

	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := exporter.ProcessPending(ctx)
				if err != nil {
					logger.Error("Periodic export failed", log.FieldError, err, "failed", res.Failed)
					continue
				}
				logger.Debug("Periodic export complete", "checked", res.Checked, "exported", res.Exported)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
