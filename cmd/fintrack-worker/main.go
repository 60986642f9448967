package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/export"
	"fintrack/internal/export/google"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	res := cli.InitBackend(context.Background(), logger, cfg)

	// Summary export is optional
	var exporter export.SummaryWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.New(context.Background(), google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewRefreshWorker(res.Service, exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	// Warm the snapshot store before waiting for messages
	if _, err := w.Refresh(ctx); err != nil {
		logger.Error("Startup refresh failed", log.FieldError, err)
	}

	if res.AMQP != nil {
		go func() {
			err := res.AMQP.ConsumeRefresh(ctx, w.HandleRefresh)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	go w.Run(ctx, cfg.RefreshInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
