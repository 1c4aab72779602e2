package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensedesk/internal/amqp"
	"expensedesk/internal/backend"
	"expensedesk/internal/cache"
	"expensedesk/internal/cli"
	"expensedesk/internal/config"
	applog "expensedesk/internal/log"
	"expensedesk/internal/sheets"
	gsheet "expensedesk/internal/sheets/google"
	"expensedesk/internal/sheets/memory"
	"expensedesk/internal/worker"
)

const (
	backfillInterval = time.Hour
	shutdownTimeout  = 30 * time.Second
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting ledger-worker", applog.FieldOperation, applog.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	ledger, err := newLedger(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ledgerWorker := worker.NewLedgerWorker(ledger, cfg.ExportDedupeSize, logger)
	caches := cache.NewManager(logger)
	caches.Register(ledgerWorker.Exported())
	caches.StartCleanup(time.Hour)
	defer caches.Stop()

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	if err := ledgerWorker.WarmDedupe(ctx); err != nil {
		logger.Error("Failed to warm ledger dedupe", applog.FieldError, err)
	}

	source := openSource(ctx, cfg, logger)
	if source != nil {
		defer source.Close()
		logger.Info("Performing startup backfill...")
		if err := ledgerWorker.Backfill(ctx, source.Remote); err != nil {
			logger.Error("Failed startup backfill", applog.FieldError, err)
		}
		go func() {
			ticker := time.NewTicker(backfillInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := ledgerWorker.Backfill(ctx, source.Remote); err != nil {
						logger.Error("Periodic backfill failed", applog.FieldError, err)
					}
				}
			}
		}()
	}

	go func() {
		err := amqpClient.ConsumeStatusChanged(ctx, ledgerWorker.HandleStatusChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}

func newLedger(cfg *config.Config, logger *applog.Logger) (sheets.LedgerWriter, error) {
	if !cfg.LedgerEnabled() {
		logger.Info("Google Sheets disabled - exporting to the in-memory ledger")
		return memory.New(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleLedgerSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	logger.Info("Google Sheets ledger initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleLedgerSheetName)
	return client, nil
}

// openSource connects to the configured backend for backfills. The worker
// runs without one when it cannot be opened.
func openSource(ctx context.Context, cfg *config.Config, logger *applog.Logger) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Warn("Backfill disabled", applog.FieldError, err)
		return nil
	}
	// The worker consumes events; it never publishes them.
	bc.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Warn("Backfill disabled", applog.FieldError, err)
		return nil
	}
	return res
}
