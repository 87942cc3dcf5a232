package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
	"fintrack/internal/worker"

	applog "fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	sheetsmem "fintrack/internal/sheets/memory"
)

func main() {
	exportUser := flag.String("export-user", "", "re-export every transaction of this user id before consuming events")
	flag.Parse()

	cfg, logger := cli.Bootstrap(applog.ComponentWorker, func(c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		return c.ValidateWorker()
	})
	if err := run(cfg, logger, *exportUser); err != nil {
		logger.Error("Worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

func run(cfg *config.Config, logger *applog.Logger, exportUser string) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)
	logger.Info("Starting fintrack worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"batch_size", cfg.ExportBatchSize)

	g, gctx := errgroup.WithContext(ctx)
	if exportUser != "" {
		userID, err := core.ParseID(exportUser)
		if err != nil {
			return err
		}
		g.Go(func() error {
			synced, failed, err := w.ExportUser(gctx, userID)
			logger.Info("Startup export finished", applog.FieldUserID, userID, "synced", synced, "failed", failed)
			return err
		})
	}
	g.Go(func() error {
		return consume(gctx, client, w, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// consume delivers events to the worker, reconnecting whenever the broker
// drops the channel, until ctx is done.
func consume(ctx context.Context, client *amqp.Client, w *worker.ExportWorker, logger *applog.Logger) error {
	for {
		err := client.ConsumeLedgerEvents(ctx, w.HandleEvent)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Event consumption stopped, reconnecting", applog.FieldError, err)
		if err := client.Reconnect(ctx); err != nil {
			return err
		}
	}
}

func newExporter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.TransactionExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exporting to an in-memory sheet")
		return sheetsmem.New(), nil
	}
	c, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets exporter initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return c, nil
}
