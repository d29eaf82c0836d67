// Command ledger-worker mirrors ledger events from AMQP into a Google Sheet.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	if err != nil {
		cli.SetupLogger("info").Error("Configuration validation failed", log.FieldError, err)
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting ledger-worker", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		return err
	}

	collector := metrics.NewCollector("ledger_worker")
	syncWorker := worker.NewSyncWorker(mirror, collector, worker.DefaultSettings(), logger)

	// Events published while the worker was down are recovered from the
	// dataset itself.
	if backend, err := cli.OpenBackend(ctx, logger, cfg); err != nil {
		logger.Error("Skipping backfill, backend unavailable", log.FieldError, err)
	} else {
		if err := syncWorker.Backfill(ctx, backend.Repository); err != nil {
			logger.Error("Backfill incomplete", log.FieldError, err)
		}
		if err := backend.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}

	consumer := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	defer consumer.Close()

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", collector.Handler())
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := consumer.ConsumeLedgerEvents(gctx, syncWorker.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("ledger-worker stopped with error", log.FieldError, err)
		return err
	}
	logger.Info("ledger-worker stopped gracefully")
	return nil
}
