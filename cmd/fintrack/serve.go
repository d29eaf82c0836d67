package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/chart"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/dialog"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/telegram"
)

const sessionSweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	return serve(ctx, cfg, logger)
}

func serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	logger.Info("Starting fintrack", log.FieldBackend, cfg.DataBackend, "port", cfg.Port)

	backend, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err)
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	collector := metrics.NewCollector("fintrack")
	storeOpts := []ledger.Option{
		ledger.WithRecorder(collector),
		ledger.WithLogger(logger.WithComponent(log.ComponentLedger)),
	}
	if cfg.AMQPURL != "" {
		publisher := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		defer publisher.Close()
		storeOpts = append(storeOpts, ledger.WithNotifier(publisher))
		logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, ledger events are not published")
	}

	store, err := ledger.Open(ctx, backend.Repository, storeOpts...)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		return err
	}

	sessions := dialog.NewSessionStore(cfg.SessionMax, cfg.SessionTTL, collector)
	caches := cache.NewManager(logger)
	caches.Register("dialog_sessions", sessions)

	machine := dialog.New(store, sessions, chart.NewPieRenderer(logger),
		dialog.WithRecorder(collector),
		dialog.WithLogger(logger),
	)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Conversation: machine,
		Users:        store,
		Ready:        apphttp.ReadyFunc(backend.Ready),
		Metrics:      collector,
		Logger:       logger,
		APIToken:     cfg.APIToken,
	})
	if cfg.APIToken == "" {
		logger.Warn("API_TOKEN not set, /api endpoints reject every request")
	}

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.New(telegram.Config{
			Token:       cfg.TelegramToken,
			Debug:       cfg.TelegramDebug,
			PollTimeout: cfg.TelegramPollTimeout,
		}, machine, collector, logger)
		if err != nil {
			logger.Error("Failed to start Telegram bot", log.FieldError, err)
			return err
		}
	} else {
		logger.Warn("TELEGRAM_TOKEN not set, only the HTTP API is available")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		caches.Run(gctx, sessionSweepInterval)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("fintrack stopped with error", log.FieldError, err)
		return err
	}
	logger.Info("fintrack stopped gracefully")
	return nil
}
