package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tubescribe/internal/batch"
	"tubescribe/internal/browser"
	"tubescribe/internal/config"
	"tubescribe/internal/daemon"
	"tubescribe/internal/fetcher"
	"tubescribe/internal/history"
	"tubescribe/internal/logging"
	"tubescribe/internal/notifications"
	"tubescribe/internal/preflight"
	"tubescribe/internal/sweeper"
	"tubescribe/internal/transcriber"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, check := range preflight.RunAll(ctx, cfg) {
		if check.Passed {
			logger.Debug("preflight check passed", logging.String("check", check.Name))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}

	notifier := notifications.NewService(cfg)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			logger.Error("open history store", logging.Error(err))
			os.Exit(1)
		}
	}

	session := browser.NewManager(cfg, logger,
		browser.WithStateChangeHook(func(old, next browser.State) {
			switch {
			case next == browser.StateDegraded:
				_ = notifier.NotifySessionDegraded(context.Background(), string(old)+" -> "+string(next))
			case old == browser.StateDegraded && next == browser.StateReady:
				_ = notifier.NotifySessionRecovered(context.Background())
			}
		}))

	audioFetcher := fetcher.New(cfg, logger, fetcher.WithSessionRefresher(session))

	backend, err := transcriber.New(cfg, logger)
	if err != nil {
		logger.Error("init transcriber", logging.Error(err))
		os.Exit(1)
	}

	processorOpts := []batch.Option{batch.WithNotifier(notifier)}
	sweeperOpts := []sweeper.Option{}
	if store != nil {
		processorOpts = append(processorOpts, batch.WithHistoryRecorder(store))
		sweeperOpts = append(sweeperOpts, sweeper.WithHistoryPruner(store))
	}

	processor := batch.NewProcessor(cfg, logger, audioFetcher, backend, processorOpts...)
	sweep := sweeper.New(cfg, logger, sweeperOpts...)

	d, err := daemon.New(cfg, logger, daemon.Deps{
		Session:     session,
		Processor:   processor,
		Transcriber: backend,
		History:     store,
		Sweeper:     sweep,
		Notifier:    notifier,
	})
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("tubescribed shutting down")
}
