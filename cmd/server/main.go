// Package main is the entry point for the folio portfolio service. It wires
// the document store, the command resolution pipeline and the HTTP API, then
// runs until interrupted.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/folio/internal/clients/gemini"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/accounts"
	accountshandlers "github.com/aristath/folio/internal/modules/accounts/handlers"
	"github.com/aristath/folio/internal/modules/command"
	commandhandlers "github.com/aristath/folio/internal/modules/command/handlers"
	"github.com/aristath/folio/internal/modules/positions"
	positionshandlers "github.com/aristath/folio/internal/modules/positions/handlers"
	syncmod "github.com/aristath/folio/internal/modules/sync"
	synchandlers "github.com/aristath/folio/internal/modules/sync/handlers"
	"github.com/aristath/folio/internal/observability"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/internal/store"
	"github.com/aristath/folio/internal/syncer"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "error"})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Str("data_dir", cfg.DataDir).Str("db", cfg.DBPath).Msg("Starting folio")

	metrics := observability.New()

	// Every accepted write schedules a snapshot refresh once the burst of
	// commits settles.
	sched := scheduler.New(log)
	var snapshotJob *scheduler.SnapshotJob
	debounced := syncer.NewDebouncer(cfg.SyncDebounce, func() {
		if snapshotJob != nil {
			if err := sched.RunNow(snapshotJob); err != nil {
				log.Error().Err(err).Msg("Post-commit snapshot failed")
			}
		}
	})
	defer debounced.Stop()

	st, err := store.Open(cfg.DBPath, log,
		store.WithCommitHook(func() {
			metrics.StoreCommits.Inc()
			debounced.Trigger()
		}),
		store.WithObserver(func(d time.Duration, err error) {
			metrics.StoreTxDuration.Observe(d.Seconds())
			if err != nil {
				metrics.StoreCommitErrors.Inc()
			}
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open document store")
	}
	defer st.Close()

	snapshotJob = scheduler.NewSnapshotJob(st, metrics, log)
	if err := sched.AddJob(cfg.SnapshotCron, snapshotJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SnapshotCron).Msg("Invalid snapshot schedule")
	}
	sched.Start()
	defer sched.Stop()

	// The language model is optional: without a key, commands resolve
	// through keyword and regex rules only.
	var parser command.Parser
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Error().Err(err).Msg("Gemini unavailable, continuing without language model")
		} else {
			parser = client
			log.Info().Str("model", cfg.GeminiModel).Msg("Gemini parser enabled")
		}
	} else {
		log.Info().Msg("No GEMINI_API_KEY set, using regex-only command resolution")
	}

	srv := server.New(server.Config{
		Log:       log,
		Cfg:       cfg,
		Metrics:   metrics,
		Command:   commandhandlers.NewHandler(command.NewService(st, parser, metrics, log), log),
		Positions: positionshandlers.NewHandler(positions.NewService(st, log), log),
		Accounts:  accountshandlers.NewHandler(accounts.NewService(st, log), log),
		Sync:      synchandlers.NewHandler(syncmod.NewService(st, metrics, log), log),
		System:    server.NewSystemHandlers(st, cfg.DataDir, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Shutdown complete")
}
