// Package main is the entry point for the Harmonia tension simulation engine.
// It sweeps intervention intensities over relational unit networks, classifies
// the resulting energy trajectories, and serves the recorded runs over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/harmonia/internal/config"
	"github.com/aristath/harmonia/internal/di"
	chartshandlers "github.com/aristath/harmonia/internal/modules/charts/handlers"
	scenariohandlers "github.com/aristath/harmonia/internal/modules/scenario/handlers"
	"github.com/aristath/harmonia/internal/scheduler"
	"github.com/aristath/harmonia/internal/server"
	"github.com/aristath/harmonia/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Harmonia")

	// Wire databases, repositories, services, and background work.
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Background work processor: scheduled re-sweeps and run pruning.
	go container.WorkProcessor.Run()

	// Recurring jobs.
	sched := scheduler.New(log)
	reverifyJob := scheduler.NewReverifyJob(container.ScenarioService, log)
	if err := sched.AddJob("0 0 4 * * *", reverifyJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register reverification job")
	}
	maintenanceJob := scheduler.NewMaintenanceJob(container.ResultsDB, log)
	if err := sched.AddJob("0 30 3 * * *", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	if container.BackupService != nil {
		backupJob := scheduler.NewBackupJob(container.BackupService, cfg.Backup.RetainCount, log)
		if err := sched.AddJob("0 0 2 * * *", backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}
	sched.Start()

	// Kick an initial pass so seeded scenarios get swept on first boot.
	container.WorkProcessor.Trigger()

	srv := server.New(server.Config{
		Log:              log,
		ResultsDB:        container.ResultsDB,
		Config:           cfg,
		Bus:              container.EventBus,
		Processor:        container.WorkProcessor,
		ScenarioHandlers: scenariohandlers.NewHandler(container.ScenarioService, log),
		ChartsHandlers:   chartshandlers.NewHandler(container.ChartsService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	sched.Stop()
	container.WorkProcessor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
