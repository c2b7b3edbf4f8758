package di

import (
	"fmt"

	"github.com/aristath/harmonia/internal/config"
	"github.com/aristath/harmonia/internal/database"
	"github.com/aristath/harmonia/internal/events"
	"github.com/aristath/harmonia/internal/modules/charts"
	"github.com/aristath/harmonia/internal/modules/scenario"
	"github.com/aristath/harmonia/internal/reliability"
	"github.com/aristath/harmonia/internal/work"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open the results database and ensure its schema
// 2. Build repositories and services
// 3. Seed reference scenarios
// 4. Register background work
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	resultsDB, err := database.New(database.Config{
		Path:    cfg.ResultsDBPath(),
		Profile: database.ProfileResults,
		Name:    "results",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}

	container := &Container{
		ResultsDB: resultsDB,
		EventBus:  events.NewBus(),
	}

	container.ScenarioRepo = scenario.NewRepository(resultsDB.Conn(), log)
	container.RunRepo = scenario.NewRunRepository(resultsDB.Conn(), log)
	if err := container.ScenarioRepo.EnsureSchema(); err != nil {
		resultsDB.Close()
		return nil, err
	}
	if err := container.RunRepo.EnsureSchema(); err != nil {
		resultsDB.Close()
		return nil, err
	}

	container.ScenarioService = scenario.NewService(
		container.ScenarioRepo,
		container.RunRepo,
		container.EventBus,
		scenario.ServiceConfig{
			Workers:          cfg.SweepWorkers,
			DefaultTolerance: cfg.ToleranceFraction,
		},
		log,
	)
	container.ChartsService = charts.NewService(container.RunRepo, log)

	if err := container.ScenarioService.SeedReferenceScenarios(); err != nil {
		resultsDB.Close()
		return nil, fmt.Errorf("failed to seed reference scenarios: %w", err)
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		storage, err := reliability.NewS3Client(
			cfg.Backup.Endpoint,
			cfg.Backup.Region,
			cfg.Backup.Bucket,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			log,
		)
		if err != nil {
			resultsDB.Close()
			return nil, fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.BackupService = reliability.NewBackupService(storage, resultsDB, cfg.DataDir, log)
	}

	container.WorkRegistry = work.NewRegistry()
	container.WorkCompletion = work.NewCompletionTracker()
	container.WorkProcessor = work.NewProcessor(container.WorkRegistry, container.WorkCompletion, log)
	work.RegisterSweepWork(container.WorkRegistry, container.ScenarioService, container.RunRepo, log)

	return container, nil
}
