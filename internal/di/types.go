// Package di provides dependency injection wiring for the application.
//
// The Container is the single source of truth for all service instances.
// Wire() builds it in dependency order: database, repositories, services,
// background work.
package di

import (
	"github.com/aristath/harmonia/internal/database"
	"github.com/aristath/harmonia/internal/events"
	"github.com/aristath/harmonia/internal/modules/charts"
	"github.com/aristath/harmonia/internal/modules/scenario"
	"github.com/aristath/harmonia/internal/reliability"
	"github.com/aristath/harmonia/internal/work"
)

// Container holds all application dependencies.
type Container struct {
	// Database
	ResultsDB *database.DB

	// Events
	EventBus *events.Bus

	// Repositories
	ScenarioRepo *scenario.Repository
	RunRepo      *scenario.RunRepository

	// Services
	ScenarioService *scenario.Service
	ChartsService   *charts.Service

	// BackupService is nil when no backup bucket is configured.
	BackupService *reliability.BackupService

	// Background work
	WorkRegistry   *work.Registry
	WorkCompletion *work.CompletionTracker
	WorkProcessor  *work.Processor
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c.ResultsDB != nil {
		return c.ResultsDB.Close()
	}
	return nil
}
