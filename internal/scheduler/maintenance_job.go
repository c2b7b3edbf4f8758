package scheduler

import (
	"context"
	"time"

	"github.com/aristath/harmonia/internal/database"
	"github.com/rs/zerolog"
)

// MaintenanceJob checkpoints the results database WAL and verifies its
// integrity so long-running deployments do not accumulate an unbounded log.
type MaintenanceJob struct {
	resultsDB *database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates the database maintenance job.
func NewMaintenanceJob(resultsDB *database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		resultsDB: resultsDB,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the database maintenance job
func (j *MaintenanceJob) Run() error {
	if j.resultsDB == nil {
		return nil
	}

	if err := j.resultsDB.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := j.resultsDB.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("Results database failed integrity check")
		return err
	}

	j.log.Debug().Msg("Results database maintenance completed")
	return nil
}
