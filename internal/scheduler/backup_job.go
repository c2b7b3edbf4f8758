package scheduler

import (
	"context"
	"time"

	"github.com/aristath/harmonia/internal/reliability"
	"github.com/rs/zerolog"
)

// BackupJob uploads a results-store backup and rotates old archives.
type BackupJob struct {
	backups     *reliability.BackupService
	retainCount int
	log         zerolog.Logger
}

// NewBackupJob creates the backup job.
func NewBackupJob(backups *reliability.BackupService, retainCount int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups:     backups,
		retainCount: retainCount,
		log:         log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "results_backup"
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.backups.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	return j.backups.RotateOldBackups(ctx, j.retainCount)
}
