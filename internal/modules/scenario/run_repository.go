package scenario

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/harmonia/internal/modules/classifier"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// RunRepository handles run database operations.
// Database: results.db (runs table). Sample series are stored as a msgpack
// blob: runs are append-only and always read back whole.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "run").Logger(),
	}
}

// EnsureSchema creates the run tables when missing.
func (r *RunRepository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scenario_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			label TEXT NOT NULL,
			initial_energy REAL NOT NULL,
			final_energy REAL NOT NULL,
			min_energy REAL NOT NULL,
			mean_energy REAL NOT NULL,
			ground_energy REAL,
			ground_basis INTEGER,
			tolerance REAL NOT NULL,
			skipped INTEGER NOT NULL,
			samples BLOB NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario_id, started_at)`)
	if err != nil {
		return fmt.Errorf("failed to create run index: %w", err)
	}
	return nil
}

// Save persists a finished run.
func (r *RunRepository) Save(run *Run) error {
	samples, err := msgpack.Marshal(run.Trajectory)
	if err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}

	var groundBasis *int64
	if run.GroundBasis != nil {
		gb := int64(*run.GroundBasis)
		groundBasis = &gb
	}

	_, err = r.db.Exec(`
		INSERT INTO runs
			(id, scenario_id, strategy, label,
			 initial_energy, final_energy, min_energy, mean_energy,
			 ground_energy, ground_basis, tolerance, skipped, samples,
			 started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ScenarioID, run.Strategy, string(run.Label),
		run.Result.InitialEnergy, run.Result.FinalEnergy, run.Result.MinEnergy,
		run.Result.MeanEnergy, run.GroundEnergy, groundBasis,
		run.Result.Tolerance, run.Skipped, samples,
		run.StartedAt.Unix(), run.FinishedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetByID returns one run, samples decoded.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetByScenario returns all runs of a scenario, newest first.
func (r *RunRepository) GetByScenario(scenarioID string) ([]*Run, error) {
	rows, err := r.db.Query("SELECT "+runColumns+" FROM runs WHERE scenario_id = ? ORDER BY started_at DESC", scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run of a scenario.
func (r *RunRepository) Latest(scenarioID string) (*Run, error) {
	row := r.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE scenario_id = ? ORDER BY started_at DESC LIMIT 1", scenarioID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no runs for scenario %s: %w", scenarioID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// PruneOlderThan deletes runs whose started_at precedes the cutoff unix time.
// Returns the number of deleted rows.
func (r *RunRepository) PruneOlderThan(cutoffUnix int64) (int64, error) {
	res, err := r.db.Exec("DELETE FROM runs WHERE started_at < ?", cutoffUnix)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const runColumns = `id, scenario_id, strategy, label,
	initial_energy, final_energy, min_energy, mean_energy,
	ground_energy, ground_basis, tolerance, skipped, samples,
	started_at, finished_at`

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var label string
	var groundEnergy sql.NullFloat64
	var groundBasis sql.NullInt64
	var samples []byte
	var startedAtUnix, finishedAtUnix int64

	err := row.Scan(&run.ID, &run.ScenarioID, &run.Strategy, &label,
		&run.Result.InitialEnergy, &run.Result.FinalEnergy, &run.Result.MinEnergy,
		&run.Result.MeanEnergy, &groundEnergy, &groundBasis,
		&run.Result.Tolerance, &run.Skipped, &samples,
		&startedAtUnix, &finishedAtUnix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if err := msgpack.Unmarshal(samples, &run.Trajectory); err != nil {
		return nil, fmt.Errorf("failed to decode samples for run %s: %w", run.ID, err)
	}

	run.Label = classifier.Label(label)
	run.Result.Label = run.Label
	run.Result.SkippedSamples = run.Skipped
	if groundEnergy.Valid {
		ge := groundEnergy.Float64
		run.GroundEnergy = &ge
		run.Result.GroundEnergy = &ge
	}
	if groundBasis.Valid {
		gb := uint64(groundBasis.Int64)
		run.GroundBasis = &gb
	}
	run.StartedAt = unixUTC(startedAtUnix)
	run.FinishedAt = unixUTC(finishedAtUnix)
	return &run, nil
}
