package scenario

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/harmonia/internal/modules/hamiltonian"
	"github.com/rs/zerolog"
)

// Repository handles scenario database operations.
// Database: results.db (scenarios table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new scenario repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "scenario").Logger(),
	}
}

// EnsureSchema creates the scenario tables when missing.
func (r *Repository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS scenarios (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			units INTEGER NOT NULL,
			couplings TEXT NOT NULL,
			biases TEXT NOT NULL DEFAULT '[]',
			strategy TEXT NOT NULL,
			theta_start REAL NOT NULL,
			theta_end REAL NOT NULL,
			steps INTEGER NOT NULL,
			tolerance REAL NOT NULL DEFAULT 0,
			entangle_couplings INTEGER NOT NULL DEFAULT 0,
			use_analytic_ground INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create scenarios table: %w", err)
	}
	return nil
}

// Save inserts or replaces a scenario. The scenario must already be validated.
func (r *Repository) Save(s *Scenario) error {
	couplings, err := json.Marshal(s.Couplings)
	if err != nil {
		return fmt.Errorf("failed to encode couplings: %w", err)
	}
	biases, err := json.Marshal(s.Biases)
	if err != nil {
		return fmt.Errorf("failed to encode biases: %w", err)
	}

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
		s.CreatedAt = createdAt
	}

	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO scenarios
			(id, name, description, units, couplings, biases, strategy,
			 theta_start, theta_end, steps, tolerance,
			 entangle_couplings, use_analytic_ground, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Description, s.Units, string(couplings), string(biases),
		s.Strategy, s.ThetaStart, s.ThetaEnd, s.Steps, s.Tolerance,
		boolToInt(s.EntangleCouplings), boolToInt(s.UseAnalyticGround),
		createdAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save scenario %s: %w", s.Name, err)
	}
	return nil
}

// GetByID returns one scenario by its id.
func (r *Repository) GetByID(id string) (*Scenario, error) {
	return r.getOne("SELECT "+scenarioColumns+" FROM scenarios WHERE id = ?", id)
}

// GetByName returns one scenario by its unique name.
func (r *Repository) GetByName(name string) (*Scenario, error) {
	return r.getOne("SELECT "+scenarioColumns+" FROM scenarios WHERE name = ?", name)
}

// GetAll returns all scenarios ordered by name.
func (r *Repository) GetAll() ([]*Scenario, error) {
	rows, err := r.db.Query("SELECT " + scenarioColumns + " FROM scenarios ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []*Scenario
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenarios: %w", err)
	}
	return scenarios, nil
}

// Delete removes a scenario by id.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM scenarios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return nil
}

const scenarioColumns = `id, name, description, units, couplings, biases, strategy,
	theta_start, theta_end, steps, tolerance, entangle_couplings, use_analytic_ground, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) getOne(query string, arg any) (*Scenario, error) {
	row := r.db.QueryRow(query, arg)
	s, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scenario %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanScenario(row rowScanner) (*Scenario, error) {
	var s Scenario
	var couplings, biases string
	var entangle, analytic int
	var createdAtUnix int64

	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Units, &couplings, &biases,
		&s.Strategy, &s.ThetaStart, &s.ThetaEnd, &s.Steps, &s.Tolerance,
		&entangle, &analytic, &createdAtUnix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan scenario: %w", err)
	}

	if err := json.Unmarshal([]byte(couplings), &s.Couplings); err != nil {
		return nil, fmt.Errorf("failed to decode couplings for %s: %w", s.Name, err)
	}
	if biases != "" {
		if err := json.Unmarshal([]byte(biases), &s.Biases); err != nil {
			return nil, fmt.Errorf("failed to decode biases for %s: %w", s.Name, err)
		}
	}
	if len(s.Biases) == 0 {
		s.Biases = nil
	}
	if len(s.Couplings) == 0 {
		s.Couplings = []hamiltonian.Coupling{}
	}
	s.EntangleCouplings = entangle != 0
	s.UseAnalyticGround = analytic != 0
	s.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
