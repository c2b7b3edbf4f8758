// Package scenario defines simulation scenarios (a Hamiltonian, an
// intervention strategy, and a theta range) and the services that run them
// into classified trajectories.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/harmonia/internal/modules/classifier"
	"github.com/aristath/harmonia/internal/modules/hamiltonian"
	"github.com/aristath/harmonia/internal/modules/register"
	"github.com/aristath/harmonia/internal/modules/strategies"
	"github.com/aristath/harmonia/internal/modules/trajectory"
)

// ErrConfiguration marks an invalid scenario configuration. It is fatal and
// always surfaced before any sampling starts.
var ErrConfiguration = errors.New("configuration error")

// ErrNotFound marks a missing scenario or run.
var ErrNotFound = errors.New("not found")

// Scenario is one complete simulation configuration. It replaces any global
// world state: everything the runner needs is carried explicitly.
type Scenario struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Units       int                    `json:"units"`
	Couplings   []hamiltonian.Coupling `json:"couplings"`
	Biases      []hamiltonian.Bias     `json:"biases,omitempty"`
	Strategy    string                 `json:"strategy"`
	ThetaStart  float64                `json:"theta_start"`
	ThetaEnd    float64                `json:"theta_end"`
	Steps       int                    `json:"steps"`

	// Tolerance overrides the classifier tolerance fraction when positive.
	Tolerance float64 `json:"tolerance,omitempty"`

	// EntangleCouplings applies the structural entangling pass along the
	// coupling edges before measurement.
	EntangleCouplings bool `json:"entangle_couplings,omitempty"`

	// UseAnalyticGround classifies against the exhaustive ground-state
	// minimum instead of the trajectory's own minimum.
	UseAnalyticGround bool `json:"use_analytic_ground,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Validate checks the scenario configuration. Unit-range violations surface
// as register.ErrInvalidUnitIndex, everything else as ErrConfiguration; both
// are fatal before any sample is computed.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrConfiguration)
	}
	if s.Units <= 0 || s.Units > register.MaxUnits {
		return fmt.Errorf("%w: units=%d (must be 1..%d)", ErrConfiguration, s.Units, register.MaxUnits)
	}
	if s.Steps <= 0 {
		return fmt.Errorf("%w: steps=%d (theta range is empty)", ErrConfiguration, s.Steps)
	}
	if math.IsNaN(s.ThetaStart) || math.IsNaN(s.ThetaEnd) {
		return fmt.Errorf("%w: theta range is not finite", ErrConfiguration)
	}
	if s.Tolerance < 0 || s.Tolerance >= 1 {
		return fmt.Errorf("%w: tolerance=%v (must be in [0,1))", ErrConfiguration, s.Tolerance)
	}
	if _, err := strategies.ForName(s.Strategy); err != nil {
		return fmt.Errorf("%w: strategy: %v", ErrConfiguration, err)
	}

	// Coupling and bias validation happens on the Hamiltonian itself so the
	// error carries the exact offending term.
	h := hamiltonian.Hamiltonian{Units: s.Units, Couplings: s.Couplings, Biases: s.Biases}
	if err := h.Validate(); err != nil {
		return err
	}
	return nil
}

// Hamiltonian builds the validated tension function of the scenario.
func (s *Scenario) Hamiltonian() (*hamiltonian.Hamiltonian, error) {
	return hamiltonian.New(s.Units, s.Couplings, s.Biases)
}

// Thetas builds the scenario's intensity grid.
func (s *Scenario) Thetas() ([]float64, error) {
	thetas, err := trajectory.Thetas(s.ThetaStart, s.ThetaEnd, s.Steps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return thetas, nil
}

// Run is one recorded sweep of a scenario.
type Run struct {
	ID           string                `json:"id"`
	ScenarioID   string                `json:"scenario_id"`
	Strategy     string                `json:"strategy"`
	Label        classifier.Label      `json:"label"`
	Result       classifier.Result     `json:"result"`
	Trajectory   trajectory.Trajectory `json:"trajectory"`
	GroundEnergy *float64              `json:"ground_energy,omitempty"`
	GroundBasis  *uint64               `json:"ground_basis,omitempty"`
	Skipped      int                   `json:"skipped"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
}
