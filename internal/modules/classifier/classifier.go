// Package classifier labels completed trajectories: did the intervention
// relax the system toward its low-tension equilibrium, or did the tension
// dip and rebound into a deadlock despite maximal intensity.
package classifier

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/harmonia/internal/modules/trajectory"
)

// Label is the classification of a trajectory.
type Label string

const (
	// Converging means the final energy settled near the ground-state
	// minimum (or near the trajectory's own minimum when no analytic ground
	// state is supplied).
	Converging Label = "converging"
	// Deadlocked means the energy dipped but rebounded to near its initial
	// value at full intensity.
	Deadlocked Label = "deadlocked"
	// Indeterminate means neither pattern held.
	Indeterminate Label = "indeterminate"
)

// DefaultToleranceFraction is the default tolerance, as a fraction of the
// Hamiltonian's coefficient-sum bound.
const DefaultToleranceFraction = 0.05

// minTolerance keeps the tolerance meaningful when the bound is zero
// (an empty Hamiltonian evaluates every state to exactly zero).
const minTolerance = 1e-9

// Config holds classifier tuning. The tolerance fraction is configurable
// because the rebound behavior it detects is sensitive to it.
type Config struct {
	ToleranceFraction float64
}

// Result carries the label and the quantities it was derived from.
type Result struct {
	Label          Label    `json:"label"`
	InitialEnergy  float64  `json:"initial_energy"`
	FinalEnergy    float64  `json:"final_energy"`
	MinEnergy      float64  `json:"min_energy"`
	MeanEnergy     float64  `json:"mean_energy"`
	GroundEnergy   *float64 `json:"ground_energy,omitempty"`
	Tolerance      float64  `json:"tolerance"`
	SkippedSamples int      `json:"skipped_samples"`
}

// Classifier labels trajectories against a configured tolerance.
type Classifier struct {
	cfg Config
	log zerolog.Logger
}

// New creates a classifier. A zero tolerance fraction falls back to the
// default.
func New(cfg Config, log zerolog.Logger) *Classifier {
	if cfg.ToleranceFraction <= 0 {
		cfg.ToleranceFraction = DefaultToleranceFraction
	}
	return &Classifier{
		cfg: cfg,
		log: log.With().Str("service", "classifier").Logger(),
	}
}

// Classify inspects a completed trajectory. The bound is the Hamiltonian's
// coefficient-sum bound used to scale the tolerance; ground is the analytic
// ground-state energy when one was computed, or nil to fall back to the
// trajectory's own minimum. Skipped samples are ignored; a trajectory with
// no usable samples is Indeterminate.
func (c *Classifier) Classify(traj trajectory.Trajectory, bound float64, ground *float64) Result {
	tolerance := c.cfg.ToleranceFraction * bound
	if tolerance < minTolerance {
		tolerance = minTolerance
	}

	result := Result{
		Label:          Indeterminate,
		GroundEnergy:   ground,
		Tolerance:      tolerance,
		SkippedSamples: traj.SkippedCount(),
	}

	initial, ok := traj.InitialEnergy()
	if !ok {
		c.log.Warn().Msg("Trajectory has no usable samples")
		return result
	}
	final, _ := traj.FinalEnergy()
	min, _ := traj.MinEnergy()

	result.InitialEnergy = initial
	result.FinalEnergy = final
	result.MinEnergy = min
	result.MeanEnergy = stat.Mean(traj.Energies(), nil)

	// The convergence target is the analytic ground state when supplied,
	// otherwise the lowest energy the sweep itself reached.
	target := min
	if ground != nil {
		target = *ground
	}

	switch {
	case final-target <= tolerance:
		result.Label = Converging
	case min < final-tolerance && abs(final-initial) <= tolerance:
		result.Label = Deadlocked
	}

	c.log.Debug().
		Str("label", string(result.Label)).
		Float64("initial", initial).
		Float64("final", final).
		Float64("min", min).
		Float64("tolerance", tolerance).
		Msg("Trajectory classified")

	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
