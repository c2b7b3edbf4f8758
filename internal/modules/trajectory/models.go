// Package trajectory runs intensity sweeps: for each theta in a grid it
// prepares a fresh register, applies a strategy's operations, evaluates the
// Hamiltonian energy, and records the ordered (theta, energy) sequence.
package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Sample is one recorded point of a sweep. A skipped sample marks a theta
// where evaluation failed recoverably; the reason carries the diagnostic.
type Sample struct {
	Theta   float64 `json:"theta" msgpack:"theta"`
	Energy  float64 `json:"energy" msgpack:"energy"`
	Skipped bool    `json:"skipped,omitempty" msgpack:"skipped"`
	Reason  string  `json:"reason,omitempty" msgpack:"reason,omitempty"`

	// fatal distinguishes configuration failures from recoverable skips
	// while a sweep is in flight. Never serialized.
	fatal error
}

// Trajectory is the ordered sequence of samples of one completed sweep.
// It is append-only during the sweep and immutable afterwards.
type Trajectory []Sample

// SkippedCount returns the number of samples that were marked skipped.
func (t Trajectory) SkippedCount() int {
	count := 0
	for _, s := range t {
		if s.Skipped {
			count++
		}
	}
	return count
}

// Energies returns the energies of all non-skipped samples in theta order.
func (t Trajectory) Energies() []float64 {
	out := make([]float64, 0, len(t))
	for _, s := range t {
		if !s.Skipped {
			out = append(out, s.Energy)
		}
	}
	return out
}

// InitialEnergy returns the energy of the first non-skipped sample.
func (t Trajectory) InitialEnergy() (float64, bool) {
	for _, s := range t {
		if !s.Skipped {
			return s.Energy, true
		}
	}
	return 0, false
}

// FinalEnergy returns the energy of the last non-skipped sample.
func (t Trajectory) FinalEnergy() (float64, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if !t[i].Skipped {
			return t[i].Energy, true
		}
	}
	return 0, false
}

// MinEnergy returns the minimum energy over all non-skipped samples.
func (t Trajectory) MinEnergy() (float64, bool) {
	energies := t.Energies()
	if len(energies) == 0 {
		return 0, false
	}
	return floats.Min(energies), true
}

// Thetas builds a linearly spaced intensity grid of the given number of
// steps over [start, end].
func Thetas(start, end float64, steps int) ([]float64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("theta range must have at least one step, got %d", steps)
	}
	if steps == 1 {
		return []float64{start}, nil
	}
	return floats.Span(make([]float64, steps), start, end), nil
}
