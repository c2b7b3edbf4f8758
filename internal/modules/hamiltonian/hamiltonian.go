// Package hamiltonian defines the tension function over register
// configurations: a weighted sum of pairwise coupling terms and per-unit
// bias terms, evaluated as an expectation value against a state register.
package hamiltonian

import (
	"fmt"
	"math"

	"github.com/aristath/harmonia/internal/modules/register"
)

// Coupling is a weighted pairwise interaction between two units.
// A positive weight is a reinforcing (sheng) relation; a negative weight is
// a clashing (ke) relation. Agreement of the two units contributes +Weight
// to the energy, disagreement contributes -Weight.
type Coupling struct {
	I      int     `json:"i" msgpack:"i"`
	J      int     `json:"j" msgpack:"j"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// Bias is a per-unit external field term. A unit in state 0 contributes
// +Weight, a unit in state 1 contributes -Weight.
type Bias struct {
	Unit   int     `json:"unit" msgpack:"unit"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// Hamiltonian is the complete tension function for a register of N units.
// It is immutable once a scenario is defined; the evaluator only reads it.
type Hamiltonian struct {
	Units     int        `json:"units"`
	Couplings []Coupling `json:"couplings"`
	Biases    []Bias     `json:"biases"`
}

// New creates a validated Hamiltonian.
func New(units int, couplings []Coupling, biases []Bias) (*Hamiltonian, error) {
	h := &Hamiltonian{Units: units, Couplings: couplings, Biases: biases}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Validate checks every coupling and bias against the unit range.
// It fails with ErrInvalidUnitIndex before any evaluation can happen.
func (h *Hamiltonian) Validate() error {
	if h.Units <= 0 || h.Units > register.MaxUnits {
		return fmt.Errorf("%w: %d (must be 1..%d)", register.ErrInvalidUnitCount, h.Units, register.MaxUnits)
	}
	for _, c := range h.Couplings {
		if c.I < 0 || c.I >= h.Units {
			return fmt.Errorf("%w: coupling (%d,%d) references unit %d with %d units", register.ErrInvalidUnitIndex, c.I, c.J, c.I, h.Units)
		}
		if c.J < 0 || c.J >= h.Units {
			return fmt.Errorf("%w: coupling (%d,%d) references unit %d with %d units", register.ErrInvalidUnitIndex, c.I, c.J, c.J, h.Units)
		}
		if c.I == c.J {
			return fmt.Errorf("%w: coupling (%d,%d) is a self-interaction", register.ErrInvalidUnitIndex, c.I, c.J)
		}
	}
	for _, b := range h.Biases {
		if b.Unit < 0 || b.Unit >= h.Units {
			return fmt.Errorf("%w: bias references unit %d with %d units", register.ErrInvalidUnitIndex, b.Unit, h.Units)
		}
	}
	return nil
}

// Bound returns the sum of absolute coefficients. The energy of any state is
// bounded by [-Bound, +Bound].
func (h *Hamiltonian) Bound() float64 {
	bound := 0.0
	for _, c := range h.Couplings {
		bound += math.Abs(c.Weight)
	}
	for _, b := range h.Biases {
		bound += math.Abs(b.Weight)
	}
	return bound
}

// Energy evaluates the expectation energy of the register:
//
//	E = sum_c c.Weight * <Z_i Z_j>  +  sum_b b.Weight * <Z_u>
//
// where <Z_i Z_j> weighs each basis state by +1 when bits i and j agree and
// -1 when they differ, and <Z_u> weighs +1 for bit 0 and -1 for bit 1.
// An empty coupling and bias set yields energy 0.
func (h *Hamiltonian) Energy(reg *register.Register) (float64, error) {
	if err := h.Validate(); err != nil {
		return 0, err
	}
	if reg.Units() != h.Units {
		return 0, fmt.Errorf("%w: register has %d units, hamiltonian expects %d", register.ErrInvalidUnitIndex, reg.Units(), h.Units)
	}

	probs := reg.Distribution()
	energy := 0.0

	for _, c := range h.Couplings {
		iBit := 1 << c.I
		jBit := 1 << c.J
		exp := 0.0
		for state, p := range probs {
			if (state&iBit == 0) == (state&jBit == 0) {
				exp += p
			} else {
				exp -= p
			}
		}
		energy += c.Weight * exp
	}

	for _, b := range h.Biases {
		uBit := 1 << b.Unit
		exp := 0.0
		for state, p := range probs {
			if state&uBit == 0 {
				exp += p
			} else {
				exp -= p
			}
		}
		energy += b.Weight * exp
	}

	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return 0, fmt.Errorf("%w: energy is non-finite", register.ErrNumericalInstability)
	}

	return energy, nil
}

// EnergyOfBasis evaluates the Hamiltonian deterministically on a single
// basis string (bit u of basis is the state of unit u).
func (h *Hamiltonian) EnergyOfBasis(basis uint64) float64 {
	energy := 0.0
	for _, c := range h.Couplings {
		if (basis>>uint(c.I))&1 == (basis>>uint(c.J))&1 {
			energy += c.Weight
		} else {
			energy -= c.Weight
		}
	}
	for _, b := range h.Biases {
		if (basis>>uint(b.Unit))&1 == 0 {
			energy += b.Weight
		} else {
			energy -= b.Weight
		}
	}
	return energy
}
