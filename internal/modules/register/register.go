// Package register implements the state register: a normalized complex
// amplitude vector over the 2^N basis states of N two-level units, together
// with the gate operations that evolve it.
package register

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// MaxUnits bounds the register size. The amplitude vector is dense (2^N
// entries), so anything beyond this is intractable on purpose.
const MaxUnits = 20

// normTolerance is the allowed drift of the squared norm before the
// register renormalizes itself after an operation.
const normTolerance = 1e-9

var (
	// ErrInvalidUnitIndex is returned when an operation references a unit
	// outside [0, N-1].
	ErrInvalidUnitIndex = errors.New("invalid unit index")

	// ErrInvalidUnitCount is returned when a register is created with a
	// non-positive unit count or one above MaxUnits.
	ErrInvalidUnitCount = errors.New("invalid unit count")

	// ErrNumericalInstability is returned when amplitudes become non-finite
	// or the norm collapses beyond recovery.
	ErrNumericalInstability = errors.New("numerical instability")
)

// Axis identifies the rotation axis of a single-unit gate.
type Axis int

const (
	// AxisX rotates within the unit's subspace with imaginary mixing.
	AxisX Axis = iota
	// AxisY rotates within the unit's subspace with real mixing.
	AxisY
)

// String returns a human-readable name for the axis.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	default:
		return "Unknown"
	}
}

// ParseAxis converts an axis name ("X" or "Y") to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "X", "x":
		return AxisX, nil
	case "Y", "y":
		return AxisY, nil
	default:
		return 0, fmt.Errorf("unknown axis %q", s)
	}
}

// Register holds the amplitude vector for N two-level units.
// The squared magnitudes always sum to 1 within normTolerance.
type Register struct {
	units int
	amps  []complex128
}

// New creates a register of n units in the equal superposition: every basis
// state carries the same real amplitude 1/sqrt(2^n).
func New(n int) (*Register, error) {
	if n <= 0 || n > MaxUnits {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidUnitCount, n, MaxUnits)
	}

	dim := 1 << n
	amps := make([]complex128, dim)
	amp := complex(1.0/math.Sqrt(float64(dim)), 0)
	for i := range amps {
		amps[i] = amp
	}

	return &Register{units: n, amps: amps}, nil
}

// NewBasis creates a register of n units in the deterministic basis state
// whose bits are given by basis (bit i of basis is the state of unit i).
func NewBasis(n int, basis uint64) (*Register, error) {
	if n <= 0 || n > MaxUnits {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidUnitCount, n, MaxUnits)
	}
	if basis >= 1<<uint(n) {
		return nil, fmt.Errorf("%w: basis state %d out of range for %d units", ErrInvalidUnitIndex, basis, n)
	}

	amps := make([]complex128, 1<<n)
	amps[basis] = 1
	return &Register{units: n, amps: amps}, nil
}

// Units returns the number of two-level units in the register.
func (r *Register) Units() int {
	return r.units
}

// Dim returns the dimension of the amplitude vector (2^N).
func (r *Register) Dim() int {
	return len(r.amps)
}

// Amplitudes returns a copy of the amplitude vector.
func (r *Register) Amplitudes() []complex128 {
	out := make([]complex128, len(r.amps))
	copy(out, r.amps)
	return out
}

// Clone returns an independent copy of the register.
func (r *Register) Clone() *Register {
	return &Register{units: r.units, amps: r.Amplitudes()}
}

// ApplyRotation rotates the named unit's two-level subspace by angle about
// the given axis. The rotation mixes amplitude pairs that differ only in the
// unit's bit, across all settings of the other N-1 bits.
func (r *Register) ApplyRotation(unit int, axis Axis, angle float64) error {
	if unit < 0 || unit >= r.units {
		return fmt.Errorf("%w: unit %d (register has %d units)", ErrInvalidUnitIndex, unit, r.units)
	}

	c := complex(math.Cos(angle/2), 0)
	bit := 1 << unit

	switch axis {
	case AxisY:
		s := complex(math.Sin(angle/2), 0)
		for i := range r.amps {
			if i&bit == 0 {
				j := i | bit
				a0, a1 := r.amps[i], r.amps[j]
				r.amps[i] = c*a0 - s*a1
				r.amps[j] = s*a0 + c*a1
			}
		}
	case AxisX:
		js := complex(0, -math.Sin(angle/2))
		for i := range r.amps {
			if i&bit == 0 {
				j := i | bit
				a0, a1 := r.amps[i], r.amps[j]
				r.amps[i] = c*a0 + js*a1
				r.amps[j] = js*a0 + c*a1
			}
		}
	default:
		return fmt.Errorf("unknown rotation axis %d", axis)
	}

	return r.settle()
}

// ApplyEntangle applies a directed controlled bit-flip: for every basis state
// where the control unit's bit is 1, the amplitudes of the pair differing
// only in the target unit's bit are swapped. The operation is directed;
// apply it in both directions when an undirected interaction is intended.
func (r *Register) ApplyEntangle(control, target int) error {
	if control < 0 || control >= r.units {
		return fmt.Errorf("%w: control %d (register has %d units)", ErrInvalidUnitIndex, control, r.units)
	}
	if target < 0 || target >= r.units {
		return fmt.Errorf("%w: target %d (register has %d units)", ErrInvalidUnitIndex, target, r.units)
	}
	if control == target {
		return fmt.Errorf("%w: control and target are both unit %d", ErrInvalidUnitIndex, control)
	}

	cBit := 1 << control
	tBit := 1 << target
	for i := range r.amps {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			r.amps[i], r.amps[j] = r.amps[j], r.amps[i]
		}
	}

	return r.settle()
}

// Distribution returns the probability mass (squared magnitude) of each of
// the 2^N basis states. It never mutates the register.
func (r *Register) Distribution() []float64 {
	probs := make([]float64, len(r.amps))
	for i, a := range r.amps {
		re, im := real(a), imag(a)
		probs[i] = re*re + im*im
	}
	return probs
}

// settle verifies the register after an operation: non-finite amplitudes are
// fatal, and norm drift beyond normTolerance is absorbed by renormalizing.
func (r *Register) settle() error {
	norm := 0.0
	for _, a := range r.amps {
		if !isFinite(a) {
			return fmt.Errorf("%w: non-finite amplitude after operation", ErrNumericalInstability)
		}
		re, im := real(a), imag(a)
		norm += re*re + im*im
	}

	if math.Abs(norm-1) <= normTolerance {
		return nil
	}
	if norm <= 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
		return fmt.Errorf("%w: norm %v is unrecoverable", ErrNumericalInstability, norm)
	}

	inv := complex(1/math.Sqrt(norm), 0)
	for i := range r.amps {
		r.amps[i] *= inv
	}
	return nil
}

func isFinite(a complex128) bool {
	return !cmplx.IsNaN(a) && !cmplx.IsInf(a)
}
