package hamiltonian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/harmonia/internal/modules/register"
)

// keChain builds the reference clash chain: n units with adjacent couplings
// of the given weight and no biases.
func keChain(t *testing.T, n int, weight float64) *Hamiltonian {
	t.Helper()
	couplings := make([]Coupling, 0, n-1)
	for i := 0; i < n-1; i++ {
		couplings = append(couplings, Coupling{I: i, J: i + 1, Weight: weight})
	}
	h, err := New(n, couplings, nil)
	require.NoError(t, err)
	return h
}

func TestValidate_InvalidUnitIndex(t *testing.T) {
	tests := []struct {
		name string
		h    Hamiltonian
	}{
		{"coupling beyond range", Hamiltonian{Units: 6, Couplings: []Coupling{{I: 6, J: 0, Weight: 1.0}}}},
		{"negative coupling index", Hamiltonian{Units: 6, Couplings: []Coupling{{I: 0, J: -1, Weight: 1.0}}}},
		{"self coupling", Hamiltonian{Units: 6, Couplings: []Coupling{{I: 2, J: 2, Weight: 1.0}}}},
		{"bias beyond range", Hamiltonian{Units: 4, Biases: []Bias{{Unit: 4, Weight: 0.5}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.h.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, register.ErrInvalidUnitIndex)
		})
	}
}

func TestEnergy_EmptyHamiltonianIsZero(t *testing.T) {
	h, err := New(6, nil, nil)
	require.NoError(t, err)

	reg, err := register.New(6)
	require.NoError(t, err)

	energy, err := h.Energy(reg)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, energy, 1e-12)
}

func TestEnergy_EqualSuperpositionIsZero(t *testing.T) {
	// Every Z expectation vanishes on the equal superposition, so the energy
	// is zero for any coefficients.
	h, err := New(4,
		[]Coupling{{I: 0, J: 1, Weight: -1}, {I: 1, J: 2, Weight: 2.5}, {I: 2, J: 3, Weight: 0.3}},
		[]Bias{{Unit: 0, Weight: 1.1}, {Unit: 3, Weight: -0.7}},
	)
	require.NoError(t, err)

	reg, err := register.New(4)
	require.NoError(t, err)

	energy, err := h.Energy(reg)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, energy, 1e-9)
}

func TestEnergy_SingleEdgeOnBasisStates(t *testing.T) {
	tests := []struct {
		name   string
		basis  uint64
		weight float64
		want   float64
	}{
		{"agreeing units, positive weight", 0b00, 1.5, 1.5},
		{"agreeing units (both 1), positive weight", 0b11, 1.5, 1.5},
		{"differing units, positive weight", 0b01, 1.5, -1.5},
		{"agreeing units, negative weight", 0b11, -2.0, -2.0},
		{"differing units, negative weight", 0b10, -2.0, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(2, []Coupling{{I: 0, J: 1, Weight: tt.weight}}, nil)
			require.NoError(t, err)

			reg, err := register.NewBasis(2, tt.basis)
			require.NoError(t, err)

			energy, err := h.Energy(reg)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, energy, 1e-12)

			// The deterministic evaluation must agree exactly.
			assert.InDelta(t, tt.want, h.EnergyOfBasis(tt.basis), 1e-12)
		})
	}
}

func TestEnergy_BiasSign(t *testing.T) {
	h, err := New(2, nil, []Bias{{Unit: 1, Weight: 0.8}})
	require.NoError(t, err)

	reg, err := register.NewBasis(2, 0b00)
	require.NoError(t, err)
	energy, err := h.Energy(reg)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, energy, 1e-12, "bit 0 contributes +weight")

	reg, err = register.NewBasis(2, 0b10)
	require.NoError(t, err)
	energy, err = h.Energy(reg)
	require.NoError(t, err)
	assert.InDelta(t, -0.8, energy, 1e-12, "bit 1 contributes -weight")
}

func TestEnergy_BoundedByCoefficientSum(t *testing.T) {
	h := keChain(t, 6, -1)
	assert.InDelta(t, 5.0, h.Bound(), 1e-12)

	reg, err := register.New(6)
	require.NoError(t, err)
	require.NoError(t, reg.ApplyRotation(0, register.AxisY, 0.7))
	require.NoError(t, reg.ApplyRotation(3, register.AxisX, 1.9))
	require.NoError(t, reg.ApplyEntangle(0, 1))

	energy, err := h.Energy(reg)
	require.NoError(t, err)
	assert.LessOrEqual(t, math.Abs(energy), h.Bound()+1e-9)
}

func TestGroundState_ExhaustiveSearch(t *testing.T) {
	t.Run("reinforcing chain favors alternation", func(t *testing.T) {
		h := keChain(t, 6, 1)

		_, ground, err := h.GroundState()
		require.NoError(t, err)
		assert.InDelta(t, -5.0, ground, 1e-12)
	})

	t.Run("clashing chain favors alignment", func(t *testing.T) {
		h := keChain(t, 6, -1)

		basis, ground, err := h.GroundState()
		require.NoError(t, err)
		assert.InDelta(t, -5.0, ground, 1e-12)
		// Both all-0 and all-1 are ground; the scan returns the first found.
		assert.Contains(t, []uint64{0b000000, 0b111111}, basis)
	})

	t.Run("superposition energy is bounded below by ground", func(t *testing.T) {
		h, err := New(4,
			[]Coupling{{I: 0, J: 1, Weight: -1}, {I: 1, J: 2, Weight: 1}, {I: 2, J: 3, Weight: -0.5}},
			[]Bias{{Unit: 0, Weight: 0.25}},
		)
		require.NoError(t, err)

		_, ground, err := h.GroundState()
		require.NoError(t, err)

		reg, err := register.New(4)
		require.NoError(t, err)
		require.NoError(t, reg.ApplyRotation(1, register.AxisY, 1.1))
		require.NoError(t, reg.ApplyRotation(2, register.AxisY, -0.4))
		require.NoError(t, reg.ApplyEntangle(1, 2))

		energy, err := h.Energy(reg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, energy, ground-1e-9)
	})
}

func TestEnergy_RegisterSizeMismatch(t *testing.T) {
	h, err := New(3, nil, nil)
	require.NoError(t, err)

	reg, err := register.New(2)
	require.NoError(t, err)

	_, err = h.Energy(reg)
	assert.Error(t, err)
}
