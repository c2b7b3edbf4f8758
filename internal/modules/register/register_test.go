package register

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EqualSuperposition(t *testing.T) {
	reg, err := New(6)
	require.NoError(t, err)

	assert.Equal(t, 6, reg.Units())
	assert.Equal(t, 64, reg.Dim())

	expected := 1.0 / math.Sqrt(64)
	for i, a := range reg.Amplitudes() {
		assert.InDelta(t, expected, real(a), 1e-12, "amplitude %d real part", i)
		assert.InDelta(t, 0, imag(a), 1e-12, "amplitude %d imaginary part", i)
	}
}

func TestNew_InvalidUnitCount(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"zero units", 0},
		{"negative units", -3},
		{"above maximum", MaxUnits + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.n)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidUnitCount)
		})
	}
}

func TestNewBasis(t *testing.T) {
	reg, err := NewBasis(3, 0b101)
	require.NoError(t, err)

	probs := reg.Distribution()
	for i, p := range probs {
		if i == 0b101 {
			assert.InDelta(t, 1.0, p, 1e-12)
		} else {
			assert.InDelta(t, 0.0, p, 1e-12)
		}
	}
}

func TestApplyRotation_InvalidUnit(t *testing.T) {
	reg, err := New(4)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.ApplyRotation(-1, AxisY, 0.5), ErrInvalidUnitIndex)
	assert.ErrorIs(t, reg.ApplyRotation(4, AxisY, 0.5), ErrInvalidUnitIndex)
}

func TestApplyRotation_YFlipsBasisState(t *testing.T) {
	// A full Y rotation by pi takes |0> to |1> for the rotated unit.
	reg, err := NewBasis(2, 0b00)
	require.NoError(t, err)

	require.NoError(t, reg.ApplyRotation(0, AxisY, math.Pi))

	probs := reg.Distribution()
	assert.InDelta(t, 1.0, probs[0b01], 1e-12)
	assert.InDelta(t, 0.0, probs[0b00], 1e-12)
}

func TestApplyRotation_XPreservesProbabilitiesOfPlusState(t *testing.T) {
	// The equal superposition is an eigenstate of X up to phase, so an X
	// rotation must leave the distribution uniform.
	reg, err := New(3)
	require.NoError(t, err)

	require.NoError(t, reg.ApplyRotation(1, AxisX, 1.234))

	for i, p := range reg.Distribution() {
		assert.InDelta(t, 1.0/8.0, p, 1e-12, "basis state %d", i)
	}
}

func TestApplyRotation_NaNAngleIsNumericalInstability(t *testing.T) {
	reg, err := New(2)
	require.NoError(t, err)

	err = reg.ApplyRotation(0, AxisY, math.NaN())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumericalInstability)
}

func TestApplyEntangle(t *testing.T) {
	t.Run("control set flips target", func(t *testing.T) {
		reg, err := NewBasis(2, 0b01) // unit 0 is 1, unit 1 is 0
		require.NoError(t, err)

		require.NoError(t, reg.ApplyEntangle(0, 1))

		probs := reg.Distribution()
		assert.InDelta(t, 1.0, probs[0b11], 1e-12)
	})

	t.Run("control clear leaves state alone", func(t *testing.T) {
		reg, err := NewBasis(2, 0b10) // unit 0 is 0, unit 1 is 1
		require.NoError(t, err)

		require.NoError(t, reg.ApplyEntangle(0, 1))

		probs := reg.Distribution()
		assert.InDelta(t, 1.0, probs[0b10], 1e-12)
	})

	t.Run("invalid indices", func(t *testing.T) {
		reg, err := New(3)
		require.NoError(t, err)

		assert.ErrorIs(t, reg.ApplyEntangle(3, 0), ErrInvalidUnitIndex)
		assert.ErrorIs(t, reg.ApplyEntangle(0, -1), ErrInvalidUnitIndex)
		assert.ErrorIs(t, reg.ApplyEntangle(1, 1), ErrInvalidUnitIndex)
	})
}

func TestDistribution_SumsToOne(t *testing.T) {
	// Any sequence of valid operations must preserve total probability
	// within tolerance.
	reg, err := New(5)
	require.NoError(t, err)

	ops := []struct {
		unit  int
		axis  Axis
		angle float64
	}{
		{0, AxisY, 0.3},
		{1, AxisX, 1.1},
		{2, AxisY, -2.4},
		{3, AxisX, math.Pi / 3},
		{4, AxisY, 0.77},
	}
	for _, op := range ops {
		require.NoError(t, reg.ApplyRotation(op.unit, op.axis, op.angle))
	}
	require.NoError(t, reg.ApplyEntangle(0, 1))
	require.NoError(t, reg.ApplyEntangle(3, 4))

	total := 0.0
	for _, p := range reg.Distribution() {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestClone_IsIndependent(t *testing.T) {
	reg, err := New(2)
	require.NoError(t, err)

	clone := reg.Clone()
	require.NoError(t, clone.ApplyRotation(0, AxisY, math.Pi))

	// Original must still be the equal superposition.
	for _, p := range reg.Distribution() {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
}

func TestParseAxis(t *testing.T) {
	axis, err := ParseAxis("Y")
	require.NoError(t, err)
	assert.Equal(t, AxisY, axis)

	axis, err = ParseAxis("x")
	require.NoError(t, err)
	assert.Equal(t, AxisX, axis)

	_, err = ParseAxis("Z")
	assert.Error(t, err)
}
