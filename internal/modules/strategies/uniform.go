package strategies

import "github.com/aristath/harmonia/internal/modules/register"

// Uniform rotates every unit by the same angle theta about the Y axis.
// The intervention treats all units identically, so neighbouring units
// always move in lockstep.
type Uniform struct{}

// Name returns the strategy identifier.
func (Uniform) Name() string { return NameUniform }

// Operations emits the same rotation for every unit.
func (Uniform) Operations(theta float64, n int) []Operation {
	ops := make([]Operation, 0, n)
	for unit := 0; unit < n; unit++ {
		ops = append(ops, Operation{Unit: unit, Axis: register.AxisY, Angle: theta})
	}
	return ops
}
