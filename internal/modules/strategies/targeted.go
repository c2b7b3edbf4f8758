package strategies

import "github.com/aristath/harmonia/internal/modules/register"

// Targeted rotates odd-indexed units by +theta and even-indexed units by
// -theta about the Y axis. As theta grows this drives neighbouring units
// toward opposite poles, the alternating pattern that relaxes an
// agreement-penalizing coupling chain.
type Targeted struct{}

// Name returns the strategy identifier.
func (Targeted) Name() string { return NameTargeted }

// Operations emits one rotation per unit, alternating the sign of the angle
// with the unit parity.
func (Targeted) Operations(theta float64, n int) []Operation {
	ops := make([]Operation, 0, n)
	for unit := 0; unit < n; unit++ {
		angle := theta
		if unit%2 == 0 {
			angle = -theta
		}
		ops = append(ops, Operation{Unit: unit, Axis: register.AxisY, Angle: angle})
	}
	return ops
}
