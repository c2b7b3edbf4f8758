// Package strategies provides intervention strategies: deterministic,
// stateless policies that map an intensity parameter to the ordered list of
// rotations applied to a fresh register before its tension is measured.
//
// New strategies are added by implementing the Strategy interface; the
// trajectory runner never branches on strategy names.
package strategies

import (
	"errors"
	"fmt"

	"github.com/aristath/harmonia/internal/modules/register"
)

// ErrUnknownStrategy is returned when a strategy name cannot be resolved.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy names.
const (
	NameTargeted = "targeted"
	NameUniform  = "uniform"
)

// Operation is one single-unit rotation emitted by a strategy.
type Operation struct {
	Unit  int           `json:"unit"`
	Axis  register.Axis `json:"axis"`
	Angle float64       `json:"angle"`
}

// Strategy maps an intensity parameter theta and a unit count to an ordered
// list of operations. Implementations must be deterministic and
// side-effect-free; the runner re-invokes them fresh at every sample.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Operations returns the rotations to apply for the given intensity.
	Operations(theta float64, n int) []Operation
}

// ForName resolves a strategy by its configured name.
func ForName(name string) (Strategy, error) {
	switch name {
	case NameTargeted:
		return Targeted{}, nil
	case NameUniform:
		return Uniform{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Names returns the known strategy names.
func Names() []string {
	return []string{NameTargeted, NameUniform}
}
