package scenario

import (
	"errors"
	"math"

	"github.com/aristath/harmonia/internal/modules/hamiltonian"
	"github.com/aristath/harmonia/internal/modules/strategies"
)

// keChainCouplings is a 6-unit open chain with a uniform relational weight.
// With weight -1 every adjacent pair prefers agreement, which frustrates the
// alternating targeted intervention and rewards nothing the uniform sweep
// can hold on to.
func keChainCouplings(weight float64) []hamiltonian.Coupling {
	return []hamiltonian.Coupling{
		{I: 0, J: 1, Weight: weight},
		{I: 1, J: 2, Weight: weight},
		{I: 2, J: 3, Weight: weight},
		{I: 3, J: 4, Weight: weight},
		{I: 4, J: 5, Weight: weight},
	}
}

// ReferenceScenarios returns the built-in scenarios seeded on first start.
// They serve as known-answer fixtures: golden-water settles, fire-clash
// deadlocks, and ke-cycle reaches its exhaustively-searched ground state.
func ReferenceScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:          "ref-golden-water",
			Name:        "golden-water",
			Description: "Targeted alternating interventions on a generative 6-unit chain",
			Units:       6,
			Couplings:   keChainCouplings(-1),
			Strategy:    strategies.NameTargeted,
			ThetaStart:  0,
			ThetaEnd:    math.Pi,
			Steps:       11,
		},
		{
			ID:          "ref-fire-clash",
			Name:        "fire-clash",
			Description: "Uniform interventions on the same chain, dipping and rebounding",
			Units:       6,
			Couplings:   keChainCouplings(-1),
			Strategy:    strategies.NameUniform,
			ThetaStart:  0,
			ThetaEnd:    math.Pi,
			Steps:       11,
		},
		{
			ID:                "ref-ke-cycle",
			Name:              "ke-cycle",
			Description:       "Controlling chain with alternating-favorable couplings, classified against the exhaustive ground state",
			Units:             6,
			Couplings:         keChainCouplings(1),
			Strategy:          strategies.NameTargeted,
			ThetaStart:        0,
			ThetaEnd:          math.Pi / 2,
			Steps:             11,
			UseAnalyticGround: true,
		},
	}
}

// SeedReferenceScenarios stores any reference scenario that is not already
// present. Existing rows are left untouched so operator edits survive
// restarts.
func (s *Service) SeedReferenceScenarios() error {
	for _, sc := range ReferenceScenarios() {
		if _, err := s.scenarios.GetByName(sc.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := sc.Validate(); err != nil {
			return err
		}
		if err := s.scenarios.Save(sc); err != nil {
			return err
		}
		s.log.Info().Str("scenario", sc.Name).Msg("Seeded reference scenario")
	}
	return nil
}
