package hamiltonian

// GroundState finds the basis string with the minimum deterministic energy
// by exhaustive evaluation over all 2^N basis states. This is exponential in
// the unit count and relies on the register.MaxUnits cap; it is meant for
// the small registers this engine targets.
//
// The returned energy is a lower bound for the expectation energy of any
// superposition state, since an expectation is a convex combination of the
// deterministic basis energies.
func (h *Hamiltonian) GroundState() (uint64, float64, error) {
	if err := h.Validate(); err != nil {
		return 0, 0, err
	}

	var bestBasis uint64
	bestEnergy := h.EnergyOfBasis(0)

	dim := uint64(1) << uint(h.Units)
	for basis := uint64(1); basis < dim; basis++ {
		if e := h.EnergyOfBasis(basis); e < bestEnergy {
			bestEnergy = e
			bestBasis = basis
		}
	}

	return bestBasis, bestEnergy, nil
}
