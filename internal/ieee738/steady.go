package ieee738

import "math"

// maxTemperatureRise caps the upper-bracket expansion above ambient. A bare
// conductor past this is molten; failing to bracket below it means the
// requested current has no equilibrium in the model's range.
const maxTemperatureRise = 1500.0

// SolverConfig bounds the bracketed root search. Both fields are explicit:
// there are no hidden defaults that change solver behaviour between calls.
type SolverConfig struct {
	Tolerance     float64 // accepted residual magnitude [W/m]
	MaxIterations int
}

func (cfg *SolverConfig) Validate() error {
	if cfg.Tolerance <= 0 || cfg.MaxIterations <= 0 {
		return ErrInvalidSolverConfig
	}
	return nil
}

// TemperatureForCurrent finds the steady-state conductor temperature [°C]
// under the given current by bisection on the heat-balance residual. The
// bracket starts at ambient, where the residual cannot be positive, and the
// upper bound expands geometrically until the residual changes sign.
// Returns ErrNoSolution when no sign change appears within the expansion
// cap, ErrNotConverged when MaxIterations bisections fail to reach
// Tolerance.
func TemperatureForCurrent(p ConductorProperties, c EnvironmentalConditions, current float64, cfg SolverConfig) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	lo := c.AmbientTemperature
	rise := 10.0
	hi := lo + rise
	for HeatBalanceResidual(p, c, current, hi) <= 0 {
		rise *= 2
		if rise > maxTemperatureRise {
			return 0, ErrNoSolution
		}
		hi = lo + rise
	}

	for i := 0; i < cfg.MaxIterations; i++ {
		mid := 0.5 * (lo + hi)
		r := HeatBalanceResidual(p, c, current, mid)
		if math.Abs(r) < cfg.Tolerance {
			return mid, nil
		}
		if r > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	return 0, ErrNotConverged
}

// CurrentForTemperature returns the steady-state current [A] that holds the
// conductor at temperature T. At fixed T the balance is explicitly solvable:
// I = sqrt((qc + qr − qs) / R). When the losses at T are already below the
// solar gain — T is reached with no current at all — there is no positive
// solution and ErrNoSolution is returned. That is a legitimate "no solution"
// case, not a numerical failure.
func CurrentForTemperature(p ConductorProperties, c EnvironmentalConditions, T float64) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}

	r := p.Resistance(T)
	if r <= 0 {
		return 0, ErrNoSolution
	}
	net := ConvectionLoss(p, c, T) + RadiationLoss(p, c, T) - SolarGain(p, c)
	if net < 0 {
		return 0, ErrNoSolution
	}
	return math.Sqrt(net / r), nil
}
