// Package ieee738 implements the heat-balance model for bare overhead
// conductors from IEEE Std 738-2012: the steady-state equilibrium solvers,
// the transient temperature integrator, and the convection, radiation, solar
// and resistance sub-models that feed them. Everything here is a pure
// function of its inputs; nothing is cached or mutated between calls.
//
// Units are SI throughout: metres, kilograms, seconds, watts per metre of
// conductor, amperes, degrees Celsius for temperatures and plain degrees for
// angles.
package ieee738

// ConductorProperties is the immutable physical and electrical description
// of a conductor.
type ConductorProperties struct {
	Diameter     float64 // outer diameter D0 [m]
	Mass         float64 // mass per unit length [kg/m]
	SpecificHeat float64 // [J/(kg·°C)]
	Absorptivity float64 // solar absorptivity, within [0, 1]
	Emissivity   float64 // within [0, 1]

	// Two reference points for the affine resistance model.
	TLow  float64 // [°C], must be below THigh
	THigh float64 // [°C]
	RLow  float64 // resistance at TLow [Ω/m]
	RHigh float64 // resistance at THigh [Ω/m]
}

func (p *ConductorProperties) Validate() error {
	if p.Diameter <= 0 {
		return ErrNonPositiveDiameter
	}
	if p.Mass <= 0 || p.SpecificHeat <= 0 {
		return ErrNonPositiveHeatCapacity
	}
	if p.Absorptivity < 0 || p.Absorptivity > 1 {
		return ErrAbsorptivityOutOfRange
	}
	if p.Emissivity < 0 || p.Emissivity > 1 {
		return ErrEmissivityOutOfRange
	}
	if p.RLow <= 0 || p.RHigh <= 0 {
		return ErrNonPositiveResistance
	}
	if p.TLow >= p.THigh {
		return ErrReversedReferencePoints
	}
	return nil
}

// Resistance returns the conductor resistance [Ω/m] at temperature T,
// interpolated linearly between the two reference points. Values of T
// outside [TLow, THigh] extrapolate on the same line; moderate overshoot is
// how the standard treats emergency temperatures, so no error is raised and
// bounding extreme inputs is the caller's job.
func (p ConductorProperties) Resistance(T float64) float64 {
	return p.RLow + (p.RHigh-p.RLow)/(p.THigh-p.TLow)*(T-p.TLow)
}

// HeatCapacity is the total heat capacity per unit length mCp [J/(m·°C)].
func (p ConductorProperties) HeatCapacity() float64 {
	return p.Mass * p.SpecificHeat
}
