package ieee738

import "time"

// ThermalState is one sample of a transient temperature trajectory.
type ThermalState struct {
	Elapsed     time.Duration
	Temperature float64 // [°C]
}

// Integrator steps the conductor temperature forward in time under a fixed
// current, using explicit Euler on the heat-balance equation. The step must
// be small against the thermal time constant mCp / (dq/dT); the integrator
// neither auto-selects dt nor detects instability, that is the caller's
// responsibility.
type Integrator struct {
	props   ConductorProperties
	cond    EnvironmentalConditions
	current float64
	initial float64
	dt      time.Duration

	state ThermalState
}

// NewIntegrator starts a trajectory at temperature T0 under the stepped
// current.
func NewIntegrator(p ConductorProperties, c EnvironmentalConditions, current, T0 float64, dt time.Duration) (*Integrator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if dt <= 0 {
		return nil, ErrNonPositiveStep
	}
	it := &Integrator{props: p, cond: c, current: current, initial: T0, dt: dt}
	it.Reset()
	return it, nil
}

// State returns the current sample without advancing.
func (it *Integrator) State() ThermalState {
	return it.state
}

// Next advances one step and returns the new sample.
func (it *Integrator) Next() ThermalState {
	rate := TemperatureDerivative(it.props, it.cond, it.current, it.state.Temperature)
	it.state = ThermalState{
		Elapsed:     it.state.Elapsed + it.dt,
		Temperature: it.state.Temperature + rate*it.dt.Seconds(),
	}
	return it.state
}

// Reset rewinds the trajectory to its initial sample.
func (it *Integrator) Reset() {
	it.state = ThermalState{Temperature: it.initial}
}

// TemperatureDerivative is dT/dt [°C/s]: net heat into the conductor over
// its heat capacity per unit length.
func TemperatureDerivative(p ConductorProperties, c EnvironmentalConditions, current, T float64) float64 {
	return (current*current*p.Resistance(T) + SolarGain(p, c) -
		ConvectionLoss(p, c, T) - RadiationLoss(p, c, T)) / p.HeatCapacity()
}

// Integrate returns steps+1 samples of the trajectory from T0 after a step
// change to the given current, including the initial sample at t=0.
func Integrate(p ConductorProperties, c EnvironmentalConditions, current, T0 float64, dt time.Duration, steps int) ([]ThermalState, error) {
	if steps < 0 {
		return nil, ErrNegativeStepCount
	}
	it, err := NewIntegrator(p, c, current, T0, dt)
	if err != nil {
		return nil, err
	}
	out := make([]ThermalState, 0, steps+1)
	out = append(out, it.State())
	for i := 0; i < steps; i++ {
		out = append(out, it.Next())
	}
	return out, nil
}

// SettlingTime steps the trajectory until the temperature crosses target and
// returns the elapsed time at the crossing sample. The crossing direction is
// inferred from whether target lies above or below T0. Returns ErrNotSettled
// when maxSteps is exhausted first.
func SettlingTime(p ConductorProperties, c EnvironmentalConditions, current, T0, target float64, dt time.Duration, maxSteps int) (time.Duration, error) {
	it, err := NewIntegrator(p, c, current, T0, dt)
	if err != nil {
		return 0, err
	}
	rising := target >= T0
	for i := 0; i < maxSteps; i++ {
		s := it.Next()
		if rising && s.Temperature >= target {
			return s.Elapsed, nil
		}
		if !rising && s.Temperature <= target {
			return s.Elapsed, nil
		}
	}
	return 0, ErrNotSettled
}
