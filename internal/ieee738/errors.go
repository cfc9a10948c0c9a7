package ieee738

import "errors"

var (
	ErrNonPositiveDiameter     = errors.New("conductor diameter must be positive")
	ErrNonPositiveHeatCapacity = errors.New("conductor mass and specific heat must be positive")
	ErrAbsorptivityOutOfRange  = errors.New("solar absorptivity must be within [0, 1]")
	ErrEmissivityOutOfRange    = errors.New("emissivity must be within [0, 1]")
	ErrNonPositiveResistance   = errors.New("reference resistances must be positive")
	ErrReversedReferencePoints = errors.New("low reference temperature must be below high reference temperature")

	ErrNegativeWindSpeed      = errors.New("wind speed must not be negative")
	ErrNonPositiveAirProperty = errors.New("air density, viscosity and thermal conductivity must be positive")
	ErrNegativeProjectedArea  = errors.New("projected area must not be negative")

	ErrInvalidSolverConfig = errors.New("solver tolerance and max iterations must be positive")
	ErrNotConverged        = errors.New("solver exhausted max iterations without meeting tolerance")
	ErrNoSolution          = errors.New("no physically valid solution for the requested target")
	ErrNotSettled          = errors.New("settling-time search exhausted its step budget")

	ErrNonPositiveStep   = errors.New("time step must be positive")
	ErrNegativeStepCount = errors.New("step count must not be negative")
)
