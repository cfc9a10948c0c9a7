package ieee738

import "math"

// SolarGain returns qs [W/m], independent of conductor temperature. A sun
// below the horizon makes the raw product negative; that is clamped to zero
// here since a conductor cannot shed heat to the sun.
func SolarGain(p ConductorProperties, c EnvironmentalConditions) float64 {
	qs := p.Absorptivity * c.SolarFluxIntensity *
		math.Sin(c.SolarIncidenceAngle*math.Pi/180) * c.ProjectedArea
	if qs < 0 {
		return 0
	}
	return qs
}
