// Package atmosphere resolves the ambient inputs the heat-balance engine
// consumes: air properties as a function of elevation and boundary-layer
// temperature, and the solar geometry and heat-flux tables from the
// standard. All fits are the SI-unit ones.
package atmosphere

import "math"

// FilmTemperature is the boundary-layer mean (Ts+Ta)/2 [°C] at which air
// properties are evaluated.
func FilmTemperature(surface, ambient float64) float64 {
	return (surface + ambient) / 2
}

// AirDensity [kg/m³] at an elevation above sea level [m] and film
// temperature [°C].
func AirDensity(elevation, film float64) float64 {
	return (1.293 - 1.525e-4*elevation + 6.379e-9*elevation*elevation) /
		(1 + 0.00367*film)
}

// AirViscosity is the dynamic viscosity [kg/(m·s)] at film temperature [°C].
func AirViscosity(film float64) float64 {
	return 1.458e-6 * math.Pow(film+273, 1.5) / (film + 383.4)
}

// AirConductivity is the thermal conductivity [W/(m·°C)] at film
// temperature [°C].
func AirConductivity(film float64) float64 {
	return 2.424e-2 + 7.477e-5*film - 4.407e-9*film*film
}
