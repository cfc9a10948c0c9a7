package ieee738

// EnvironmentalConditions is the immutable ambient weather and solar state
// around a conductor. Air properties and the solar inputs arrive already
// resolved; the atmosphere package derives them from site elevation, film
// temperature and time of day.
type EnvironmentalConditions struct {
	AmbientTemperature float64 // Ta [°C]
	WindSpeed          float64 // Vw [m/s], never negative
	WindAngle          float64 // angle between wind and conductor axis [deg]

	AirDensity      float64 // ρf [kg/m³]
	AirViscosity    float64 // dynamic viscosity μf [kg/(m·s)]
	AirConductivity float64 // kf [W/(m·°C)]

	SolarIncidenceAngle float64 // effective incidence angle θ [deg]
	SolarFluxIntensity  float64 // elevation-corrected intensity Qse [W/m²]
	ProjectedArea       float64 // A' [m² per metre of conductor]
}

func (c *EnvironmentalConditions) Validate() error {
	if c.WindSpeed < 0 {
		return ErrNegativeWindSpeed
	}
	if c.AirDensity <= 0 || c.AirViscosity <= 0 || c.AirConductivity <= 0 {
		return ErrNonPositiveAirProperty
	}
	if c.ProjectedArea < 0 {
		return ErrNegativeProjectedArea
	}
	return nil
}
