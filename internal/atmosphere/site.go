package atmosphere

import (
	"errors"
	"time"

	"github.com/gridsense-io/ampacity/internal/ieee738"
)

var (
	ErrInvalidKind       = errors.New("atmosphere kind must be clear or industrial")
	ErrNegativeElevation = errors.New("site elevation must not be negative")
)

// Site is the fixed geography of a monitored line span.
type Site struct {
	Latitude    float64 // [deg]
	Elevation   float64 // above sea level [m]
	LineAzimuth float64 // conductor axis azimuth Zl [deg]
	Kind        Kind
}

func (s *Site) Validate() error {
	if !s.Kind.Valid() {
		return ErrInvalidKind
	}
	if s.Elevation < 0 {
		return ErrNegativeElevation
	}
	return nil
}

// Weather is the measured ambient state at the site.
type Weather struct {
	AmbientTemperature float64 // [°C]
	WindSpeed          float64 // [m/s]
	WindAngle          float64 // against the conductor axis [deg]
}

// Resolve derives the engine's environmental conditions for an instant in
// time. Air properties are evaluated at the film temperature of surfaceTemp,
// so pick the temperature being rated at; re-resolve when it moves
// materially. The projected area is the conductor diameter per metre of
// span, as the standard assumes.
func (s Site) Resolve(w Weather, conductor ieee738.ConductorProperties, at time.Time, surfaceTemp float64) ieee738.EnvironmentalConditions {
	film := FilmTemperature(surfaceTemp, w.AmbientTemperature)

	declination := SolarDeclination(at.YearDay() - 1)
	omega := HourAngle(at.Hour())
	altitude := SolarAltitude(s.Latitude, declination, omega)
	azimuth := SolarAzimuth(s.Latitude, declination, omega)

	return ieee738.EnvironmentalConditions{
		AmbientTemperature: w.AmbientTemperature,
		WindSpeed:          w.WindSpeed,
		WindAngle:          w.WindAngle,

		AirDensity:      AirDensity(s.Elevation, film),
		AirViscosity:    AirViscosity(film),
		AirConductivity: AirConductivity(film),

		SolarIncidenceAngle: IncidenceAngle(altitude, azimuth, s.LineAzimuth),
		SolarFluxIntensity:  ElevationCorrection(s.Elevation) * HeatFluxDensity(altitude, s.Kind),
		ProjectedArea:       conductor.Diameter,
	}
}
