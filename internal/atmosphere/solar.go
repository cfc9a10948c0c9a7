package atmosphere

import (
	"fmt"
	"math"
)

// Kind selects the coefficient set for the total heat-flux polynomial.
type Kind int

const (
	KindUnknown Kind = iota
	KindClear
	KindIndustrial
)

func (k Kind) Valid() bool {
	return k == KindClear || k == KindIndustrial
}

func (k Kind) String() string {
	switch k {
	case KindClear:
		return "clear"
	case KindIndustrial:
		return "industrial"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "clear":
		return KindClear, nil
	case "industrial":
		return KindIndustrial, nil
	default:
		return KindUnknown, fmt.Errorf("invalid atmosphere kind: %q", s)
	}
}

// Sixth-order polynomial coefficients (constant term first) for the total
// solar and sky heat flux against solar altitude, SI units.
var (
	clearFlux      = [7]float64{-42.2391, 63.8044, -1.9220, 3.46921e-2, -3.61118e-4, 1.94318e-6, -4.07608e-9}
	industrialFlux = [7]float64{53.1821, 14.2110, 6.6138e-1, -3.1658e-2, 5.4654e-4, -4.3446e-6, 1.3236e-8}
)

// SolarDeclination [deg] for a zero-based day of year (Jan 1 = 0).
func SolarDeclination(day int) float64 {
	return 23.46 * math.Sin(radians(float64(284+day)*360/365))
}

// HourAngle [deg] relative to solar noon for an hour of day in 24h format.
func HourAngle(hour int) float64 {
	return 15 * float64(hour-12)
}

// SolarAltitude Hc [deg] for a latitude, declination and hour angle, all in
// degrees. Floored at zero once the sun is below the horizon.
func SolarAltitude(latitude, declination, hourAngle float64) float64 {
	hc := degrees(math.Asin(
		math.Cos(radians(latitude))*math.Cos(radians(declination))*math.Cos(radians(hourAngle)) +
			math.Sin(radians(latitude))*math.Sin(radians(declination))))
	if hc < 0 {
		return 0
	}
	return hc
}

// SolarAzimuth Zc [deg], 0 at north through 180 at south.
func SolarAzimuth(latitude, declination, hourAngle float64) float64 {
	chi := math.Sin(radians(hourAngle)) /
		(math.Sin(radians(latitude))*math.Cos(radians(hourAngle)) -
			math.Cos(radians(latitude))*math.Tan(radians(declination)))

	constant := 180.0
	switch {
	case hourAngle >= -180 && hourAngle < 0 && chi >= 0:
		constant = 0
	case hourAngle >= 0 && hourAngle < 180 && chi < 0:
		constant = 360
	}
	return constant + degrees(math.Atan(chi))
}

// IncidenceAngle is the effective angle θ [deg] between the solar rays and
// the conductor axis, for a line azimuth Zl [deg].
func IncidenceAngle(altitude, solarAzimuth, lineAzimuth float64) float64 {
	return degrees(math.Acos(math.Cos(radians(altitude)) *
		math.Cos(radians(solarAzimuth-lineAzimuth))))
}

// HeatFluxDensity Qs [W/m²] at a solar altitude [deg]. Negative below a few
// degrees of altitude; the engine's solar-gain floor absorbs that. An
// invalid kind falls back to the clear-atmosphere set.
func HeatFluxDensity(altitude float64, kind Kind) float64 {
	co := clearFlux
	if kind == KindIndustrial {
		co = industrialFlux
	}
	q := 0.0
	for i := len(co) - 1; i >= 0; i-- {
		q = q*altitude + co[i]
	}
	return q
}

// ElevationCorrection is the solar-flux altitude correction Ksolar for a
// conductor elevation above sea level [m].
func ElevationCorrection(elevation float64) float64 {
	return 1 + 1.148e-4*elevation - 1.108e-8*elevation*elevation
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
