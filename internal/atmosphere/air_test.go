package atmosphere

import (
	"math"
	"testing"
)

func TestFilmTemperature(t *testing.T) {
	if got := FilmTemperature(100, 40); got != 70 {
		t.Errorf("FilmTemperature(100, 40) = %v, want 70", got)
	}
}

func TestAirDensity(t *testing.T) {
	tests := []struct {
		name      string
		elevation float64
		film      float64
		want      float64
	}{
		{"sea level, 25°C film", 0, 25, 1.1843},
		{"sea level, 70°C film", 0, 70, 1.0287},
		{"1000 m, 25°C film", 1000, 25, 1.0505},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AirDensity(tt.elevation, tt.film)
			if math.Abs(got-tt.want) > 5e-4 {
				t.Errorf("AirDensity(%v, %v) = %v, want ≈ %v", tt.elevation, tt.film, got, tt.want)
			}
		})
	}
}

func TestAirViscosity(t *testing.T) {
	// 1.458e-6 · 298^1.5 / 408.4
	got := AirViscosity(25)
	if math.Abs(got-1.8365e-5) > 2e-8 {
		t.Errorf("AirViscosity(25) = %v, want ≈ 1.8365e-5", got)
	}

	if AirViscosity(70) <= got {
		t.Errorf("viscosity must grow with film temperature")
	}
}

func TestAirConductivity(t *testing.T) {
	got := AirConductivity(25)
	if math.Abs(got-0.026107) > 5e-6 {
		t.Errorf("AirConductivity(25) = %v, want ≈ 0.026107", got)
	}

	if AirConductivity(70) <= got {
		t.Errorf("conductivity must grow with film temperature")
	}
}
