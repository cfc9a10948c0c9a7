package ieee738

import "math"

// RadiationLoss returns qr [W/m] radiated from the conductor surface at
// temperature Ts. Negative when Ts is below ambient.
func RadiationLoss(p ConductorProperties, c EnvironmentalConditions, Ts float64) float64 {
	return 17.8 * p.Diameter * p.Emissivity *
		(math.Pow((Ts+273)/100, 4) - math.Pow((c.AmbientTemperature+273)/100, 4))
}
