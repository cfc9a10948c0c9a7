package ieee738

// HeatBalanceResidual is qc(T) + qr(T) − qs − I²·R(T), zero at thermal
// equilibrium. Over the physical temperature range the loss terms grow with
// T faster than I²R does, so the residual increases monotonically in T and a
// sign change brackets the equilibrium.
func HeatBalanceResidual(p ConductorProperties, c EnvironmentalConditions, current, T float64) float64 {
	return ConvectionLoss(p, c, T) + RadiationLoss(p, c, T) -
		SolarGain(p, c) - current*current*p.Resistance(T)
}
