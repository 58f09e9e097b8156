package physics

// Combust advances the combustion state of every cell in place. The caller
// passes working buffers already seeded with this tick's values: temp after
// conduction, fuel/oxygen/burned copied from the committed snapshot, and
// burning holding the candidate mask from Ignite. Each cell is independent,
// so the update has no cross-cell hazards.
//
// Per burning cell: fuel burns at the material burn rate, the consumed fuel
// releases heat scaled by the tuned unit constants, and oxygen is drawn down
// proportionally. The mask is then reconciled with reality: burning
// persists only while fuel and oxygen hold out, and burned latches for
// cells that exhausted either after burning. Burned cells keep no fuel.
func Combust(temp, fuel, oxygen []float64, burning, burned []bool, burnRate, combustionHeat, density, capacity []float64, dt float64) {
	for i := range temp {
		var fuelConsumed float64
		if burning[i] {
			fuelConsumed = burnRate[i] * dt
		}

		fuel[i] -= fuelConsumed
		if fuel[i] < 0 {
			fuel[i] = 0
		}

		heatGenerated := fuelConsumed * combustionHeat[i] * MegajoulesToJoules
		cellMass := CellVolume * density[i]
		temp[i] += heatGenerated / (cellMass * capacity[i] * KilojoulesToJoules)
		if temp[i] > MaxTemp {
			temp[i] = MaxTemp
		}

		oxygen[i] -= fuelConsumed * OxygenConsumptionFactor * dt
		if oxygen[i] < 0 {
			oxygen[i] = 0
		}

		burning[i] = burning[i] && oxygen[i] > MinOxygenRate && fuel[i] > 0

		// Burned latches. A cell that never ignited keeps full fuel and
		// ambient oxygen, so neither exhaustion path can fire for it.
		if !burned[i] {
			burned[i] = fuel[i] <= 0 ||
				(!burning[i] && fuel[i] <= FuelEpsilon) ||
				(!burning[i] && oxygen[i] <= MinOxygenRate)
		}
		if burned[i] {
			fuel[i] = 0
			burning[i] = false
		}
	}
}
