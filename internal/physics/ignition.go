package physics

// Ignite derives the burning mask for the whole field. A cell ignites when
// its temperature has reached the material's effective ignition temperature
// and the cell has not already burned out. Burned is terminal: a burned cell
// never re-enters the mask, whatever its temperature.
//
// Humidity raises the bar: effective ignition is the base ignition
// temperature scaled by (1 + humidity/HumidityEffectScale), floored at
// EffectiveIgnitionFloor.
func Ignite(dst []bool, temp, ignitionTemp, humidity []float64, burned []bool) {
	for i := range dst {
		effective := ignitionTemp[i] * (1 + humidity[i]/HumidityEffectScale)
		if effective < EffectiveIgnitionFloor {
			effective = EffectiveIgnitionFloor
		}
		dst[i] = temp[i] >= effective && !burned[i]
	}
}

// EffectiveIgnitionTemp reports the humidity-adjusted ignition threshold for
// a single material. Exposed for the API's material listing.
func EffectiveIgnitionTemp(ignitionTemp, humidity float64) float64 {
	effective := ignitionTemp * (1 + humidity/HumidityEffectScale)
	if effective < EffectiveIgnitionFloor {
		effective = EffectiveIgnitionFloor
	}
	return effective
}
