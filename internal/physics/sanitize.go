package physics

import "math"

// Sanitize repairs non-finite values produced by a numerically degenerate
// step. NaN/Inf temperatures, fuel, or oxygen are pulled back to the nearest
// legal value so the anomaly never propagates. It returns how many values
// were repaired; the orchestrator logs a warning when the count is nonzero.
func Sanitize(temp, fuel, oxygen []float64) int {
	repaired := 0
	for i := range temp {
		if !isFinite(temp[i]) {
			if math.IsInf(temp[i], 1) {
				temp[i] = MaxTemp
			} else {
				temp[i] = MinTemp
			}
			repaired++
		}
		if !isFinite(fuel[i]) || fuel[i] < 0 {
			fuel[i] = 0
			repaired++
		}
		if !isFinite(oxygen[i]) || oxygen[i] < 0 {
			oxygen[i] = 0
			repaired++
		}
	}
	return repaired
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
