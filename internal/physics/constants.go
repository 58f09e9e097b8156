// Package physics implements the per-tick field kernels: heat conduction,
// ignition, and combustion. Every function is pure over its inputs: callers
// supply the pre-step snapshot and a separate output buffer, so no result
// ever depends on traversal order.
package physics

import "math"

// Global temperature bounds (°C). Every field update clamps into this range.
const (
	MinTemp = 20.0
	MaxTemp = 2138.0
)

// Cell geometry. The lattice is uniform squares, so the interface area and
// center-to-center distance are fixed constants.
const (
	CellWidth  = 10.0
	CellHeight = 10.0

	// ContactArea is the interface surface between two adjacent cells.
	ContactArea = CellWidth * CellHeight

	// CellVolume is assumed 1 m³ per cell for the mass term in combustion.
	CellVolume = 1.0
)

// Distance between the centers of two adjacent cells.
var Distance = math.Sqrt(CellWidth*CellWidth + CellHeight*CellHeight)

// Unit-conversion constants for the combustion heat release. These are tuned
// for plausible flame behavior, not derived from consistent units (note the
// 1e7 where MJ→J would be 1e6). Do not "correct" them.
const (
	MegajoulesToJoules = 1e7
	KilojoulesToJoules = 1e3
)

// Combustion tunables.
const (
	// OxygenConsumptionFactor scales fuel consumed into oxygen consumed.
	OxygenConsumptionFactor = 10.0

	// MinOxygenRate is the oxygen percentage below which combustion cannot
	// be sustained.
	MinOxygenRate = 5.0

	// FuelEpsilon is the residue threshold below which fuel counts as spent.
	FuelEpsilon = 1e-7
)

// Ignition tunables.
const (
	// HumidityEffectScale controls how strongly material humidity raises
	// the effective ignition temperature.
	HumidityEffectScale = 200.0

	// EffectiveIgnitionFloor prevents unrealistically easy ignition.
	EffectiveIgnitionFloor = 100.0
)

// Initial cell state.
const (
	AmbientTemp   = 20.0
	InitialOxygen = 21.0
	InitialFuel   = 100.0
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
