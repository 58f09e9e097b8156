// Package material provides the immutable table of material physical
// constants and the categorical distribution cells are drawn from.
package material

import (
	"fmt"

	"github.com/talgya/firefront/internal/physics"
)

// ID indexes a material in the registry. Cell material assignments store
// this value, so the whole grid's material layer fits in one byte per cell.
type ID uint8

// Built-in materials.
const (
	Grass ID = iota
	Wood
	Fuel
	Water
)

// Material holds the physical constants shared by every cell of a kind.
type Material struct {
	Name           string  `json:"name" yaml:"name"`
	IgnitionTemp   float64 `json:"ignition_temp" yaml:"ignition_temp"`     // °C
	CombustionHeat float64 `json:"combustion_heat" yaml:"combustion_heat"` // MJ/kg
	BurnRate       float64 `json:"burn_rate" yaml:"burn_rate"`             // kg/m²/s
	Conductivity   float64 `json:"conductivity" yaml:"conductivity"`       // W/(m·K)
	Capacity       float64 `json:"capacity" yaml:"capacity"`               // kJ/(kg·K)
	Density        float64 `json:"density" yaml:"density"`                 // kg/m³
	Humidity       float64 `json:"humidity" yaml:"humidity"`               // %
}

// Combustible reports whether the material can sustain a fire at all.
func (m Material) Combustible() bool {
	return m.BurnRate > 0 && m.IgnitionTemp <= physics.MaxTemp
}

// Defaults returns the built-in material table, indexed by ID. Water is the
// non-combustible reference: zero burn rate and an ignition temperature no
// cell can ever reach.
func Defaults() []Material {
	return []Material{
		Grass: {
			Name:           "grass",
			IgnitionTemp:   300,
			CombustionHeat: 18,
			BurnRate:       0.5,
			Conductivity:   0.2,
			Capacity:       2.0,
			Density:        80,
			Humidity:       25,
		},
		Wood: {
			Name:           "wood",
			IgnitionTemp:   300,
			CombustionHeat: 18,
			BurnRate:       0.35,
			Conductivity:   0.2,
			Capacity:       1.8,
			Density:        650,
			Humidity:       10,
		},
		Fuel: {
			Name:           "fuel",
			IgnitionTemp:   100,
			CombustionHeat: 40,
			BurnRate:       0.8,
			Conductivity:   0.3,
			Capacity:       1.8,
			Density:        750,
			Humidity:       2,
		},
		Water: {
			Name:           "water",
			IgnitionTemp:   2 * physics.MaxTemp,
			CombustionHeat: 0,
			BurnRate:       0,
			Conductivity:   0.6,
			Capacity:       4.18,
			Density:        1000,
			Humidity:       100,
		},
	}
}

// Registry is the read-only material lookup table, built once at startup.
type Registry struct {
	mats []Material
}

// NewRegistry validates the material table and freezes it. Invalid constants
// are configuration errors and fatal to startup.
func NewRegistry(mats []Material) (*Registry, error) {
	if len(mats) == 0 {
		return nil, fmt.Errorf("material registry: empty table")
	}
	if len(mats) > 256 {
		return nil, fmt.Errorf("material registry: %d materials exceed the 8-bit ID space", len(mats))
	}
	for i, m := range mats {
		if m.Name == "" {
			return nil, fmt.Errorf("material %d: missing name", i)
		}
		if m.Capacity <= 0 {
			return nil, fmt.Errorf("material %q: thermal capacity must be > 0, got %v", m.Name, m.Capacity)
		}
		if m.Density <= 0 {
			return nil, fmt.Errorf("material %q: density must be > 0, got %v", m.Name, m.Density)
		}
		if m.BurnRate < 0 {
			return nil, fmt.Errorf("material %q: burn rate must be >= 0, got %v", m.Name, m.BurnRate)
		}
		if m.Humidity < 0 {
			return nil, fmt.Errorf("material %q: humidity must be >= 0, got %v", m.Name, m.Humidity)
		}
	}
	table := make([]Material, len(mats))
	copy(table, mats)
	return &Registry{mats: table}, nil
}

// Get returns the material for an ID.
func (r *Registry) Get(id ID) (Material, error) {
	if int(id) >= len(r.mats) {
		return Material{}, fmt.Errorf("material id %d out of range (registry has %d)", id, len(r.mats))
	}
	return r.mats[id], nil
}

// ByName looks a material up by its name.
func (r *Registry) ByName(name string) (ID, bool) {
	for i, m := range r.mats {
		if m.Name == name {
			return ID(i), true
		}
	}
	return 0, false
}

// Materials returns a copy of the table for listings.
func (r *Registry) Materials() []Material {
	out := make([]Material, len(r.mats))
	copy(out, r.mats)
	return out
}

// Count reports the number of registered materials.
func (r *Registry) Count() int { return len(r.mats) }
