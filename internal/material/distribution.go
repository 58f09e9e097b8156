package material

import (
	"fmt"
	"math/rand"
	"sort"
)

// Distribution is a fixed categorical distribution over material IDs,
// sampled by cumulative probability. Cells draw their material from it
// independently at grid construction.
type Distribution struct {
	ids        []ID
	cumulative []float64
}

// DefaultWeights mirrors the stock world mix: mostly grass, plenty of wood,
// a dash of accelerant.
func DefaultWeights() map[ID]float64 {
	return map[ID]float64{
		Grass: 0.50,
		Wood:  0.45,
		Fuel:  0.05,
	}
}

// NewDistribution builds a distribution from weight entries. Weights must be
// positive and are normalized, so callers may pass probabilities or raw
// proportions. Every ID must exist in the registry.
func NewDistribution(weights map[ID]float64, reg *Registry) (*Distribution, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("distribution: no weights")
	}

	ids := make([]ID, 0, len(weights))
	total := 0.0
	for id, w := range weights {
		if int(id) >= reg.Count() {
			return nil, fmt.Errorf("distribution: material id %d not in registry", id)
		}
		if w <= 0 {
			return nil, fmt.Errorf("distribution: weight for material %d must be > 0, got %v", id, w)
		}
		ids = append(ids, id)
		total += w
	}
	// Deterministic sampling order regardless of map iteration.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	cumulative := make([]float64, len(ids))
	acc := 0.0
	for i, id := range ids {
		acc += weights[id] / total
		cumulative[i] = acc
	}
	cumulative[len(cumulative)-1] = 1.0 // absorb float drift

	return &Distribution{ids: ids, cumulative: cumulative}, nil
}

// Sample draws one material ID.
func (d *Distribution) Sample(rng *rand.Rand) ID {
	r := rng.Float64()
	for i, c := range d.cumulative {
		if r < c {
			return d.ids[i]
		}
	}
	return d.ids[len(d.ids)-1]
}

// Pick maps a value in [0, 1) onto the cumulative bands. Used by layout
// generators that derive the draw from noise instead of a uniform sample.
func (d *Distribution) Pick(v float64) ID {
	for i, c := range d.cumulative {
		if v < c {
			return d.ids[i]
		}
	}
	return d.ids[len(d.ids)-1]
}
