package grid

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/firefront/internal/material"
)

// Layout generation modes.
const (
	LayoutUniform   = "uniform"
	LayoutClustered = "clustered"
)

// UniformLayout assigns every cell a material drawn independently from the
// distribution. Deterministic for a given seed.
func UniformLayout(w, h int, dist *material.Distribution, seed int64) []material.ID {
	rng := rand.New(rand.NewSource(seed))
	layout := make([]material.ID, w*h)
	for i := range layout {
		layout[i] = dist.Sample(rng)
	}
	return layout
}

// ClusteredLayout assigns materials by thresholding smooth simplex noise
// against the distribution's cumulative bands, producing contiguous patches
// of the same material with the same overall mix. scale controls patch size
// (higher = larger patches); values at or below zero fall back to a default.
func ClusteredLayout(w, h int, dist *material.Distribution, seed int64, scale float64) []material.ID {
	if scale <= 0 {
		scale = 12
	}
	noise := opensimplex.NewNormalized(seed)
	freq := 1 / scale

	layout := make([]material.ID, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			v := octaveNoise(noise, float64(col), float64(row), 3, freq, 0.5)
			layout[row*w+col] = dist.Pick(v)
		}
	}
	return layout
}

// BuildLayout dispatches on the configured layout mode.
func BuildLayout(mode string, w, h int, dist *material.Distribution, seed int64, clusterScale float64) ([]material.ID, error) {
	switch mode {
	case "", LayoutUniform:
		return UniformLayout(w, h, dist, seed), nil
	case LayoutClustered:
		return ClusteredLayout(w, h, dist, seed, clusterScale), nil
	default:
		return nil, fmt.Errorf("unknown layout mode %q", mode)
	}
}

// octaveNoise sums several noise octaves and renormalizes to [0, 1).
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	f := freq

	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*f, y*f) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		f *= 2
	}

	v := total / maxValue
	if v >= 1 {
		v = 1 - 1e-9
	}
	if v < 0 {
		v = 0
	}
	return v
}
