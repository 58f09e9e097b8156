package physics

// Conduct applies one heat-conduction step over a w×h row-major temperature
// field. It reads only from src and writes the full result into dst, so the
// update of every cell is computed from the pre-step snapshot, so no pair is
// double-counted regardless of traversal order. dst and src must not alias.
//
// Heat moves between axis-aligned neighbors only, each pair visited once via
// its right/down orientation. The flux across an interface follows a
// simplified Fourier law: the mean of the two conductivities, the snapshot
// temperature difference, the fixed contact area, and the fixed
// center-to-center distance. Grid edges are insulated; a boundary cell
// simply has no pair past the edge.
func Conduct(dst, src, conductivity, capacity []float64, w, h int, dt float64) {
	copy(dst, src)

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := row*w + col

			// Pair with the right neighbor.
			if col+1 < w {
				flux(dst, src, conductivity, capacity, i, i+1, dt)
			}
			// Pair with the neighbor below.
			if row+1 < h {
				flux(dst, src, conductivity, capacity, i, i+w, dt)
			}
		}
	}

	for i := range dst {
		dst[i] = clamp(dst[i], MinTemp, MaxTemp)
	}
}

// flux transfers heat across the a→b interface. A positive snapshot
// difference moves heat from a to b; a negative one mirrors the transfer, so
// heat always flows from the hotter side and equal temperatures exchange
// nothing.
func flux(dst, src, conductivity, capacity []float64, a, b int, dt float64) {
	delta := src[a] - src[b]
	if delta == 0 {
		return
	}
	k := (conductivity[a] + conductivity[b]) / 2
	q := k * delta * ContactArea / Distance * dt
	dst[a] -= q / capacity[a]
	dst[b] += q / capacity[b]
}
