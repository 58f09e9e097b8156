// Package grid owns the per-cell state of the lattice: the mutable fields
// the engines advance each tick and the per-cell material constants derived
// from the registry. All mutable fields are double-buffered: engines read
// the committed snapshot and write a scratch buffer, and Commit swaps the
// two atomically so readers never observe a half-updated tick.
package grid

import (
	"fmt"
	"sync"

	"github.com/talgya/firefront/internal/material"
	"github.com/talgya/firefront/internal/physics"
)

// Fields is one buffer of the five mutable per-cell fields, row-major.
type Fields struct {
	Temp    []float64
	Fuel    []float64
	Oxygen  []float64
	Burning []bool
	Burned  []bool
}

func newFields(n int) *Fields {
	return &Fields{
		Temp:    make([]float64, n),
		Fuel:    make([]float64, n),
		Oxygen:  make([]float64, n),
		Burning: make([]bool, n),
		Burned:  make([]bool, n),
	}
}

// copyFrom overwrites every field of f with src's values.
func (f *Fields) copyFrom(src *Fields) {
	copy(f.Temp, src.Temp)
	copy(f.Fuel, src.Fuel)
	copy(f.Oxygen, src.Oxygen)
	copy(f.Burning, src.Burning)
	copy(f.Burned, src.Burned)
}

// Options tune the initial cell state. The zero value means spec defaults.
type Options struct {
	AmbientTemp   float64 // initial temperature; 0 → physics.AmbientTemp
	HumidityScale float64 // multiplier on material humidity; 0 → 1
}

// Store exclusively owns the grid state. Engine components borrow field
// slices for the duration of one step and must not retain them across ticks.
type Store struct {
	w, h int

	// Material layer, fixed at construction.
	materials []material.ID

	// Per-cell constants materialized from the registry, fixed at
	// construction and shared by both buffers.
	Conductivity   []float64
	Capacity       []float64
	IgnitionTemp   []float64
	Humidity       []float64
	BurnRate       []float64
	CombustionHeat []float64
	Density        []float64

	reg *material.Registry

	mu    sync.RWMutex
	front *Fields // committed, what readers see
	back  *Fields // scratch for the in-flight tick
}

// New builds a store for a w×h lattice whose cells carry the given material
// layout. Every cell starts at ambient temperature with full fuel and
// oxygen.
func New(w, h int, layout []material.ID, reg *material.Registry, opts Options) (*Store, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("grid: dimensions must be positive, got %dx%d", w, h)
	}
	n := w * h
	if len(layout) != n {
		return nil, fmt.Errorf("grid: layout has %d cells, want %d", len(layout), n)
	}

	ambient := opts.AmbientTemp
	if ambient == 0 {
		ambient = physics.AmbientTemp
	}
	if ambient < physics.MinTemp {
		ambient = physics.MinTemp
	}
	humidityScale := opts.HumidityScale
	if humidityScale == 0 {
		humidityScale = 1
	}

	s := &Store{
		w: w, h: h,
		reg:            reg,
		materials:      make([]material.ID, n),
		Conductivity:   make([]float64, n),
		Capacity:       make([]float64, n),
		IgnitionTemp:   make([]float64, n),
		Humidity:       make([]float64, n),
		BurnRate:       make([]float64, n),
		CombustionHeat: make([]float64, n),
		Density:        make([]float64, n),
		front:          newFields(n),
		back:           newFields(n),
	}
	copy(s.materials, layout)

	for i, id := range layout {
		m, err := reg.Get(id)
		if err != nil {
			return nil, fmt.Errorf("grid cell %d: %w", i, err)
		}
		s.Conductivity[i] = m.Conductivity
		s.Capacity[i] = m.Capacity
		s.IgnitionTemp[i] = m.IgnitionTemp
		s.Humidity[i] = m.Humidity * humidityScale
		s.BurnRate[i] = m.BurnRate
		s.CombustionHeat[i] = m.CombustionHeat
		s.Density[i] = m.Density

		s.front.Temp[i] = ambient
		s.front.Fuel[i] = physics.InitialFuel
		s.front.Oxygen[i] = physics.InitialOxygen
	}
	s.back.copyFrom(s.front)

	return s, nil
}

// Dims returns the lattice dimensions.
func (s *Store) Dims() (w, h int) { return s.w, s.h }

// Len returns the cell count.
func (s *Store) Len() int { return s.w * s.h }

// Index converts (row, col) to the flat index without bounds checking.
func (s *Store) Index(row, col int) int { return row*s.w + col }

// CheckBounds reports an error for coordinates outside the lattice.
func (s *Store) CheckBounds(row, col int) error {
	if row < 0 || row >= s.h || col < 0 || col >= s.w {
		return fmt.Errorf("cell (%d,%d) outside %dx%d grid", row, col, s.w, s.h)
	}
	return nil
}

// Snapshot returns the committed field buffer. The single writer may read it
// freely during a step; concurrent readers must go through Frame, At, or
// Stats, which lock.
func (s *Store) Snapshot() *Fields { return s.front }

// Scratch returns the writable buffer for the in-flight tick.
func (s *Store) Scratch() *Fields { return s.back }

// Commit atomically publishes the scratch buffer as the committed state.
// The previous committed buffer becomes the next scratch.
func (s *Store) Commit() {
	s.mu.Lock()
	s.front, s.back = s.back, s.front
	s.mu.Unlock()
}

// ForceTemp sets the committed temperature of the given flat indices. Used
// by the manual-ignition overlay before conduction and by tests; the write
// locks so concurrent readers never see a torn frame.
func (s *Store) ForceTemp(indices []int, temp float64) {
	s.mu.Lock()
	for _, i := range indices {
		s.front.Temp[i] = temp
	}
	s.mu.Unlock()
}

// SetCell overwrites one committed cell's mutable state. Debug/test path;
// normal play mutates cells only through the engines.
func (s *Store) SetCell(row, col int, temp, fuel, oxygen float64, burning, burned bool) error {
	if err := s.CheckBounds(row, col); err != nil {
		return err
	}
	i := s.Index(row, col)
	s.mu.Lock()
	s.front.Temp[i] = temp
	s.front.Fuel[i] = fuel
	s.front.Oxygen[i] = oxygen
	s.front.Burning[i] = burning
	s.front.Burned[i] = burned
	s.mu.Unlock()
	return nil
}

// MaterialAt returns the material ID at (row, col).
func (s *Store) MaterialAt(row, col int) (material.ID, error) {
	if err := s.CheckBounds(row, col); err != nil {
		return 0, err
	}
	return s.materials[s.Index(row, col)], nil
}

// Materials exposes the material layer (read-only by convention).
func (s *Store) Materials() []material.ID { return s.materials }

// Registry returns the material registry the store was built from.
func (s *Store) Registry() *material.Registry { return s.reg }

// Cell is a read view of one lattice position.
type Cell struct {
	Row      int         `json:"row"`
	Col      int         `json:"col"`
	Material material.ID `json:"material"`
	Temp     float64     `json:"temperature"`
	Fuel     float64     `json:"fuel"`
	Oxygen   float64     `json:"oxygen"`
	Burning  bool        `json:"burning"`
	Burned   bool        `json:"burned"`
}

// At returns the committed state of one cell.
func (s *Store) At(row, col int) (Cell, error) {
	if err := s.CheckBounds(row, col); err != nil {
		return Cell{}, err
	}
	i := s.Index(row, col)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Cell{
		Row:      row,
		Col:      col,
		Material: s.materials[i],
		Temp:     s.front.Temp[i],
		Fuel:     s.front.Fuel[i],
		Oxygen:   s.front.Oxygen[i],
		Burning:  s.front.Burning[i],
		Burned:   s.front.Burned[i],
	}, nil
}

// Stats aggregates the committed state for status displays.
type Stats struct {
	MeanTemp     float64 `json:"mean_temperature"`
	MaxTemp      float64 `json:"max_temperature"`
	MeanOxygen   float64 `json:"mean_oxygen"`
	BurningCells int     `json:"burning_cells"`
	BurnedCells  int     `json:"burned_cells"`
}

// Stats computes aggregates over the committed buffer.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{MaxTemp: physics.MinTemp}
	var tempSum, oxygenSum float64
	for i := range s.front.Temp {
		t := s.front.Temp[i]
		tempSum += t
		if t > st.MaxTemp {
			st.MaxTemp = t
		}
		oxygenSum += s.front.Oxygen[i]
		if s.front.Burning[i] {
			st.BurningCells++
		}
		if s.front.Burned[i] {
			st.BurnedCells++
		}
	}
	n := float64(s.Len())
	st.MeanTemp = tempSum / n
	st.MeanOxygen = oxygenSum / n
	return st
}

// Frame is a deep copy of the full committed state, shaped for renderers.
type Frame struct {
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Materials []material.ID `json:"materials"`
	Temp      []float64     `json:"temperature"`
	Fuel      []float64     `json:"fuel"`
	Oxygen    []float64     `json:"oxygen"`
	Burning   []bool        `json:"burning"`
	Burned    []bool        `json:"burned"`
}

// Frame copies the committed state under the read lock.
func (s *Store) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.Len()
	f := Frame{
		Width:     s.w,
		Height:    s.h,
		Materials: make([]material.ID, n),
		Temp:      make([]float64, n),
		Fuel:      make([]float64, n),
		Oxygen:    make([]float64, n),
		Burning:   make([]bool, n),
		Burned:    make([]bool, n),
	}
	copy(f.Materials, s.materials)
	copy(f.Temp, s.front.Temp)
	copy(f.Fuel, s.front.Fuel)
	copy(f.Oxygen, s.front.Oxygen)
	copy(f.Burning, s.front.Burning)
	copy(f.Burned, s.front.Burned)
	return f
}
