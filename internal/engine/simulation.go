// Package engine sequences the physics kernels into ticks and paces them.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/talgya/firefront/internal/grid"
	"github.com/talgya/firefront/internal/physics"
)

// DefaultIgnitionDuration is how long a manual ignition pins a cell to the
// maximum temperature when the caller does not say otherwise.
const DefaultIgnitionDuration = 2.0 // seconds of sim time

// Simulation orchestrates one lattice: the per-tick kernel sequence, the
// manual-ignition overlay, and the aggregate statistics. It is the only
// writer of its grid store.
type Simulation struct {
	store *grid.Store

	mu       sync.Mutex
	overlay  map[int]float64 // flat index → sim-time expiry
	simTime  float64         // accumulated seconds of simulated time
	lastTick uint64
	stats    grid.Stats

	anomalies uint64 // total non-finite values repaired
}

// NewSimulation wraps a freshly built store.
func NewSimulation(store *grid.Store) *Simulation {
	s := &Simulation{
		store:   store,
		overlay: make(map[int]float64),
	}
	s.stats = store.Stats()
	return s
}

// Store exposes the grid store for read-side collaborators (API, viewer).
func (s *Simulation) Store() *grid.Store { return s.store }

// CurrentTick returns the number of completed steps.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// SimTime returns the accumulated simulated seconds.
func (s *Simulation) SimTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simTime
}

// Stats returns the aggregates as of the last committed tick.
func (s *Simulation) Stats() grid.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// TriggerManualIgnition schedules forced heating of one cell: until
// durationSeconds of sim time elapse, the cell's temperature is pinned to
// the global maximum at the start of every step. Out-of-range coordinates
// are a caller error.
func (s *Simulation) TriggerManualIgnition(row, col int, durationSeconds float64) error {
	if err := s.store.CheckBounds(row, col); err != nil {
		return fmt.Errorf("manual ignition: %w", err)
	}
	if durationSeconds <= 0 || math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return fmt.Errorf("manual ignition: duration must be > 0 seconds, got %v", durationSeconds)
	}

	w, _ := s.store.Dims()
	i := row*w + col

	s.mu.Lock()
	expiry := s.simTime + durationSeconds
	if current, ok := s.overlay[i]; !ok || expiry > current {
		s.overlay[i] = expiry
	}
	s.mu.Unlock()
	return nil
}

// Step advances the simulation by dt seconds. The sequence is: apply the
// manual-ignition overlay, conduct heat, derive the candidate burning mask,
// run combustion, then commit all five fields atomically. The tick either
// commits wholly or, on an invalid dt, leaves the store untouched.
func (s *Simulation) Step(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("step: tick duration must be > 0, got %v", dt)
	}

	// Force overlaid cells to max temperature before conduction.
	s.mu.Lock()
	now := s.simTime
	var live []int
	for i, expiry := range s.overlay {
		if expiry > now {
			live = append(live, i)
		}
	}
	s.mu.Unlock()
	if len(live) > 0 {
		s.store.ForceTemp(live, physics.MaxTemp)
	}

	w, h := s.store.Dims()
	snap := s.store.Snapshot()
	out := s.store.Scratch()

	physics.Conduct(out.Temp, snap.Temp, s.store.Conductivity, s.store.Capacity, w, h, dt)

	physics.Ignite(out.Burning, out.Temp, s.store.IgnitionTemp, s.store.Humidity, snap.Burned)

	copy(out.Fuel, snap.Fuel)
	copy(out.Oxygen, snap.Oxygen)
	copy(out.Burned, snap.Burned)
	physics.Combust(out.Temp, out.Fuel, out.Oxygen, out.Burning, out.Burned,
		s.store.BurnRate, s.store.CombustionHeat, s.store.Density, s.store.Capacity, dt)

	if repaired := physics.Sanitize(out.Temp, out.Fuel, out.Oxygen); repaired > 0 {
		s.mu.Lock()
		s.anomalies += uint64(repaired)
		s.mu.Unlock()
		slog.Warn("numeric anomaly recovered by clamping", "values", repaired, "tick", s.lastTick+1)
	}

	s.store.Commit()

	s.mu.Lock()
	s.simTime += dt
	s.lastTick++
	for i, expiry := range s.overlay {
		if expiry <= s.simTime {
			delete(s.overlay, i)
		}
	}
	s.stats = s.store.Stats()
	s.mu.Unlock()
	return nil
}

// Anomalies reports the total count of repaired non-finite values.
func (s *Simulation) Anomalies() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anomalies
}
