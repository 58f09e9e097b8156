package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Pacing limits. The explicit-difference scheme goes unstable with large
// steps, so the runner never feeds the simulation more than MaxTickSeconds
// regardless of how long a wall-clock frame took.
const (
	DefaultInterval = 50 * time.Millisecond
	MaxTickSeconds  = 0.1
)

// Runner drives a Simulation at a steady tick rate. It is the time-keeping
// collaborator: the simulation itself never reads the wall clock.
type Runner struct {
	Interval time.Duration     // base tick interval
	OnTick   func(tick uint64) // called after each committed step

	mu      sync.Mutex
	speed   float64 // multiplier: 1.0 = real-time, 0 = paused
	running bool

	sim *Simulation
}

// NewRunner creates a runner with default pacing.
func NewRunner(sim *Simulation) *Runner {
	return &Runner{
		Interval: DefaultInterval,
		speed:    1.0,
		sim:      sim,
	}
}

// Speed returns the current speed multiplier.
func (r *Runner) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// SetSpeed changes the pacing multiplier. 0 pauses; values are clamped to
// [0, 20].
func (r *Runner) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	if speed > 20 {
		speed = 20
	}
	r.mu.Lock()
	r.speed = speed
	r.mu.Unlock()
}

// Stop halts the loop after the in-flight tick.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run blocks, stepping the simulation until Stop is called. Each tick
// advances sim time by the base interval (capped at MaxTickSeconds); the
// speed multiplier stretches or compresses only the real-time pacing.
func (r *Runner) Run() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	dt := r.Interval.Seconds()
	if dt > MaxTickSeconds {
		dt = MaxTickSeconds
	}

	slog.Info("simulation loop started", "tick_seconds", dt, "interval", r.Interval)

	for r.isRunning() {
		speed := r.Speed()
		if speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		if err := r.sim.Step(dt); err != nil {
			// Invalid duration cannot happen with a fixed dt; a failed
			// step is dropped and the previous state stands.
			slog.Error("tick dropped", "error", err, "tick", r.sim.CurrentTick())
		} else if r.OnTick != nil {
			r.OnTick(r.sim.CurrentTick())
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(r.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation loop stopped", "tick", r.sim.CurrentTick())
}
