package engine

import (
	"math"
	"testing"

	"github.com/talgya/firefront/internal/grid"
	"github.com/talgya/firefront/internal/material"
	"github.com/talgya/firefront/internal/physics"
)

// woodGrid builds a w×h all-wood simulation at ambient conditions.
func woodGrid(t *testing.T, w, h int) *Simulation {
	t.Helper()
	reg, err := material.NewRegistry(material.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	layout := make([]material.ID, w*h)
	for i := range layout {
		layout[i] = material.Wood
	}
	store, err := grid.New(w, h, layout, reg, grid.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewSimulation(store)
}

func TestStepRejectsBadDuration(t *testing.T) {
	sim := woodGrid(t, 3, 3)

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := sim.Step(dt); err == nil {
			t.Errorf("Step(%v) accepted", dt)
		}
	}
	if sim.CurrentTick() != 0 {
		t.Fatalf("rejected steps advanced the tick counter to %d", sim.CurrentTick())
	}
	// State untouched.
	if c, _ := sim.Store().At(1, 1); c.Temp != physics.AmbientTemp {
		t.Fatalf("rejected step mutated state: %+v", c)
	}
}

// The 3×3 wood scenario: center forced hot, one 0.1s step.
func TestStepHotCenterScenario(t *testing.T) {
	sim := woodGrid(t, 3, 3)

	if err := sim.Store().SetCell(1, 1, 900, physics.InitialFuel, physics.InitialOxygen, false, false); err != nil {
		t.Fatal(err)
	}
	if err := sim.Step(0.1); err != nil {
		t.Fatal(err)
	}

	wood := material.Defaults()[material.Wood]
	center, _ := sim.Store().At(1, 1)

	if !center.Burning {
		t.Fatalf("hot center did not ignite: %+v", center)
	}
	wantFuel := physics.InitialFuel - wood.BurnRate*0.1
	if math.Abs(center.Fuel-wantFuel) > 1e-9 {
		t.Fatalf("center fuel = %v, want %v", center.Fuel, wantFuel)
	}

	// Conduction cools the center, combustion heats it back; verify the
	// combustion release is present on top of the post-conduction value.
	snapTemp := []float64{20, 20, 20, 20, 900, 20, 20, 20, 20}
	expected := make([]float64, 9)
	physics.Conduct(expected, snapTemp, sim.Store().Conductivity, sim.Store().Capacity, 3, 3, 0.1)
	consumed := wood.BurnRate * 0.1
	combustionDelta := consumed * wood.CombustionHeat * physics.MegajoulesToJoules /
		(physics.CellVolume * wood.Density * wood.Capacity * physics.KilojoulesToJoules)
	if math.Abs(center.Temp-(expected[4]+combustionDelta)) > 1e-9 {
		t.Fatalf("center temp = %v, want %v", center.Temp, expected[4]+combustionDelta)
	}
	if combustionDelta <= 0 {
		t.Fatal("combustion released no heat")
	}

	// All four in-bounds neighbors warmed by conduction.
	for _, rc := range [][2]int{{0, 1}, {1, 0}, {1, 2}, {2, 1}} {
		c, _ := sim.Store().At(rc[0], rc[1])
		if c.Temp <= physics.AmbientTemp {
			t.Fatalf("neighbor (%d,%d) did not warm: %v", rc[0], rc[1], c.Temp)
		}
		if c.Burning {
			t.Fatalf("neighbor (%d,%d) ignited after one step: %v", rc[0], rc[1], c.Temp)
		}
	}
}

func TestManualIgnitionOverlay(t *testing.T) {
	sim := woodGrid(t, 3, 3)

	if err := sim.TriggerManualIgnition(1, 1, 0.15); err != nil {
		t.Fatal(err)
	}

	// First step: overlay pins the cell to MaxTemp before conduction, so
	// post-step it is scorching and ignites.
	if err := sim.Step(0.1); err != nil {
		t.Fatal(err)
	}
	c, _ := sim.Store().At(1, 1)
	if !c.Burning {
		t.Fatalf("overlaid cell did not ignite: %+v", c)
	}
	if c.Temp <= 900 {
		t.Fatalf("overlaid cell barely warmed: %v", c.Temp)
	}

	// simTime is now 0.1 < 0.15, so the overlay is still live.
	if err := sim.Step(0.1); err != nil {
		t.Fatal(err)
	}
	hot, _ := sim.Store().At(1, 1)

	// simTime 0.2 ≥ 0.15: expired and cleared. Subsequent steps only cool.
	for i := 0; i < 3; i++ {
		if err := sim.Step(0.1); err != nil {
			t.Fatal(err)
		}
	}
	later, _ := sim.Store().At(1, 1)
	if later.Temp >= hot.Temp {
		t.Fatalf("cell did not cool after overlay expired: %v -> %v", hot.Temp, later.Temp)
	}
}

func TestManualIgnitionValidation(t *testing.T) {
	sim := woodGrid(t, 3, 3)

	if err := sim.TriggerManualIgnition(3, 0, 1); err == nil {
		t.Error("row out of range accepted")
	}
	if err := sim.TriggerManualIgnition(0, -1, 1); err == nil {
		t.Error("negative column accepted")
	}
	if err := sim.TriggerManualIgnition(0, 0, 0); err == nil {
		t.Error("zero duration accepted")
	}
	if err := sim.TriggerManualIgnition(0, 0, math.NaN()); err == nil {
		t.Error("NaN duration accepted")
	}
}

func TestBurnedStaysTerminalAcrossSteps(t *testing.T) {
	sim := woodGrid(t, 3, 3)

	if err := sim.Store().SetCell(1, 1, physics.AmbientTemp, 0, physics.InitialOxygen, false, true); err != nil {
		t.Fatal(err)
	}
	// Keep forcing heat onto the burned cell; it must never burn again.
	for i := 0; i < 10; i++ {
		if err := sim.TriggerManualIgnition(1, 1, 1000); err != nil {
			t.Fatal(err)
		}
		if err := sim.Step(0.1); err != nil {
			t.Fatal(err)
		}
		c, _ := sim.Store().At(1, 1)
		if c.Burning {
			t.Fatalf("burned cell reported burning on step %d", i)
		}
		if !c.Burned {
			t.Fatalf("burned flag cleared on step %d", i)
		}
		if c.Fuel != 0 {
			t.Fatalf("burned cell regained fuel on step %d: %v", i, c.Fuel)
		}
	}
}

func TestFuelAndOxygenMonotoneWhileBurning(t *testing.T) {
	// Single cell: no neighbors to bleed heat into, so burning self-sustains
	// until oxygen starvation ends it (~458 steps at these constants).
	sim := woodGrid(t, 1, 1)
	sim.Store().SetCell(0, 0, 2000, physics.InitialFuel, physics.InitialOxygen, false, false)

	prev, _ := sim.Store().At(0, 0)
	burnedSeen := false
	for i := 0; i < 500; i++ {
		if err := sim.Step(0.1); err != nil {
			t.Fatal(err)
		}
		c, _ := sim.Store().At(0, 0)
		if prev.Burning {
			if c.Fuel > prev.Fuel {
				t.Fatalf("fuel rose while burning: %v -> %v", prev.Fuel, c.Fuel)
			}
			if c.Oxygen > prev.Oxygen {
				t.Fatalf("oxygen rose while burning: %v -> %v", prev.Oxygen, c.Oxygen)
			}
		}
		if c.Burned {
			burnedSeen = true
			if c.Burning || c.Fuel != 0 {
				t.Fatalf("terminal state violated: %+v", c)
			}
			break
		}
		prev = c
	}
	if !burnedSeen {
		t.Fatal("burning cell never exhausted within 500 steps")
	}
}

func TestWaterNeverBurns(t *testing.T) {
	reg, _ := material.NewRegistry(material.Defaults())
	layout := make([]material.ID, 9)
	for i := range layout {
		layout[i] = material.Water
	}
	store, err := grid.New(3, 3, layout, reg, grid.Options{})
	if err != nil {
		t.Fatal(err)
	}
	sim := NewSimulation(store)

	if err := sim.TriggerManualIgnition(1, 1, 1000); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if err := sim.Step(0.1); err != nil {
			t.Fatal(err)
		}
	}

	st := sim.Stats()
	if st.BurningCells != 0 || st.BurnedCells != 0 {
		t.Fatalf("water grid caught fire: %+v", st)
	}
}

func TestUniformGridTemperatureUnchanged(t *testing.T) {
	sim := woodGrid(t, 5, 5)

	if err := sim.Step(0.1); err != nil {
		t.Fatal(err)
	}
	f := sim.Store().Frame()
	for i, v := range f.Temp {
		if v != physics.AmbientTemp {
			t.Fatalf("cell %d drifted to %v on a uniform grid", i, v)
		}
	}
}

func TestStatsTrackCommittedState(t *testing.T) {
	sim := woodGrid(t, 3, 3)
	sim.Store().SetCell(0, 0, 900, physics.InitialFuel, physics.InitialOxygen, false, false)

	if err := sim.Step(0.1); err != nil {
		t.Fatal(err)
	}

	st := sim.Stats()
	if st.BurningCells != 1 {
		t.Fatalf("burning count = %d, want 1", st.BurningCells)
	}
	if st.MaxTemp <= physics.AmbientTemp {
		t.Fatalf("max temp = %v", st.MaxTemp)
	}
	if sim.CurrentTick() != 1 {
		t.Fatalf("tick = %d, want 1", sim.CurrentTick())
	}
	if sim.SimTime() != 0.1 {
		t.Fatalf("sim time = %v, want 0.1", sim.SimTime())
	}
}
