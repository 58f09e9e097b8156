// Command firesim runs the Firefront heat-diffusion and fire-spread
// simulation, serving its lattice over the HTTP API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/talgya/firefront/internal/api"
	"github.com/talgya/firefront/internal/config"
	"github.com/talgya/firefront/internal/engine"
	"github.com/talgya/firefront/internal/entropy"
	"github.com/talgya/firefront/internal/grid"
	"github.com/talgya/firefront/internal/material"
	"github.com/talgya/firefront/internal/persistence"
	"github.com/talgya/firefront/internal/weather"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config (empty = defaults)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Firefront lattice fire simulation")

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Seed ──────────────────────────────────────────────────────────
	seed := cfg.Seed
	if seed == 0 {
		entropyClient := entropy.NewClient(os.Getenv("RANDOM_ORG_API_KEY"))
		seed = entropyClient.Seed()
		slog.Info("seed drawn from entropy source", "seed", seed, "random_org", entropyClient != nil)
	}

	// ── Materials ─────────────────────────────────────────────────────
	reg, err := material.NewRegistry(material.Defaults())
	if err != nil {
		slog.Error("failed to build material registry", "error", err)
		os.Exit(1)
	}

	weights := make(map[material.ID]float64, len(cfg.Distribution))
	for name, w := range cfg.Distribution {
		id, ok := reg.ByName(name)
		if !ok {
			slog.Error("unknown material in distribution", "material", name)
			os.Exit(1)
		}
		weights[id] = w
	}
	dist, err := material.NewDistribution(weights, reg)
	if err != nil {
		slog.Error("failed to build material distribution", "error", err)
		os.Exit(1)
	}

	// ── Climate (optional, from real weather) ─────────────────────────
	climate := weather.MapToClimate(nil)
	if wc := weather.NewClient(os.Getenv("OPENWEATHER_API_KEY"), cfg.WeatherLocation); wc != nil {
		cond, err := wc.Fetch()
		if err != nil {
			slog.Warn("weather fetch failed, using default climate", "error", err)
		} else {
			climate = weather.MapToClimate(cond)
			slog.Info("climate from real weather",
				"location", cfg.WeatherLocation,
				"ambient_temp", climate.AmbientTemp,
				"humidity_scale", fmt.Sprintf("%.2f", climate.HumidityScale),
				"conditions", climate.Description,
			)
		}
	}

	// ── Lattice ───────────────────────────────────────────────────────
	layout, err := grid.BuildLayout(cfg.Layout, cfg.GridWidth, cfg.GridHeight, dist, seed, cfg.ClusterScale)
	if err != nil {
		slog.Error("failed to build layout", "error", err)
		os.Exit(1)
	}
	store, err := grid.New(cfg.GridWidth, cfg.GridHeight, layout, reg, grid.Options{
		AmbientTemp:   climate.AmbientTemp,
		HumidityScale: climate.HumidityScale,
	})
	if err != nil {
		slog.Error("failed to build grid", "error", err)
		os.Exit(1)
	}
	sim := engine.NewSimulation(store)
	slog.Info("lattice ready",
		"width", cfg.GridWidth,
		"height", cfg.GridHeight,
		"layout", cfg.Layout,
		"seed", seed,
	)

	// ── Run recorder ──────────────────────────────────────────────────
	var db *persistence.DB
	var runID string
	if cfg.DBPath != "" {
		os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		runID, err = db.StartRun(seed, cfg.GridWidth, cfg.GridHeight, cfg.Layout)
		if err != nil {
			slog.Error("failed to start run", "error", err)
			os.Exit(1)
		}
		slog.Info("run recording enabled", "path", cfg.DBPath, "run_id", runID)
	} else {
		slog.Info("run recording disabled")
	}

	// ── Runner and HTTP API ───────────────────────────────────────────
	runner := engine.NewRunner(sim)
	runner.Interval = cfg.TickInterval()

	adminKey := os.Getenv("FIREFRONT_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("FIREFRONT_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}

	server := &api.Server{
		Sim:      sim,
		Run:      runner,
		DB:       db,
		RunID:    runID,
		Seed:     seed,
		Port:     cfg.APIPort,
		AdminKey: adminKey,
	}
	server.Start()

	runner.OnTick = func(tick uint64) {
		if db != nil && cfg.SampleEvery > 0 && tick%uint64(cfg.SampleEvery) == 0 {
			if err := db.RecordTick(runID, tick, sim.Stats()); err != nil {
				slog.Error("tick record failed", "error", err, "tick", tick)
			}
		}
		if cfg.StreamEvery > 0 && tick%uint64(cfg.StreamEvery) == 0 {
			server.Broadcast()
		}
		if tick%600 == 0 {
			st := sim.Stats()
			slog.Info("status",
				"tick", tick,
				"sim_time_s", fmt.Sprintf("%.1f", sim.SimTime()),
				"burning", st.BurningCells,
				"burned", st.BurnedCells,
				"max_temp", fmt.Sprintf("%.1f", st.MaxTemp),
			)
		}
	}

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		runner.Stop()
	}()

	fmt.Printf("\nFirefront lattice: %dx%d cells, seed %d.\n", cfg.GridWidth, cfg.GridHeight, seed)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	runner.Run()

	if db != nil {
		if err := db.RecordTick(runID, sim.CurrentTick(), sim.Stats()); err != nil {
			slog.Error("final tick record failed", "error", err)
		}
	}
	fmt.Println("Simulation stopped.")
}
