// Package api provides the HTTP API for observing and poking the fire lattice.
// GET endpoints are public (read-only observation).
// POST /api/v1/speed requires a bearer token; POST /api/v1/ignite is public
// but rate-limited per IP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/firefront/internal/engine"
	"github.com/talgya/firefront/internal/persistence"
)

// Server serves the lattice state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Run      *engine.Runner
	DB       *persistence.DB // nil when recording is disabled
	RunID    string
	Seed     int64
	Port     int
	AdminKey string // Bearer token for POST /speed. Empty = endpoint disabled.

	hub *StreamHub
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.hub = NewStreamHub()

	igniteLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/frame", s.handleFrame)
	mux.HandleFunc("/api/v1/cell/", s.handleCell)
	mux.HandleFunc("/api/v1/materials", s.handleMaterials)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/ignitions", s.handleIgnitions)

	// Websocket frame stream.
	mux.HandleFunc("/api/v1/stream", s.hub.HandleWS)

	// Control endpoints.
	mux.HandleFunc("/api/v1/ignite", RateLimitMiddleware(igniteLimiter, s.handleIgnite))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Broadcast pushes the current committed frame to all stream subscribers.
func (s *Server) Broadcast() {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(s.Sim.Store().Frame())
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no FIREFRONT_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Stats()
	width, height := s.Sim.Store().Dims()

	streamClients := 0
	if s.hub != nil {
		streamClients = s.hub.ClientCount()
	}

	status := map[string]any{
		"name":             "Firefront",
		"run_id":           s.RunID,
		"seed":             s.Seed,
		"tick":             s.Sim.CurrentTick(),
		"sim_time_seconds": s.Sim.SimTime(),
		"speed":            s.Run.Speed(),
		"width":            width,
		"height":           height,
		"mean_temperature": st.MeanTemp,
		"max_temperature":  st.MaxTemp,
		"mean_oxygen":      st.MeanOxygen,
		"burning_cells":    st.BurningCells,
		"burned_cells":     st.BurnedCells,
		"anomalies":        s.Sim.Anomalies(),
		"stream_clients":   streamClients,
	}
	writeJSON(w, status)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Store().Frame())
}

// handleCell serves GET /api/v1/cell/:row/:col.
func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	// /api/v1/cell/:row/:col → parts[0]="" [1]="api" [2]="v1" [3]="cell" [4]=row [5]=col
	if len(parts) < 6 {
		http.Error(w, "usage: /api/v1/cell/:row/:col", http.StatusBadRequest)
		return
	}
	row, err1 := strconv.Atoi(parts[4])
	col, err2 := strconv.Atoi(parts[5])
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	cell, err := s.Sim.Store().At(row, col)
	if err != nil {
		http.Error(w, "cell not found", http.StatusNotFound)
		return
	}
	writeJSON(w, cell)
}

func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Store().Registry().Materials())
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 120
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 5000 {
			limit = v
		}
	}

	rows, err := s.DB.StatsHistory(s.RunID, limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		// Return empty array instead of error, the table may be empty.
		writeJSON(w, []persistence.TickRow{})
		return
	}
	if rows == nil {
		rows = []persistence.TickRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleIgnitions(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	rows, err := s.DB.Ignitions(s.RunID)
	if err != nil {
		slog.Error("ignitions query failed", "error", err)
		writeJSON(w, []persistence.IgnitionRow{})
		return
	}
	if rows == nil {
		rows = []persistence.IgnitionRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleIgnite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Row             int     `json:"row"`
		Col             int     `json:"col"`
		DurationSeconds float64 `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.DurationSeconds == 0 {
		req.DurationSeconds = engine.DefaultIgnitionDuration
	}

	if err := s.Sim.TriggerManualIgnition(req.Row, req.Col, req.DurationSeconds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.DB != nil {
		if err := s.DB.RecordIgnition(s.RunID, s.Sim.CurrentTick(), req.Row, req.Col, req.DurationSeconds); err != nil {
			slog.Error("ignition record failed", "error", err)
		}
	}

	slog.Info("manual ignition", "row", req.Row, "col", req.Col, "duration_s", req.DurationSeconds)
	writeJSON(w, map[string]any{
		"success":          true,
		"row":              req.Row,
		"col":              req.Col,
		"duration_seconds": req.DurationSeconds,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 20 {
			http.Error(w, "speed must be 0-20", http.StatusBadRequest)
			return
		}
		s.Run.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Run.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
