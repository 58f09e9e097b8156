package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talgya/firefront/internal/engine"
	"github.com/talgya/firefront/internal/grid"
	"github.com/talgya/firefront/internal/material"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg, err := material.NewRegistry(material.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	dist, err := material.NewDistribution(material.DefaultWeights(), reg)
	if err != nil {
		t.Fatal(err)
	}
	layout := grid.UniformLayout(8, 6, dist, 7)
	store, err := grid.New(8, 6, layout, reg, grid.Options{})
	if err != nil {
		t.Fatal(err)
	}
	sim := engine.NewSimulation(store)
	return &Server{
		Sim:   sim,
		Run:   engine.NewRunner(sim),
		RunID: "test-run",
		Port:  0,
	}
}

func TestStatusHandler(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["width"].(float64) != 8 || body["height"].(float64) != 6 {
		t.Fatalf("dims = %v x %v", body["width"], body["height"])
	}
	if body["tick"].(float64) != 0 {
		t.Fatalf("fresh sim reports tick %v", body["tick"])
	}
	if body["run_id"].(string) != "test-run" {
		t.Fatalf("run_id = %v", body["run_id"])
	}
}

func TestFrameHandler(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/frame", nil)
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)

	var frame grid.Frame
	if err := json.Unmarshal(rec.Body.Bytes(), &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Width != 8 || frame.Height != 6 {
		t.Fatalf("frame dims %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Temp) != 48 {
		t.Fatalf("frame has %d temperature cells", len(frame.Temp))
	}
}

func TestCellHandler(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		path string
		code int
	}{
		{"/api/v1/cell/2/3", http.StatusOK},
		{"/api/v1/cell/99/0", http.StatusNotFound},
		{"/api/v1/cell/a/b", http.StatusBadRequest},
		{"/api/v1/cell/2", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		rec := httptest.NewRecorder()
		s.handleCell(rec, req)
		if rec.Code != tc.code {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cell/2/3", nil)
	rec := httptest.NewRecorder()
	s.handleCell(rec, req)
	var cell grid.Cell
	if err := json.Unmarshal(rec.Body.Bytes(), &cell); err != nil {
		t.Fatal(err)
	}
	if cell.Row != 2 || cell.Col != 3 {
		t.Fatalf("cell at %d,%d", cell.Row, cell.Col)
	}
}

func TestMaterialsHandler(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil)
	rec := httptest.NewRecorder()
	s.handleMaterials(rec, req)

	var mats []material.Material
	if err := json.Unmarshal(rec.Body.Bytes(), &mats); err != nil {
		t.Fatal(err)
	}
	if len(mats) != 4 {
		t.Fatalf("got %d materials", len(mats))
	}
}

func TestIgniteHandler(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"row": 3, "col": 4, "duration_seconds": 1.5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ignite", body)
	rec := httptest.NewRecorder()
	s.handleIgnite(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ignite status = %d: %s", rec.Code, rec.Body.String())
	}

	// The overlay takes effect on the next step.
	if err := s.Sim.Step(0.05); err != nil {
		t.Fatal(err)
	}
	cell, err := s.Sim.Store().At(3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if cell.Temp < 1000 {
		t.Fatalf("ignited cell at %.1f degrees", cell.Temp)
	}
}

func TestIgniteHandlerRejections(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		method string
		body   string
		code   int
	}{
		{"get", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"out of bounds", http.MethodPost, `{"row": 100, "col": 0}`, http.StatusBadRequest},
		{"negative duration", http.MethodPost, `{"row": 0, "col": 0, "duration_seconds": -1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/api/v1/ignite", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		s.handleIgnite(rec, req)
		if rec.Code != tc.code {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.code)
		}
	}
}

func TestIgniteDefaultDuration(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ignite", strings.NewReader(`{"row": 1, "col": 1}`))
	rec := httptest.NewRecorder()
	s.handleIgnite(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["duration_seconds"].(float64) != engine.DefaultIgnitionDuration {
		t.Fatalf("default duration = %v", resp["duration_seconds"])
	}
}

func TestSpeedRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	s.AdminKey = "secret"
	handler := s.adminOnly(s.handleSpeed)

	// GET passes through without auth.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/speed", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unauthenticated GET: %d", rec.Code)
	}

	// POST without a token is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": 2}`))
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated POST: %d", rec.Code)
	}

	// POST with the right token changes speed.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": 2}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated POST: %d", rec.Code)
	}
	if got := s.Run.Speed(); got != 2 {
		t.Fatalf("speed = %v", got)
	}

	// Out-of-range speed is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": 100}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("overspeed POST: %d", rec.Code)
	}
}

func TestSpeedDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t)
	handler := s.adminOnly(s.handleSpeed)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": 2}`))
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHistoryUnavailableWithoutDB(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/history", nil)
	rec := httptest.NewRecorder()
	s.handleStatsHistory(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request allowed")
	}
	// Other IPs have their own window.
	if !rl.Allow("10.0.0.2") {
		t.Fatal("separate IP denied")
	}
	if rl.RetryAfter("10.0.0.1") <= 0 {
		t.Fatal("no retry-after for limited IP")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	calls := 0
	handler := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ignite", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	handler(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
	if calls != 1 {
		t.Fatalf("handler called %d times", calls)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:8123"
	if got := clientIP(req); got != "192.168.1.5" {
		t.Fatalf("clientIP = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("forwarded clientIP = %q", got)
	}
}
