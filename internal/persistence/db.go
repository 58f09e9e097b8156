// Package persistence records run history in SQLite: per-run metadata,
// sampled aggregate statistics, and manual-ignition events. Field state is
// never stored. Runs are not resumable; the tables exist for the status
// and history endpoints.
package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/firefront/internal/grid"
)

// DB wraps a SQLite connection for run recording.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		layout TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tick_stats (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		mean_temp REAL NOT NULL,
		max_temp REAL NOT NULL,
		mean_oxygen REAL NOT NULL,
		burning_cells INTEGER NOT NULL,
		burned_cells INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS ignitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		duration REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tick_stats_run ON tick_stats(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_ignitions_run ON ignitions(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun registers a new run and returns its ID.
func (db *DB) StartRun(seed int64, width, height int, layout string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, seed, width, height, layout, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, seed, width, height, layout, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordTick stores one sampled aggregate row.
func (db *DB) RecordTick(runID string, tick uint64, st grid.Stats) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO tick_stats
		 (run_id, tick, mean_temp, max_temp, mean_oxygen, burning_cells, burned_cells)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, tick, st.MeanTemp, st.MaxTemp, st.MeanOxygen, st.BurningCells, st.BurnedCells,
	)
	if err != nil {
		return fmt.Errorf("insert tick %d: %w", tick, err)
	}
	return nil
}

// RecordIgnition stores one manual-ignition event.
func (db *DB) RecordIgnition(runID string, tick uint64, row, col int, duration float64) error {
	_, err := db.conn.Exec(
		`INSERT INTO ignitions (run_id, tick, row, col, duration) VALUES (?, ?, ?, ?, ?)`,
		runID, tick, row, col, duration,
	)
	if err != nil {
		return fmt.Errorf("insert ignition: %w", err)
	}
	return nil
}

// TickRow is one sampled aggregate row for the history endpoint.
type TickRow struct {
	Tick         uint64  `db:"tick" json:"tick"`
	MeanTemp     float64 `db:"mean_temp" json:"mean_temperature"`
	MaxTemp      float64 `db:"max_temp" json:"max_temperature"`
	MeanOxygen   float64 `db:"mean_oxygen" json:"mean_oxygen"`
	BurningCells int     `db:"burning_cells" json:"burning_cells"`
	BurnedCells  int     `db:"burned_cells" json:"burned_cells"`
}

// StatsHistory returns the most recent sampled rows for a run, newest last.
func (db *DB) StatsHistory(runID string, limit int) ([]TickRow, error) {
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}
	var rows []TickRow
	err := db.conn.Select(&rows,
		`SELECT tick, mean_temp, max_temp, mean_oxygen, burning_cells, burned_cells
		 FROM (SELECT * FROM tick_stats WHERE run_id = ? ORDER BY tick DESC LIMIT ?)
		 ORDER BY tick ASC`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return rows, nil
}

// IgnitionRow is one recorded manual-ignition event.
type IgnitionRow struct {
	Tick     uint64  `db:"tick" json:"tick"`
	Row      int     `db:"row" json:"row"`
	Col      int     `db:"col" json:"col"`
	Duration float64 `db:"duration" json:"duration_seconds"`
}

// Ignitions returns the recorded ignition events for a run, oldest first.
func (db *DB) Ignitions(runID string) ([]IgnitionRow, error) {
	var rows []IgnitionRow
	err := db.conn.Select(&rows,
		`SELECT tick, row, col, duration FROM ignitions WHERE run_id = ? ORDER BY tick ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("select ignitions: %w", err)
	}
	return rows, nil
}
