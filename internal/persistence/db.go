// Package persistence provides SQLite storage for generated cities,
// timelines and the generation run log.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/temporal"
)

// ErrNotFound is returned when a city or timeline id is not stored.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
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
	CREATE TABLE IF NOT EXISTS cities (
		id TEXT PRIMARY KEY,
		population INTEGER NOT NULL,
		city_size REAL NOT NULL,
		seed INTEGER NOT NULL,
		districts INTEGER NOT NULL,
		snapshot_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS timelines (
		id TEXT PRIMARY KEY,
		population INTEGER NOT NULL,
		city_size REAL NOT NULL,
		seed INTEGER NOT NULL,
		year_step INTEGER NOT NULL,
		total_years INTEGER NOT NULL,
		frames INTEGER NOT NULL,
		timeline_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS generation_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		target_id TEXT NOT NULL,
		seed INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metro_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cities_created ON cities(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON generation_runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CityRecord is the listing row of a stored city.
type CityRecord struct {
	ID         string    `db:"id" json:"id"`
	Population int       `db:"population" json:"population"`
	CitySize   float64   `db:"city_size" json:"city_size"`
	Seed       uint32    `db:"seed" json:"seed"`
	Districts  int       `db:"districts" json:"districts"`
	CreatedMs  int64     `db:"created_at" json:"-"`
	CreatedAt  time.Time `db:"-" json:"created_at"`
}

// SaveCity stores a snapshot under id, replacing any previous one.
func (db *DB) SaveCity(id string, snap *city.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal city %s: %w", id, err)
	}
	_, err = db.conn.Exec(`INSERT OR REPLACE INTO cities
		(id, population, city_size, seed, districts, snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, snap.Population, snap.CitySize, snap.Seed, len(snap.Districts),
		string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert city %s: %w", id, err)
	}
	return nil
}

// LoadCity reads a stored snapshot. Stored documents go through the same
// normalization as imports.
func (db *DB) LoadCity(id string) (*city.Snapshot, error) {
	var data string
	err := db.conn.Get(&data, "SELECT snapshot_json FROM cities WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("city %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load city %s: %w", id, err)
	}
	return city.DecodeSnapshot([]byte(data))
}

// ListCities returns the most recently stored cities first.
func (db *DB) ListCities(limit int) ([]CityRecord, error) {
	var records []CityRecord
	err := db.conn.Select(&records,
		`SELECT id, population, city_size, seed, districts, created_at
		 FROM cities ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].CreatedAt = time.UnixMilli(records[i].CreatedMs).UTC()
	}
	return records, nil
}

// SaveTimeline stores a timeline under its metadata id.
func (db *DB) SaveTimeline(tl *temporal.Timeline) error {
	data, err := json.Marshal(tl)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	m := tl.Metadata
	_, err = db.conn.Exec(`INSERT OR REPLACE INTO timelines
		(id, population, city_size, seed, year_step, total_years, frames, timeline_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Population, m.CitySize, m.MasterSeed, m.YearStep, m.TotalYears,
		len(tl.Frames), string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert timeline %s: %w", m.ID, err)
	}
	return nil
}

// LoadTimeline reads a stored timeline.
func (db *DB) LoadTimeline(id string) (*temporal.Timeline, error) {
	var data string
	err := db.conn.Get(&data, "SELECT timeline_json FROM timelines WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("timeline %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", id, err)
	}
	var tl temporal.Timeline
	if err := json.Unmarshal([]byte(data), &tl); err != nil {
		return nil, fmt.Errorf("decode timeline %s: %w", id, err)
	}
	return &tl, nil
}

// Run is one entry of the generation log.
type Run struct {
	ID         string    `db:"id" json:"id"`
	Kind       string    `db:"kind" json:"kind"` // "city", "timeline", "import", "evolve"
	TargetID   string    `db:"target_id" json:"target_id"`
	Seed       uint32    `db:"seed" json:"seed"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
	CreatedMs  int64     `db:"created_at" json:"-"`
	CreatedAt  time.Time `db:"-" json:"created_at"`
}

// NewRun starts a log entry with a fresh id.
func NewRun(kind, targetID string, seed uint32, took time.Duration) Run {
	now := time.Now().UTC()
	return Run{
		ID:         uuid.New().String(),
		Kind:       kind,
		TargetID:   targetID,
		Seed:       seed,
		DurationMs: took.Milliseconds(),
		CreatedMs:  now.UnixMilli(),
		CreatedAt:  now,
	}
}

// RecordRun appends a run to the log.
func (db *DB) RecordRun(r Run) error {
	_, err := db.conn.NamedExec(`INSERT INTO generation_runs
		(id, kind, target_id, seed, duration_ms, created_at)
		VALUES (:id, :kind, :target_id, :seed, :duration_ms, :created_at)`, r)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// RecentRuns returns the most recent N runs.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		`SELECT id, kind, target_id, seed, duration_ms, created_at
		 FROM generation_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].CreatedAt = time.UnixMilli(runs[i].CreatedMs).UTC()
	}
	return runs, nil
}

// ImportCities stores several snapshots in one transaction.
func (db *DB) ImportCities(snaps map[string]*city.Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO cities
		(id, population, city_size, seed, districts, snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().UnixMilli()
	for id, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal city %s: %w", id, err)
		}
		if _, err := stmt.Exec(id, snap.Population, snap.CitySize, snap.Seed, len(snap.Districts), string(data), now); err != nil {
			return fmt.Errorf("insert city %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("cities imported", "count", len(snaps))
	return nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO metro_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM metro_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %s: %w", key, ErrNotFound)
	}
	return value, err
}
