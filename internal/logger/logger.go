// Package logger implements the append-only, best-effort detection store
// described in spec §4.3: a single sqlite file, idempotent schema, and
// every write serialized behind one mutex so persistence failures never
// become fatal to the scanner.
package logger

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nondem/sdrscan/internal/detect"
)

const schema = `
CREATE TABLE IF NOT EXISTS detections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	frequency_hz REAL NOT NULL,
	power_db REAL NOT NULL,
	band_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp);
CREATE INDEX IF NOT EXISTS idx_detections_frequency_hz ON detections(frequency_hz);
CREATE INDEX IF NOT EXISTS idx_detections_band_name ON detections(band_name);
`

// Row is a single persisted detection. PowerDb is the power above the
// noise floor at detection time, not the absolute FFT bin power.
type Row struct {
	ID          int64
	Timestamp   string
	FrequencyHz float64
	PowerDb     float64
	BandName    string
}

// Logger is a mutex-serialized handle to the detections table in a single
// sqlite file. Constructing a second Logger over the same path is
// idempotent: schema creation never fails or duplicates objects.
type Logger struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite file at path and ensures
// the detections schema exists.
func Open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("logger: create schema: %w", err)
	}
	return &Logger{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

// LogEvent persists a detection event. It is best-effort: on any
// persistence failure the error is logged and false is returned; the
// caller must not treat this as fatal (§4.3, §7).
func (l *Logger) LogEvent(ev detect.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(
		`INSERT INTO detections (timestamp, frequency_hz, power_db, band_name) VALUES (?, ?, ?, ?)`,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		ev.FrequencyHz,
		ev.RelativePowerDb,
		ev.BandName,
	)
	if err != nil {
		log.Printf("logger: log_event failed: %v", err)
		return false
	}
	return true
}

// Recent returns up to limit rows, newest-first by insertion id.
func (l *Logger) Recent(limit int) ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(
		`SELECT id, timestamp, frequency_hz, power_db, band_name FROM detections ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("logger: recent: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.FrequencyHz, &r.PowerDb, &r.BandName); err != nil {
			return nil, fmt.Errorf("logger: recent: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the total number of persisted detections.
func (l *Logger) Count() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n uint64
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("logger: count: %w", err)
	}
	return n, nil
}

// Clear removes all persisted detections.
func (l *Logger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("logger: clear: %w", err)
	}
	return nil
}

// Prune removes detections older than cutoff. Supplements §4.3's clear()
// with the teacher's periodic-retention idiom (noise_floor.go's CSV
// cleanup), expressed here as a single SQL statement.
func (l *Logger) Prune(cutoff time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`DELETE FROM detections WHERE timestamp < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("logger: prune: %w", err)
	}
	return nil
}
