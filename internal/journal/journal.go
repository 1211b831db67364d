// Package journal keeps a local SQLite record of every delivery attempt.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloudpico-node/internal/journal/migrate"
)

// Entry is one delivery attempt.
type Entry struct {
	ID            int64
	TakenAt       time.Time
	SensorID      string
	Temperature   float64
	Humidity      float64
	Pressure      float64
	State         string
	Err           string
	ResponseBytes int
	Truncated     bool
	Elapsed       time.Duration
}

// Summary counts attempts by final state.
type Summary map[string]int

type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the journal at path and migrates it.
// path may be ":memory:".
func Open(ctx context.Context, path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(newTraceConnector(dsn, logger))
	// One writer; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal ping: %w", err)
	}
	if _, err := migrate.Run(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal migrate: %w", err)
	}
	return &Journal{db: db, logger: logger}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends e and returns its row id.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.State == "" {
		return 0, errors.New("journal: entry without state")
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			taken_at, sensor_id, temperature_c, humidity_pct, pressure_hpa,
			state, error, response_bytes, truncated, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TakenAt.UTC().Format(time.RFC3339Nano), e.SensorID,
		e.Temperature, e.Humidity, e.Pressure,
		e.State, e.Err, e.ResponseBytes, e.Truncated, e.Elapsed.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert delivery: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, taken_at, sensor_id, temperature_c, humidity_pct, pressure_hpa,
		       state, error, response_bytes, truncated, elapsed_ms
		FROM deliveries
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			takenAt   string
			elapsedMS int64
		)
		if err := rows.Scan(&e.ID, &takenAt, &e.SensorID, &e.Temperature, &e.Humidity, &e.Pressure,
			&e.State, &e.Err, &e.ResponseBytes, &e.Truncated, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if e.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
			return nil, fmt.Errorf("parse taken_at %q: %w", takenAt, err)
		}
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM deliveries GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("summarise deliveries: %w", err)
	}
	defer rows.Close()
	out := Summary{}
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}

func buildDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("journal: empty path")
	}
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on", nil
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
