// Package bookkeeping persists selected WorkGraph tasks as track, phase and
// task records in a SQLite database.
package bookkeeping

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Track, Phase and TaskRecord mirror the stored rows.
type Track struct {
	ID          string
	Name        string
	Description string
	WorkGraphID string
	Status      string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Phase struct {
	ID        string
	TrackID   string
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TaskRecord struct {
	ID          string
	PhaseID     string
	Name        string
	Description string
	Status      string
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store manages the bookkeeping database.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath and applies the schema.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetTrack returns the track with the given id, or nil when absent.
func (s *Store) GetTrack(ctx context.Context, id string) (*Track, error) {
	var t Track
	var tags string
	err := s.db.QueryRowContext(ctx,
		`SELECT track_id, name, description, workgraph_id, status, tags, created_at, updated_at
		 FROM tracks WHERE track_id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.WorkGraphID, &t.Status, &tags, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	if tags != "" {
		t.Tags = strings.Split(tags, ",")
	}
	return &t, nil
}

// ListPhases returns the phases of a track ordered by id.
func (s *Store) ListPhases(ctx context.Context, trackID string) ([]Phase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phase_id, track_id, name, status, created_at, updated_at
		 FROM phases WHERE track_id = ? ORDER BY phase_id`, trackID)
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer rows.Close()

	var phases []Phase
	for rows.Next() {
		var p Phase
		if err := rows.Scan(&p.ID, &p.TrackID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

// ListTasks returns every task of a track ordered by priority.
func (s *Store) ListTasks(ctx context.Context, trackID string) ([]TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.task_id, t.phase_id, t.name, t.description, t.status, t.priority, t.created_at, t.updated_at
		 FROM tasks t JOIN phases p ON p.phase_id = t.phase_id
		 WHERE p.track_id = ? ORDER BY t.priority, t.task_id`, trackID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var t TaskRecord
		if err := rows.Scan(&t.ID, &t.PhaseID, &t.Name, &t.Description, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
