// Package history records validation runs in a local SQLite database so
// score trends per document can be inspected later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/docgate/internal/model"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout has a fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Mode names the operation a run performed
type Mode string

const (
	ModeValidate    Mode = "validate"
	ModeProgressive Mode = "progressive"
	ModePartial     Mode = "partial"
)

// Run is one recorded validation
type Run struct {
	ID             string    `json:"id"`
	FilePath       string    `json:"file_path"`
	Mode           Mode      `json:"mode"`
	Score          float64   `json:"score"`
	Tier           string    `json:"tier,omitempty"`
	Passed         bool      `json:"passed"`
	SectionsTotal  int       `json:"sections_total,omitempty"`
	SectionsPassed int       `json:"sections_passed,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the run history database
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			file_path       TEXT NOT NULL,
			mode            TEXT NOT NULL,
			score           REAL NOT NULL,
			tier            TEXT NOT NULL DEFAULT '',
			passed          INTEGER NOT NULL,
			sections_total  INTEGER NOT NULL DEFAULT 0,
			sections_passed INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(file_path, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a run, filling in its ID and timestamp when unset
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, file_path, mode, score, tier, passed, sections_total, sections_passed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.FilePath, string(run.Mode), run.Score, run.Tier, run.Passed,
		run.SectionsTotal, run.SectionsPassed, run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return run, fmt.Errorf("history: record run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. An empty filePath lists
// every document; limit <= 0 means 20.
func (s *Store) List(ctx context.Context, filePath string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, file_path, mode, score, tier, passed, sections_total, sections_passed, created_at FROM runs`
	args := []any{}
	if filePath != "" {
		query += ` WHERE file_path = ?`
		args = append(args, filePath)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var mode, created string
		if err := rows.Scan(&r.ID, &r.FilePath, &mode, &r.Score, &r.Tier, &r.Passed,
			&r.SectionsTotal, &r.SectionsPassed, &created); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Mode = Mode(mode)
		if t, err := time.Parse(timeLayout, created); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs older than the cutoff and returns how many went
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

// FromResult describes a flat validation as a run
func FromResult(res model.DetailedValidationResult) Run {
	return Run{
		FilePath: res.FilePath,
		Mode:     ModeValidate,
		Score:    res.Score,
		Passed:   res.IsValid,
	}
}

// FromOutcome describes a progressive validation as a run
func FromOutcome(path string, o model.TieredOutcome) Run {
	return Run{
		FilePath: path,
		Mode:     ModeProgressive,
		Score:    o.Score(),
		Tier:     o.FinalTier.String(),
		Passed:   o.Accepted(),
	}
}

// FromAssembly describes a partial validation as a run
func FromAssembly(path string, a model.PartialAssembly) Run {
	return Run{
		FilePath:       path,
		Mode:           ModePartial,
		Score:          a.Whole.Score(),
		Tier:           a.Whole.FinalTier.String(),
		Passed:         a.OverallSuccess,
		SectionsTotal:  a.Total,
		SectionsPassed: a.Passed,
	}
}
