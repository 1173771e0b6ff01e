package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"entity-harmonizer/internal/harmonize"
)

// ErrNoSession is returned when a dataset has no recorded session.
var ErrNoSession = errors.New("no recorded session")

// SQLite records harmonization sessions and their per-name outcomes.
type SQLite struct {
	db *sql.DB
}

// SessionSummary describes one recorded session.
type SessionSummary struct {
	ID          string
	Dataset     string
	Scorer      string
	Started     time.Time
	Finished    time.Time
	Interrupted bool
	Names       int
	Mapped      int
}

// OpenSQLite opens (or creates) the history database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized by SQLite anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLite{db: db}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		scorer TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		interrupted INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_dataset ON sessions(dataset, finished_at);

	CREATE TABLE IF NOT EXISTS mappings (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		raw_name TEXT NOT NULL,
		state TEXT NOT NULL,
		target TEXT,
		canonical INTEGER NOT NULL,
		score REAL NOT NULL,
		source TEXT,
		PRIMARY KEY (session_id, raw_name),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	`

	_, err := s.db.ExecContext(ctx, schema)

	return err
}

// SaveResult records res under dataset in one transaction.
func (s *SQLite) SaveResult(ctx context.Context, dataset string, res *harmonize.Result) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, dataset, scorer, started_at, finished_at, interrupted) VALUES (?, ?, ?, ?, ?, ?)`,
		res.SessionID, dataset, res.Scorer, formatTime(res.Started), formatTime(res.Finished), boolInt(res.Interrupted))
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", res.SessionID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO mappings (session_id, position, raw_name, state, target, canonical, score, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare mapping insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range res.Items {
		_, err = stmt.ExecContext(ctx, res.SessionID, i, it.Name, it.State.String(),
			it.Target, boolInt(it.Canonical), it.Score, string(it.Source))
		if err != nil {
			return fmt.Errorf("failed to insert mapping for %q: %w", it.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", res.SessionID, err)
	}

	return nil
}

// LatestMapping returns raw name -> target of the most recent session
// recorded for dataset, keeping only auto-matched and resolved names.
func (s *SQLite) LatestMapping(ctx context.Context, dataset string) (map[string]string, error) {
	latest, err := s.latestSession(ctx, dataset)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_name, target FROM mappings WHERE session_id = ? AND state IN (?, ?) ORDER BY position`,
		latest, harmonize.AutoMatched.String(), harmonize.Resolved.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]string)

	for rows.Next() {
		var raw, target string
		if err := rows.Scan(&raw, &target); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}

		mapping[raw] = target
	}

	return mapping, rows.Err()
}

// Sessions lists the sessions recorded for dataset, newest first.
func (s *SQLite) Sessions(ctx context.Context, dataset string) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.dataset, s.scorer, s.started_at, s.finished_at, s.interrupted,
			COUNT(m.raw_name),
			COALESCE(SUM(CASE WHEN m.state IN (?, ?) THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN mappings m ON m.session_id = s.id
		WHERE s.dataset = ?
		GROUP BY s.id
		ORDER BY s.finished_at DESC, s.rowid DESC`,
		harmonize.AutoMatched.String(), harmonize.Resolved.String(), dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary

	for rows.Next() {
		var (
			sum             SessionSummary
			started, finish string
		)

		if err := rows.Scan(&sum.ID, &sum.Dataset, &sum.Scorer, &started, &finish,
			&sum.Interrupted, &sum.Names, &sum.Mapped); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		if sum.Started, err = parseTime(started); err != nil {
			return nil, err
		}

		if sum.Finished, err = parseTime(finish); err != nil {
			return nil, err
		}

		out = append(out, sum)
	}

	return out, rows.Err()
}

func (s *SQLite) latestSession(ctx context.Context, dataset string) (string, error) {
	var id string

	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE dataset = ? ORDER BY finished_at DESC, rowid DESC LIMIT 1`,
		dataset).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w for dataset %q", ErrNoSession, dataset)
	}

	if err != nil {
		return "", fmt.Errorf("failed to query sessions: %w", err)
	}

	return id, nil
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}

	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
