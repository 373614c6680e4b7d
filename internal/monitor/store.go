package monitor

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists file snapshots in SQLite so growth rates survive restarts.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path. Use ":memory:" for an
// in-memory database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			path     TEXT    NOT NULL,
			taken_at INTEGER NOT NULL,
			lines    INTEGER NOT NULL,
			size     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS snapshots_path_taken ON snapshots (path, taken_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

// Insert records one snapshot.
func (s *Store) Insert(snap Snapshot) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshots (path, taken_at, lines, size) VALUES (?, ?, ?, ?)`,
		snap.Path, snap.At.UnixNano(), snap.Lines, snap.Size,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Since returns every snapshot taken at or after t, oldest first.
func (s *Store) Since(t time.Time) ([]Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT path, taken_at, lines, size FROM snapshots
		 WHERE taken_at >= ? ORDER BY taken_at`, t.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap Snapshot
			at   int64
		)
		if err := rows.Scan(&snap.Path, &at, &snap.Lines, &snap.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.At = time.Unix(0, at).UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune deletes snapshots taken before t and reports how many were removed.
func (s *Store) Prune(t time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE taken_at < ?`, t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}
