// Package database persists elections and user rating sessions in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Foreign keys and the busy timeout are per connection, so they go in the DSN.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// GetStats returns aggregate row counts.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`
SELECT
    (SELECT COUNT(*) FROM elections),
    (SELECT COUNT(*) FROM theses),
    (SELECT COUNT(*) FROM entities WHERE kind = 'party'),
    (SELECT COUNT(*) FROM entities WHERE kind = 'candidate'),
    (SELECT COUNT(*) FROM sessions),
    (SELECT COUNT(*) FROM session_ratings)
`).Scan(&s.Elections, &s.Theses, &s.Parties, &s.Candidates, &s.Sessions, &s.SessionRatings)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
