package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "elections, theses and entities",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS elections (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    decisions INTEGER NOT NULL,
    decision_labels TEXT,
    matrix TEXT NOT NULL,
    imported_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS theses (
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    category TEXT,
    text TEXT NOT NULL,
    PRIMARY KEY (election_id, id)
);

CREATE TABLE IF NOT EXISTS thesis_explanations (
    election_id TEXT NOT NULL,
    thesis_id TEXT NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    text TEXT NOT NULL,
    FOREIGN KEY (election_id, thesis_id) REFERENCES theses(election_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS entities (
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('party', 'candidate')),
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    short_name TEXT,
    color TEXT,
    image TEXT,
    party_id TEXT,
    PRIMARY KEY (election_id, id)
);

CREATE TABLE IF NOT EXISTS entity_ratings (
    election_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    thesis_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('rated', 'skipped', 'unrated')),
    value INTEGER,
    PRIMARY KEY (election_id, entity_id, thesis_id),
    FOREIGN KEY (election_id, entity_id) REFERENCES entities(election_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_explanations_thesis ON thesis_explanations(election_id, thesis_id);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(election_id, kind);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "user rating sessions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS session_ratings (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    thesis_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('rated', 'skipped', 'unrated')),
    value INTEGER,
    favorite INTEGER DEFAULT 0,
    updated_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (session_id, thesis_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_election ON sessions(election_id);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
