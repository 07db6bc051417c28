package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/VoteMatch/internal/match"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// CreateSession records a new session for an election.
func (db *DB) CreateSession(sessionID, electionID string) error {
	_, err := db.conn.Exec(
		`INSERT INTO sessions (id, election_id) VALUES (?, ?)`,
		sessionID, electionID,
	)
	return err
}

// GetSession returns a session by ID, or nil if it does not exist.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	var s Session
	err := db.conn.QueryRow(
		`SELECT id, election_id, created_at, updated_at FROM sessions WHERE id = ?`,
		sessionID,
	).Scan(&s.ID, &s.ElectionID, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSessionRating stores the rating for one thesis, replacing the previous one.
func (db *DB) PutSessionRating(sessionID, thesisID string, r match.Rating) error {
	status, value := ratingColumns(r)
	return db.upsertRating(sessionID, `
INSERT INTO session_ratings (session_id, thesis_id, status, value, favorite)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_id, thesis_id) DO UPDATE SET
    status = excluded.status,
    value = excluded.value,
    favorite = excluded.favorite,
    updated_at = datetime('now')`,
		sessionID, thesisID, status, value, boolToInt(r.Favorite),
	)
}

// PutSessionAnswer stores the answer for one thesis and keeps its stored
// favorite flag. The flag of r is used only when no row exists yet.
func (db *DB) PutSessionAnswer(sessionID, thesisID string, r match.Rating) error {
	status, value := ratingColumns(r)
	return db.upsertRating(sessionID, `
INSERT INTO session_ratings (session_id, thesis_id, status, value, favorite)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_id, thesis_id) DO UPDATE SET
    status = excluded.status,
    value = excluded.value,
    updated_at = datetime('now')`,
		sessionID, thesisID, status, value, boolToInt(r.Favorite),
	)
}

// PutSessionFavorite sets the favorite flag of one thesis and keeps its
// stored answer. A thesis without a row becomes an unrated favorite.
func (db *DB) PutSessionFavorite(sessionID, thesisID string, favorite bool) error {
	return db.upsertRating(sessionID, `
INSERT INTO session_ratings (session_id, thesis_id, status, value, favorite)
VALUES (?, ?, 'unrated', NULL, ?)
ON CONFLICT(session_id, thesis_id) DO UPDATE SET
    favorite = excluded.favorite,
    updated_at = datetime('now')`,
		sessionID, thesisID, boolToInt(favorite),
	)
}

// upsertRating runs a single-statement rating write and touches the session
// in the same transaction. Merging happens in SQL, so concurrent writers of
// the answer and of the flag cannot overwrite each other.
func (db *DB) upsertRating(sessionID, query string, args ...any) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("saving rating: %w", err)
	}
	if err := touchSession(tx, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSessionRatings returns every stored rating of a session.
func (db *DB) GetSessionRatings(sessionID string) (match.Ratings, error) {
	rows, err := db.conn.Query(
		`SELECT thesis_id, status, value, favorite FROM session_ratings WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := match.Ratings{}
	for rows.Next() {
		var thesisID, status string
		var value sql.NullInt64
		var favorite int
		if err := rows.Scan(&thesisID, &status, &value, &favorite); err != nil {
			return nil, err
		}
		r, err := scanRating(status, value, favorite != 0)
		if err != nil {
			return nil, fmt.Errorf("rating for %s: %w", thesisID, err)
		}
		ratings.Set(thesisID, r)
	}
	return ratings, rows.Err()
}

// ClearSessionRatings removes all ratings of a session.
func (db *DB) ClearSessionRatings(sessionID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM session_ratings WHERE session_id = ?", sessionID); err != nil {
		return err
	}
	if err := touchSession(tx, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSessionsBefore removes sessions last updated before cutoff and
// returns how many were deleted.
func (db *DB) DeleteSessionsBefore(cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(sqliteTimeFormat)

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM session_ratings WHERE session_id IN (SELECT id FROM sessions WHERE updated_at < ?)`, ts,
	); err != nil {
		return 0, err
	}
	result, err := tx.Exec(`DELETE FROM sessions WHERE updated_at < ?`, ts)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func touchSession(tx *sql.Tx, sessionID string) error {
	_, err := tx.Exec(`UPDATE sessions SET updated_at = datetime('now') WHERE id = ?`, sessionID)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
