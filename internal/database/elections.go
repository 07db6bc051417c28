package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
)

// SaveElection stores e, replacing any earlier import with the same ID.
// Sessions started against an earlier import are kept.
func (db *DB) SaveElection(e *election.Election) error {
	matrixJSON, err := json.Marshal(e.Matrix)
	if err != nil {
		return fmt.Errorf("encoding matrix: %w", err)
	}
	var labelsJSON *string
	if len(e.DecisionLabels) > 0 {
		data, err := json.Marshal(e.DecisionLabels)
		if err != nil {
			return fmt.Errorf("encoding decision labels: %w", err)
		}
		s := string(data)
		labelsJSON = &s
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
INSERT INTO elections (id, name, description, decisions, decision_labels, matrix)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    description = excluded.description,
    decisions = excluded.decisions,
    decision_labels = excluded.decision_labels,
    matrix = excluded.matrix,
    imported_at = datetime('now')`,
		e.ID, e.Name, e.Description, e.Decisions, labelsJSON, string(matrixJSON),
	)
	if err != nil {
		return fmt.Errorf("saving election: %w", err)
	}

	if err := deleteElectionContent(tx, e.ID); err != nil {
		return err
	}

	for i, t := range e.Theses {
		if _, err := tx.Exec(
			`INSERT INTO theses (election_id, id, position, category, text) VALUES (?, ?, ?, ?, ?)`,
			e.ID, t.ID, i, t.Category, t.Text,
		); err != nil {
			return fmt.Errorf("saving thesis %s: %w", t.ID, err)
		}
		for _, x := range t.Explanations {
			if _, err := tx.Exec(
				`INSERT INTO thesis_explanations (election_id, thesis_id, start_offset, end_offset, text) VALUES (?, ?, ?, ?, ?)`,
				e.ID, t.ID, x.Start, x.End, x.Text,
			); err != nil {
				return fmt.Errorf("saving explanation for %s: %w", t.ID, err)
			}
		}
	}

	position := 0
	for _, group := range [][]match.Entity{e.Parties, e.Candidates} {
		for _, ent := range group {
			if err := insertEntity(tx, e.ID, position, ent); err != nil {
				return err
			}
			position++
		}
	}

	return tx.Commit()
}

func insertEntity(tx *sql.Tx, electionID string, position int, ent match.Entity) error {
	_, err := tx.Exec(`
INSERT INTO entities (election_id, id, kind, position, name, short_name, color, image, party_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		electionID, ent.ID, string(ent.Kind), position, ent.Name,
		nullable(ent.ShortName), nullable(ent.Color), nullable(ent.Image), nullable(ent.Party),
	)
	if err != nil {
		return fmt.Errorf("saving %s %s: %w", ent.Kind, ent.ID, err)
	}

	for thesisID, r := range ent.Ratings {
		status, value := ratingColumns(r)
		if _, err := tx.Exec(
			`INSERT INTO entity_ratings (election_id, entity_id, thesis_id, status, value) VALUES (?, ?, ?, ?, ?)`,
			electionID, ent.ID, thesisID, status, value,
		); err != nil {
			return fmt.Errorf("saving rating of %s for %s: %w", ent.ID, thesisID, err)
		}
	}
	return nil
}

func deleteElectionContent(tx *sql.Tx, electionID string) error {
	for _, table := range []string{"entity_ratings", "entities", "thesis_explanations", "theses"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE election_id = ?", electionID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// DeleteElection removes an election together with its sessions.
func (db *DB) DeleteElection(electionID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteElectionContent(tx, electionID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM session_ratings WHERE session_id IN (SELECT id FROM sessions WHERE election_id = ?)`,
		electionID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE election_id = ?", electionID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM elections WHERE id = ?", electionID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListElections returns a summary row per imported election.
func (db *DB) ListElections() ([]ElectionSummary, error) {
	rows, err := db.conn.Query(`
SELECT e.id, e.name, e.description, e.decisions,
    (SELECT COUNT(*) FROM theses t WHERE t.election_id = e.id),
    (SELECT COUNT(*) FROM entities p WHERE p.election_id = e.id AND p.kind = 'party'),
    (SELECT COUNT(*) FROM entities c WHERE c.election_id = e.id AND c.kind = 'candidate'),
    e.imported_at
FROM elections e
ORDER BY e.name, e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ElectionSummary
	for rows.Next() {
		var s ElectionSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Decisions,
			&s.ThesisCount, &s.PartyCount, &s.CandidateCount, &s.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetElection loads a complete election. It returns nil if none exists.
func (db *DB) GetElection(electionID string) (*election.Election, error) {
	var e election.Election
	var desc, labelsJSON *string
	var matrixJSON string
	err := db.conn.QueryRow(
		`SELECT id, name, description, decisions, decision_labels, matrix FROM elections WHERE id = ?`,
		electionID,
	).Scan(&e.ID, &e.Name, &desc, &e.Decisions, &labelsJSON, &matrixJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if desc != nil {
		e.Description = *desc
	}
	if err := json.Unmarshal([]byte(matrixJSON), &e.Matrix); err != nil {
		return nil, fmt.Errorf("decoding matrix of %s: %w", electionID, err)
	}
	if labelsJSON != nil {
		if err := json.Unmarshal([]byte(*labelsJSON), &e.DecisionLabels); err != nil {
			return nil, fmt.Errorf("decoding decision labels of %s: %w", electionID, err)
		}
	}

	if e.Theses, err = db.getTheses(electionID); err != nil {
		return nil, err
	}
	entities, err := db.getEntities(electionID)
	if err != nil {
		return nil, err
	}
	for _, ent := range entities {
		if ent.Kind == match.KindCandidate {
			e.Candidates = append(e.Candidates, ent)
		} else {
			e.Parties = append(e.Parties, ent)
		}
	}
	return &e, nil
}

func (db *DB) getTheses(electionID string) ([]election.Thesis, error) {
	rows, err := db.conn.Query(
		`SELECT id, category, text FROM theses WHERE election_id = ? ORDER BY position`,
		electionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var theses []election.Thesis
	index := make(map[string]int)
	for rows.Next() {
		var t election.Thesis
		var category *string
		if err := rows.Scan(&t.ID, &category, &t.Text); err != nil {
			return nil, err
		}
		if category != nil {
			t.Category = *category
		}
		index[t.ID] = len(theses)
		theses = append(theses, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	xrows, err := db.conn.Query(
		`SELECT thesis_id, start_offset, end_offset, text FROM thesis_explanations
		 WHERE election_id = ? ORDER BY thesis_id, start_offset`,
		electionID,
	)
	if err != nil {
		return nil, err
	}
	defer xrows.Close()

	for xrows.Next() {
		var thesisID string
		var x election.Explanation
		if err := xrows.Scan(&thesisID, &x.Start, &x.End, &x.Text); err != nil {
			return nil, err
		}
		if i, ok := index[thesisID]; ok {
			theses[i].Explanations = append(theses[i].Explanations, x)
		}
	}
	return theses, xrows.Err()
}

func (db *DB) getEntities(electionID string) ([]match.Entity, error) {
	rows, err := db.conn.Query(`
SELECT id, kind, name, short_name, color, image, party_id
FROM entities WHERE election_id = ? ORDER BY position`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []match.Entity
	index := make(map[string]int)
	for rows.Next() {
		var ent match.Entity
		var kind string
		var shortName, color, image, party *string
		if err := rows.Scan(&ent.ID, &kind, &ent.Name, &shortName, &color, &image, &party); err != nil {
			return nil, err
		}
		ent.Kind = match.Kind(kind)
		ent.ShortName = deref(shortName)
		ent.Color = deref(color)
		ent.Image = deref(image)
		ent.Party = deref(party)
		ent.Ratings = match.Ratings{}
		index[ent.ID] = len(entities)
		entities = append(entities, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rrows, err := db.conn.Query(
		`SELECT entity_id, thesis_id, status, value FROM entity_ratings WHERE election_id = ?`,
		electionID,
	)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()

	for rrows.Next() {
		var entityID, thesisID, status string
		var value sql.NullInt64
		if err := rrows.Scan(&entityID, &thesisID, &status, &value); err != nil {
			return nil, err
		}
		r, err := scanRating(status, value, false)
		if err != nil {
			return nil, fmt.Errorf("rating of %s for %s: %w", entityID, thesisID, err)
		}
		if i, ok := index[entityID]; ok {
			entities[i].Ratings.Set(thesisID, r)
		}
	}
	return entities, rrows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
