// Package session owns a user's ratings for one election and turns them into
// ranked match results.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/VoteMatch/internal/database"
	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownThesis = errors.New("unknown thesis")
	ErrInvalidRating = errors.New("invalid rating")
)

// Backend is the storage the Store reads and writes. *database.DB implements it.
type Backend interface {
	GetElection(electionID string) (*election.Election, error)
	CreateSession(sessionID, electionID string) error
	GetSession(sessionID string) (*database.Session, error)
	PutSessionRating(sessionID, thesisID string, r match.Rating) error
	PutSessionAnswer(sessionID, thesisID string, r match.Rating) error
	PutSessionFavorite(sessionID, thesisID string, favorite bool) error
	GetSessionRatings(sessionID string) (match.Ratings, error)
	ClearSessionRatings(sessionID string) error
	DeleteSessionsBefore(cutoff time.Time) (int64, error)
}

// Store manages rating sessions.
type Store struct {
	backend Backend
	now     func() time.Time
}

// NewStore creates a Store on top of backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// Outcome is the state of a session: the ratings given so far and the
// resulting ranking of parties and candidates.
type Outcome struct {
	SessionID  string
	Election   *election.Election
	Ratings    match.Ratings
	Parties    []match.Result
	Candidates []match.Result
	Rated      int
	Skipped    int
	Total      int
}

// Start opens a new session for an election.
func (s *Store) Start(electionID string) (*database.Session, error) {
	e, err := s.backend.GetElection(electionID)
	if err != nil {
		return nil, fmt.Errorf("loading election: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("election %s: %w", electionID, ErrNotFound)
	}

	id := uuid.NewString()
	if err := s.backend.CreateSession(id, electionID); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	slog.Debug("session started", "session_id", id, "election_id", electionID)

	sess, err := s.backend.GetSession(id)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Rate records an answer for a thesis, keeping the thesis' favorite flag.
func (s *Store) Rate(sessionID, thesisID string, r match.Rating) error {
	return s.write(sessionID, thesisID, r, func() error {
		return s.backend.PutSessionAnswer(sessionID, thesisID, r.WithFavorite(false))
	})
}

// SetFavorite marks or unmarks a thesis as favorite without touching the answer.
func (s *Store) SetFavorite(sessionID, thesisID string, favorite bool) error {
	return s.write(sessionID, thesisID, match.Rating{}, func() error {
		return s.backend.PutSessionFavorite(sessionID, thesisID, favorite)
	})
}

// Put replaces the whole rating of a thesis, favorite flag included.
func (s *Store) Put(sessionID, thesisID string, r match.Rating) error {
	return s.write(sessionID, thesisID, r, func() error {
		return s.backend.PutSessionRating(sessionID, thesisID, r)
	})
}

// write validates thesisID and the incoming value against the session's
// election, then runs save. Each save is a single backend write, so no
// read-modify-write spans two calls.
func (s *Store) write(sessionID, thesisID string, incoming match.Rating, save func() error) error {
	_, e, err := s.load(sessionID)
	if err != nil {
		return err
	}
	if _, ok := e.Thesis(thesisID); !ok {
		return fmt.Errorf("thesis %s in election %s: %w", thesisID, e.ID, ErrUnknownThesis)
	}
	if v, ok := incoming.Value(); ok && (v < 1 || v > e.Decisions) {
		return fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidRating, v, e.Decisions)
	}

	if err := save(); err != nil {
		return fmt.Errorf("saving rating: %w", err)
	}
	slog.Debug("rating stored", "session_id", sessionID, "thesis_id", thesisID)
	return nil
}

// Reset discards every rating of a session.
func (s *Store) Reset(sessionID string) error {
	if _, _, err := s.load(sessionID); err != nil {
		return err
	}
	return s.backend.ClearSessionRatings(sessionID)
}

// Results computes the current outcome of a session.
func (s *Store) Results(sessionID string) (*Outcome, error) {
	_, e, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.backend.GetSessionRatings(sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading ratings: %w", err)
	}

	out, err := Evaluate(e, ratings)
	if err != nil {
		return nil, err
	}
	out.SessionID = sessionID
	return out, nil
}

// Prune deletes sessions that have not changed for longer than maxAge.
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	n, err := s.backend.DeleteSessionsBefore(s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	if n > 0 {
		slog.Info("pruned sessions", "count", n, "max_age", maxAge.String())
	}
	return n, nil
}

func (s *Store) load(sessionID string) (*database.Session, *election.Election, error) {
	sess, err := s.backend.GetSession(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	e, err := s.backend.GetElection(sess.ElectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading election: %w", err)
	}
	if e == nil {
		return nil, nil, fmt.Errorf("election %s: %w", sess.ElectionID, ErrNotFound)
	}
	return sess, e, nil
}

// Evaluate ranks the election's parties and candidates against ratings.
// Ratings for theses the election does not contain are ignored.
func Evaluate(e *election.Election, ratings match.Ratings) (*Outcome, error) {
	known := make(match.Ratings, len(ratings))
	out := &Outcome{Election: e, Ratings: known, Total: len(e.Theses)}
	for _, t := range e.Theses {
		r, ok := ratings[t.ID]
		if !ok {
			continue
		}
		known.Set(t.ID, r)
		switch r.Status() {
		case match.Rated:
			out.Rated++
		case match.Skipped:
			out.Skipped++
		}
	}

	var err error
	if out.Parties, err = match.CalculateResults(e.Matrix, e.Parties, known); err != nil {
		return nil, fmt.Errorf("scoring parties of %s: %w", e.ID, err)
	}
	if out.Candidates, err = match.CalculateResults(e.Matrix, e.Candidates, known); err != nil {
		return nil, fmt.Errorf("scoring candidates of %s: %w", e.ID, err)
	}
	return out, nil
}
