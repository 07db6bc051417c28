package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TobiSchelling/VoteMatch/internal/cluster"
	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
	"github.com/TobiSchelling/VoteMatch/internal/session"
)

type ratingJSON struct {
	Status   string `json:"status"`
	Value    *int   `json:"value,omitempty"`
	Favorite *bool  `json:"favorite,omitempty"`
}

type explanationJSON struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

type thesisJSON struct {
	ID           string            `json:"id"`
	Category     string            `json:"category,omitempty"`
	Text         string            `json:"text"`
	Explanations []explanationJSON `json:"explanations,omitempty"`
}

type entityJSON struct {
	ID        string                `json:"id"`
	Kind      string                `json:"kind"`
	Name      string                `json:"name"`
	ShortName string                `json:"short_name,omitempty"`
	Color     string                `json:"color,omitempty"`
	Image     string                `json:"image,omitempty"`
	Party     string                `json:"party,omitempty"`
	Ratings   map[string]ratingJSON `json:"ratings,omitempty"`
}

type electionJSON struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Decisions      int          `json:"decisions"`
	DecisionLabels []string     `json:"decision_labels,omitempty"`
	Theses         []thesisJSON `json:"theses"`
	Parties        []entityJSON `json:"parties"`
	Candidates     []entityJSON `json:"candidates"`
}

type electionSummaryJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Decisions   int    `json:"decisions"`
	Theses      int    `json:"theses"`
	Parties     int    `json:"parties"`
	Candidates  int    `json:"candidates"`
	ImportedAt  string `json:"imported_at,omitempty"`
}

type resultJSON struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	Name            string  `json:"name"`
	ShortName       string  `json:"short_name,omitempty"`
	Color           string  `json:"color,omitempty"`
	Party           string  `json:"party,omitempty"`
	MatchPercentage float64 `json:"match_percentage"`
}

type outcomeJSON struct {
	SessionID  string       `json:"session_id,omitempty"`
	ElectionID string       `json:"election_id"`
	Rated      int          `json:"rated"`
	Skipped    int          `json:"skipped"`
	Total      int          `json:"total"`
	Parties    []resultJSON `json:"parties"`
	Candidates []resultJSON `json:"candidates,omitempty"`
}

type sessionJSON struct {
	ID         string `json:"id"`
	ElectionID string `json:"election_id"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type blocJSON struct {
	Spread  float64  `json:"spread"`
	Members []string `json:"members"`
}

type matchRequest struct {
	Ratings    map[string]ratingJSON `json:"ratings"`
	Candidates bool                  `json:"candidates"`
}

type createSessionRequest struct {
	ElectionID string `json:"election_id"`
}

func (s *Server) apiListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := s.db.ListElections()
	if err != nil {
		s.apiError(w, err)
		return
	}

	out := make([]electionSummaryJSON, 0, len(elections))
	for _, e := range elections {
		out = append(out, electionSummaryJSON{
			ID:          e.ID,
			Name:        e.Name,
			Description: deref(e.Description),
			Decisions:   e.Decisions,
			Theses:      e.ThesisCount,
			Parties:     e.PartyCount,
			Candidates:  e.CandidateCount,
			ImportedAt:  deref(e.ImportedAt),
		})
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) apiGetElection(w http.ResponseWriter, r *http.Request) {
	e, err := s.election(r.PathValue("id"))
	if err != nil {
		s.apiError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toElectionJSON(e))
}

// apiMatch scores ratings sent in the request body without storing them.
func (s *Server) apiMatch(w http.ResponseWriter, r *http.Request) {
	e, err := s.election(r.PathValue("id"))
	if err != nil {
		s.apiError(w, err)
		return
	}

	var req matchRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ratings := make(match.Ratings, len(req.Ratings))
	for thesisID, rj := range req.Ratings {
		rating, err := rj.rating()
		if err != nil {
			errorResponse(w, http.StatusBadRequest, fmt.Sprintf("thesis %s: %v", thesisID, err))
			return
		}
		ratings.Set(thesisID, rating)
	}
	if err := e.CheckAnswers(ratings); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := session.Evaluate(e, ratings)
	if err != nil {
		s.apiError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toOutcomeJSON(out, req.Candidates))
}

// apiBlocs groups an election's parties, or its candidates with
// ?kind=candidate, by the similarity of their positions.
func (s *Server) apiBlocs(w http.ResponseWriter, r *http.Request) {
	e, err := s.election(r.PathValue("id"))
	if err != nil {
		s.apiError(w, err)
		return
	}

	kind := match.KindParty
	switch k := r.URL.Query().Get("kind"); k {
	case "", string(match.KindParty):
	case string(match.KindCandidate):
		kind = match.KindCandidate
	default:
		errorResponse(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", k))
		return
	}

	threshold := cluster.DefaultThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		threshold, err = strconv.ParseFloat(v, 64)
		if err != nil || threshold < 0 {
			errorResponse(w, http.StatusBadRequest, "threshold must be a non-negative number")
			return
		}
	}

	blocs := cluster.ForElection(e, kind, threshold)
	out := make([]blocJSON, 0, len(blocs))
	for _, b := range blocs {
		bj := blocJSON{Spread: b.Height, Members: make([]string, 0, len(b.Members))}
		for _, m := range b.Members {
			bj.Members = append(bj.Members, m.ID)
		}
		out = append(out, bj)
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) apiCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ElectionID == "" {
		errorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	sess, err := s.store.Start(req.ElectionID)
	if err != nil {
		s.apiError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, sessionJSON{
		ID:         sess.ID,
		ElectionID: sess.ElectionID,
		CreatedAt:  deref(sess.CreatedAt),
	})
}

// apiPutRating stores a rating. A request without "favorite" keeps the
// thesis' current favorite flag.
func (s *Server) apiPutRating(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	thesisID := r.PathValue("thesis")

	var req ratingJSON
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rating, err := req.rating()
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Favorite == nil {
		err = s.store.Rate(sessionID, thesisID, rating)
	} else {
		err = s.store.Put(sessionID, thesisID, rating)
	}
	if err != nil {
		s.apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.PathValue("id")); err != nil {
		s.apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiResults(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Results(r.PathValue("id"))
	if err != nil {
		s.apiError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toOutcomeJSON(out, r.URL.Query().Get("candidates") != "false"))
}

func (s *Server) election(id string) (*election.Election, error) {
	e, err := s.db.GetElection(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("election %s: %w", id, session.ErrNotFound)
	}
	return e, nil
}

func (s *Server) apiError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("api request failed", "error", err)
	}
	errorResponse(w, status, publicMessage(status, err))
}

func (rj ratingJSON) rating() (match.Rating, error) {
	status, err := match.ParseStatus(rj.Status)
	if err != nil {
		return match.Rating{}, err
	}
	if rj.Status == "" && rj.Value != nil {
		status = match.Rated
	}

	var r match.Rating
	switch status {
	case match.Rated:
		if rj.Value == nil {
			return match.Rating{}, errors.New("value is required for a rated thesis")
		}
		r = match.Rate(*rj.Value)
	case match.Skipped:
		r = match.Skip()
	}
	if rj.Favorite != nil {
		r = r.WithFavorite(*rj.Favorite)
	}
	return r, nil
}

func toRatingJSON(r match.Rating) ratingJSON {
	out := ratingJSON{Status: r.Status().String()}
	if v, ok := r.Value(); ok {
		out.Value = &v
	}
	if r.Favorite {
		fav := true
		out.Favorite = &fav
	}
	return out
}

func toElectionJSON(e *election.Election) electionJSON {
	out := electionJSON{
		ID:             e.ID,
		Name:           e.Name,
		Description:    e.Description,
		Decisions:      e.Decisions,
		DecisionLabels: e.DecisionLabels,
		Theses:         make([]thesisJSON, 0, len(e.Theses)),
		Parties:        toEntitiesJSON(e.Parties),
		Candidates:     toEntitiesJSON(e.Candidates),
	}
	for _, t := range e.Theses {
		tj := thesisJSON{ID: t.ID, Category: t.Category, Text: t.Text}
		for _, x := range t.Explanations {
			tj.Explanations = append(tj.Explanations, explanationJSON{Start: x.Start, End: x.End, Text: x.Text})
		}
		out.Theses = append(out.Theses, tj)
	}
	return out
}

func toEntitiesJSON(entities []match.Entity) []entityJSON {
	out := make([]entityJSON, 0, len(entities))
	for _, ent := range entities {
		ej := entityJSON{
			ID:        ent.ID,
			Kind:      string(ent.Kind),
			Name:      ent.Name,
			ShortName: ent.ShortName,
			Color:     ent.Color,
			Image:     ent.Image,
			Party:     ent.Party,
			Ratings:   make(map[string]ratingJSON, len(ent.Ratings)),
		}
		for thesisID, r := range ent.Ratings {
			ej.Ratings[thesisID] = toRatingJSON(r)
		}
		out = append(out, ej)
	}
	return out
}

func toResultsJSON(results []match.Result) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, res := range results {
		out = append(out, resultJSON{
			ID:              res.Entity.ID,
			Kind:            string(res.Entity.Kind),
			Name:            res.Entity.Name,
			ShortName:       res.Entity.ShortName,
			Color:           res.Entity.Color,
			Party:           res.Entity.Party,
			MatchPercentage: res.MatchPercentage,
		})
	}
	return out
}

func toOutcomeJSON(out *session.Outcome, withCandidates bool) outcomeJSON {
	oj := outcomeJSON{
		SessionID:  out.SessionID,
		ElectionID: out.Election.ID,
		Rated:      out.Rated,
		Skipped:    out.Skipped,
		Total:      out.Total,
		Parties:    toResultsJSON(out.Parties),
	}
	if withCandidates {
		oj.Candidates = toResultsJSON(out.Candidates)
	}
	return oj
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
