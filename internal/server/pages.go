package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/TobiSchelling/VoteMatch/internal/compose"
	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
)

type optionView struct {
	Value    int
	Label    string
	Selected bool
}

type thesisView struct {
	Number   int
	ID       string
	Category string
	Segments []election.Segment
	Rating   match.Rating
	Options  []optionView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	elections, err := s.db.ListElections()
	if err != nil {
		s.renderError(w, err)
		return
	}

	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Elections": elections,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Start(r.PathValue("id"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+sess.ID, http.StatusSeeOther)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Results(r.PathValue("id"))
	if err != nil {
		s.renderError(w, err)
		return
	}

	e := out.Election
	theses := make([]thesisView, 0, len(e.Theses))
	for i, t := range e.Theses {
		rating := out.Ratings[t.ID]
		current, _ := rating.Value()
		options := make([]optionView, 0, e.Decisions)
		for v := 1; v <= e.Decisions; v++ {
			options = append(options, optionView{Value: v, Label: e.Label(v), Selected: v == current})
		}
		theses = append(theses, thesisView{
			Number:   i + 1,
			ID:       t.ID,
			Category: t.Category,
			Segments: t.Segments(),
			Rating:   rating,
			Options:  options,
		})
	}

	s.render(w, http.StatusOK, "session.html", map[string]any{
		"Outcome": out,
		"Theses":  theses,
	})
}

// handleRateForm applies one questionnaire button press. The form's action
// field is one of rate, skip, clear, favorite or unfavorite.
func (s *Server) handleRateForm(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	thesisID := r.PathValue("thesis")

	var err error
	switch action := r.FormValue("action"); action {
	case "rate":
		v, convErr := strconv.Atoi(r.FormValue("value"))
		if convErr != nil {
			http.Error(w, "invalid value", http.StatusBadRequest)
			return
		}
		err = s.store.Rate(sessionID, thesisID, match.Rate(v))
	case "skip":
		err = s.store.Rate(sessionID, thesisID, match.Skip())
	case "clear":
		err = s.store.Rate(sessionID, thesisID, match.Rating{})
	case "favorite", "unfavorite":
		err = s.store.SetFavorite(sessionID, thesisID, action == "favorite")
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.renderError(w, err)
		return
	}

	http.Redirect(w, r, "/sessions/"+sessionID+"#thesis-"+thesisID, http.StatusSeeOther)
}

func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if err := s.store.Reset(sessionID); err != nil {
		s.renderError(w, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+sessionID, http.StatusSeeOther)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Results(r.PathValue("id"))
	if err != nil {
		s.renderError(w, err)
		return
	}

	s.render(w, http.StatusOK, "results.html", map[string]any{
		"Outcome": out,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Results(r.PathValue("id"))
	if err != nil {
		s.renderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="votematch-results.md"`)
	w.Write([]byte(compose.Report(out, compose.Options{Candidates: true})))
}
