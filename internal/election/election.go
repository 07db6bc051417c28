// Package election describes an election's theses, parties and candidates and
// reads them from YAML definition files.
package election

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/TobiSchelling/VoteMatch/internal/match"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid election")

// Election is the complete setup data for one voting-advice questionnaire.
type Election struct {
	ID             string
	Name           string
	Description    string
	Decisions      int
	DecisionLabels []string
	Matrix         match.Matrix
	Theses         []Thesis
	Parties        []match.Entity
	Candidates     []match.Entity
}

// Thesis is an opinion statement respondents rate.
type Thesis struct {
	ID           string
	Category     string
	Text         string
	Explanations []Explanation
}

// Explanation attaches markdown to the half-open byte range [Start, End) of a
// thesis text.
type Explanation struct {
	Start int
	End   int
	Text  string
}

// Thesis returns the thesis with the given ID.
func (e *Election) Thesis(id string) (Thesis, bool) {
	for _, t := range e.Theses {
		if t.ID == id {
			return t, true
		}
	}
	return Thesis{}, false
}

// Entities returns the parties or candidates of the election.
func (e *Election) Entities(kind match.Kind) []match.Entity {
	if kind == match.KindCandidate {
		return e.Candidates
	}
	return e.Parties
}

// Party returns the party with the given ID.
func (e *Election) Party(id string) (match.Entity, bool) {
	for _, p := range e.Parties {
		if p.ID == id {
			return p, true
		}
	}
	return match.Entity{}, false
}

// Label returns the display label for a 1-based decision value.
func (e *Election) Label(value int) string {
	if value >= 1 && value <= len(e.DecisionLabels) {
		return e.DecisionLabels[value-1]
	}
	return fmt.Sprintf("%d", value)
}

// Categories returns the distinct thesis categories in first-seen order.
func (e *Election) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range e.Theses {
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	return out
}

// Validate reports the first inconsistency in e.
func (e *Election) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return invalid("election id is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return invalid("election %s: name is required", e.ID)
	}
	if e.Decisions < 2 {
		return invalid("election %s: decisions must be at least 2, got %d", e.ID, e.Decisions)
	}
	if err := e.Matrix.Validate(); err != nil {
		return fmt.Errorf("%w: election %s: %w", ErrInvalid, e.ID, err)
	}
	if e.Matrix.Size() != e.Decisions {
		return invalid("election %s: matrix is %dx%d but there are %d decisions", e.ID, e.Matrix.Size(), e.Matrix.Size(), e.Decisions)
	}
	if len(e.DecisionLabels) > 0 && len(e.DecisionLabels) != e.Decisions {
		return invalid("election %s: %d decision labels for %d decisions", e.ID, len(e.DecisionLabels), e.Decisions)
	}

	theses := make(map[string]bool, len(e.Theses))
	for _, t := range e.Theses {
		if t.ID == "" {
			return invalid("election %s: thesis without id", e.ID)
		}
		if theses[t.ID] {
			return invalid("election %s: duplicate thesis %s", e.ID, t.ID)
		}
		theses[t.ID] = true
		if strings.TrimSpace(t.Text) == "" {
			return invalid("thesis %s: text is required", t.ID)
		}
		if err := validateExplanations(t); err != nil {
			return err
		}
	}

	entities := make(map[string]bool)
	parties := make(map[string]bool)
	for _, group := range [][]match.Entity{e.Parties, e.Candidates} {
		for _, ent := range group {
			if ent.ID == "" {
				return invalid("election %s: %s without id", e.ID, ent.Kind)
			}
			if entities[ent.ID] {
				return invalid("election %s: duplicate entity %s", e.ID, ent.ID)
			}
			entities[ent.ID] = true
			if ent.Kind == match.KindParty {
				parties[ent.ID] = true
			}
			if ent.Name == "" {
				return invalid("%s %s: name is required", ent.Kind, ent.ID)
			}
			for thesisID, r := range ent.Ratings {
				if !theses[thesisID] {
					return invalid("%s %s: rating for unknown thesis %s", ent.Kind, ent.ID, thesisID)
				}
				if v, ok := r.Value(); ok && (v < 1 || v > e.Decisions) {
					return invalid("%s %s: rating %d for thesis %s is outside 1..%d", ent.Kind, ent.ID, v, thesisID, e.Decisions)
				}
			}
		}
	}
	for _, c := range e.Candidates {
		if c.Party != "" && !parties[c.Party] {
			return invalid("candidate %s: unknown party %s", c.ID, c.Party)
		}
	}
	return nil
}

func validateExplanations(t Thesis) error {
	spans := append([]Explanation(nil), t.Explanations...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	prevEnd := 0
	for _, x := range spans {
		if x.Start < 0 || x.End > len(t.Text) || x.Start >= x.End {
			return invalid("thesis %s: explanation range [%d, %d) outside text of length %d", t.ID, x.Start, x.End, len(t.Text))
		}
		if x.Start < prevEnd {
			return invalid("thesis %s: explanation at %d overlaps the previous one", t.ID, x.Start)
		}
		if strings.TrimSpace(x.Text) == "" {
			return invalid("thesis %s: explanation at %d is empty", t.ID, x.Start)
		}
		prevEnd = x.End
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
