package election

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/VoteMatch/internal/match"
)

type fileElection struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	Description    string       `yaml:"description"`
	Decisions      int          `yaml:"decisions"`
	DecisionLabels []string     `yaml:"decision_labels"`
	Matrix         [][]float64  `yaml:"matrix"`
	Theses         []fileThesis `yaml:"theses"`
	Parties        []fileEntity `yaml:"parties"`
	Candidates     []fileEntity `yaml:"candidates"`
}

type fileThesis struct {
	ID           string            `yaml:"id"`
	Category     string            `yaml:"category"`
	Text         string            `yaml:"text"`
	Explanations []fileExplanation `yaml:"explanations"`
}

// fileExplanation locates its span either by offsets or by quoting the
// phrase it explains.
type fileExplanation struct {
	Start  *int   `yaml:"start"`
	End    *int   `yaml:"end"`
	Phrase string `yaml:"phrase"`
	Text   string `yaml:"text"`
}

type fileEntity struct {
	ID        string                `yaml:"id"`
	Name      string                `yaml:"name"`
	ShortName string                `yaml:"short_name"`
	Color     string                `yaml:"color"`
	Image     string                `yaml:"image"`
	Party     string                `yaml:"party"`
	Ratings   map[string]fileRating `yaml:"ratings"`
}

// fileRating accepts `3`, `skip`, `null` or `{value: 3, favorite: true}`.
type fileRating match.Rating

func (r *fileRating) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		rating, err := parseScalarRating(node.Value, node.Tag)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = fileRating(rating)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Value    *int `yaml:"value"`
			Skip     bool `yaml:"skip"`
			Favorite bool `yaml:"favorite"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		var rating match.Rating
		switch {
		case raw.Skip:
			rating = match.Skip()
		case raw.Value != nil:
			rating = match.Rate(*raw.Value)
		}
		*r = fileRating(rating.WithFavorite(raw.Favorite))
		return nil
	}
	return fmt.Errorf("line %d: rating must be a number, \"skip\" or a mapping", node.Line)
}

func parseScalarRating(value, tag string) (match.Rating, error) {
	if tag == "!!null" {
		return match.Rating{}, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "skip", "skipped":
		return match.Skip(), nil
	case "", "~", "unrated":
		return match.Rating{}, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return match.Rating{}, fmt.Errorf("invalid rating %q", value)
	}
	return match.Rate(v), nil
}

// Load reads and validates an election definition file.
func Load(path string, defaultDecisions int) (*Election, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading election file: %w", err)
	}
	return Parse(data, defaultDecisions)
}

// Parse decodes a YAML election definition. defaultDecisions is used when the
// file gives neither a decision count nor a matrix; a missing matrix falls
// back to match.DefaultMatrix.
func Parse(data []byte, defaultDecisions int) (*Election, error) {
	var f fileElection
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing election file: %w", err)
	}

	e := &Election{
		ID:             f.ID,
		Name:           f.Name,
		Description:    f.Description,
		Decisions:      f.Decisions,
		DecisionLabels: f.DecisionLabels,
		Matrix:         match.Matrix(f.Matrix),
	}
	if e.Decisions == 0 {
		e.Decisions = defaultDecisions
		if len(e.Matrix) > 0 {
			e.Decisions = len(e.Matrix)
		}
	}
	if len(e.Matrix) == 0 {
		e.Matrix = match.DefaultMatrix(e.Decisions)
	}

	for _, ft := range f.Theses {
		t := Thesis{ID: ft.ID, Category: ft.Category, Text: strings.TrimSpace(ft.Text)}
		for _, fx := range ft.Explanations {
			x, err := fx.resolve(t)
			if err != nil {
				return nil, err
			}
			t.Explanations = append(t.Explanations, x)
		}
		e.Theses = append(e.Theses, t)
	}
	for _, fe := range f.Parties {
		e.Parties = append(e.Parties, fe.entity(match.KindParty))
	}
	for _, fe := range f.Candidates {
		e.Candidates = append(e.Candidates, fe.entity(match.KindCandidate))
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (fx fileExplanation) resolve(t Thesis) (Explanation, error) {
	x := Explanation{Text: strings.TrimSpace(fx.Text)}
	switch {
	case fx.Start != nil && fx.End != nil:
		x.Start, x.End = *fx.Start, *fx.End
	case fx.Phrase != "":
		i := strings.Index(t.Text, fx.Phrase)
		if i < 0 {
			return x, invalid("thesis %s: phrase %q not found in text", t.ID, fx.Phrase)
		}
		x.Start, x.End = i, i+len(fx.Phrase)
	default:
		return x, invalid("thesis %s: explanation needs start/end or phrase", t.ID)
	}
	return x, nil
}

func (fe fileEntity) entity(kind match.Kind) match.Entity {
	ent := match.Entity{
		ID:        fe.ID,
		Kind:      kind,
		Name:      fe.Name,
		ShortName: fe.ShortName,
		Color:     fe.Color,
		Image:     fe.Image,
		Party:     fe.Party,
		Ratings:   make(match.Ratings, len(fe.Ratings)),
	}
	for thesisID, r := range fe.Ratings {
		ent.Ratings.Set(thesisID, match.Rating(r))
	}
	return ent
}

// LoadAnswers reads a user answers file mapping thesis IDs to ratings.
func LoadAnswers(path string) (match.Ratings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading answers file: %w", err)
	}
	return ParseAnswers(data)
}

// ParseAnswers decodes a YAML mapping of thesis IDs to ratings.
func ParseAnswers(data []byte) (match.Ratings, error) {
	var raw map[string]fileRating
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing answers: %w", err)
	}
	out := make(match.Ratings, len(raw))
	for id, r := range raw {
		out.Set(id, match.Rating(r))
	}
	return out, nil
}

// CheckAnswers verifies that ratings only reference theses of e and hold
// values within its decision range.
func (e *Election) CheckAnswers(ratings match.Ratings) error {
	for id, r := range ratings {
		if _, ok := e.Thesis(id); !ok {
			return invalid("answer for unknown thesis %s", id)
		}
		if v, ok := r.Value(); ok && (v < 1 || v > e.Decisions) {
			return invalid("answer %d for thesis %s is outside 1..%d", v, id, e.Decisions)
		}
	}
	return nil
}
