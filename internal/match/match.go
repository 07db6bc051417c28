// Package match scores how closely parties and candidates agree with a user.
//
// The engine is a pure function over a scoring matrix, a set of entities and
// the user's ratings; it performs no I/O and never mutates its inputs.
package match

import (
	"math"
	"sort"
)

// Kind distinguishes the two sorts of scorable entities.
type Kind string

const (
	KindParty     Kind = "party"
	KindCandidate Kind = "candidate"
)

// Entity is a party or candidate together with its stance on each thesis.
type Entity struct {
	ID        string
	Kind      Kind
	Name      string
	ShortName string
	Color     string
	Image     string
	Party     string // owning party ID, candidates only
	Ratings   Ratings
}

// Result is one entity's match against the user.
type Result struct {
	Entity          Entity
	MatchPercentage float64
}

// CalculateResults scores every entity against userRatings and returns the
// results ranked from best to worst match. Ties are ordered by entity ID.
//
// Theses that either side skipped or left unrated are left out of both the
// score and the maximum, so an entity that never answered is not penalized.
// An entity with no comparable theses scores 0.
func CalculateResults(matrix Matrix, entities []Entity, userRatings Ratings) ([]Result, error) {
	if err := matrix.Validate(); err != nil {
		return nil, err
	}

	s := newScorer(matrix)
	results := make([]Result, len(entities))
	for i, e := range entities {
		results[i] = Result{Entity: e, MatchPercentage: s.score(e.Ratings, userRatings)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchPercentage != b.MatchPercentage {
			return a.MatchPercentage > b.MatchPercentage
		}
		return a.Entity.ID < b.Entity.ID
	})
	return results, nil
}

// scorer holds the per-call values shared by every entity.
type scorer struct {
	matrix  Matrix
	n       int
	divider float64 // width of one decision level on the 0-100 scale
	lo, hi  float64
}

func newScorer(m Matrix) *scorer {
	lo, hi := m.Bounds()
	return &scorer{
		matrix:  m,
		n:       m.Size(),
		divider: 100 / float64(m.Size()-1),
		lo:      lo,
		hi:      hi,
	}
}

func (s *scorer) score(entityRatings, userRatings Ratings) float64 {
	var points, maxPoints, maxMinusPoints float64

	for thesisID, user := range userRatings {
		entity, ok := entityRatings[thesisID]
		if !ok {
			continue
		}
		uv, ok := user.Value()
		if !ok {
			continue
		}
		ev, ok := entity.Value()
		if !ok {
			continue
		}

		weight := 1.0
		if user.Favorite {
			weight = 2
		}
		maxPoints += weight * s.hi
		maxMinusPoints += weight * s.lo

		row := s.index(ev)
		col := s.index(uv)
		points += s.matrix[row][col] * weight
	}

	shift := math.Abs(maxMinusPoints)
	maxPoints += shift
	points += shift

	if maxPoints == 0 {
		return 0
	}
	return math.Round(points/maxPoints*1000) / 10
}

// index maps a scale value to its matrix row or column via the 0-100 scale.
func (s *scorer) index(v int) int {
	normalized := ScaleValueToNormalized(v, s.n) * 100
	i := int(math.Round(normalized / s.divider))
	return min(max(i, 0), s.n-1)
}
