// Package cluster groups parties or candidates into blocs that take similar
// positions on an election's theses.
package cluster

import (
	"math"
	"sort"

	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
)

// DefaultThreshold keeps two entities apart once they differ by more than
// roughly a third of the scale on an average thesis.
const DefaultThreshold = 0.35

// neutral stands in for theses an entity skipped or left unrated.
const neutral = 0.5

// Bloc is a group of entities with similar positions.
type Bloc struct {
	Members []match.Entity
	// Height is the largest merge height inside the bloc, 0 for a single member.
	Height float64
}

// Positions maps each entity to a point with one coordinate per thesis. Every
// coordinate is the entity's normalized answer divided by sqrt(len(thesisIDs)),
// so the distance between two points is the root mean square difference of
// their answers on the 0..1 scale.
func Positions(entities []match.Entity, thesisIDs []string, scaleSize int) [][]float64 {
	scale := 1.0
	if len(thesisIDs) > 0 {
		scale = 1 / math.Sqrt(float64(len(thesisIDs)))
	}

	points := make([][]float64, len(entities))
	for i, ent := range entities {
		p := make([]float64, len(thesisIDs))
		for j, id := range thesisIDs {
			v := neutral
			if answer, ok := ent.Ratings[id].Value(); ok {
				v = match.ScaleValueToNormalized(answer, scaleSize)
			}
			p[j] = v * scale
		}
		points[i] = p
	}
	return points
}

// Blocs clusters entities with Ward's linkage and cuts the dendrogram at
// threshold. Larger blocs come first; members keep their input order.
func Blocs(entities []match.Entity, thesisIDs []string, scaleSize int, threshold float64) []Bloc {
	n := len(entities)
	if n == 0 {
		return nil
	}

	merges := wardLinkage(Positions(entities, thesisIDs, scaleSize))
	labels := cut(merges, n, threshold)

	count := 0
	for _, l := range labels {
		count = max(count, l+1)
	}
	blocs := make([]Bloc, count)
	for i, l := range labels {
		blocs[l].Members = append(blocs[l].Members, entities[i])
	}

	// A merge below threshold joins points of the same bloc.
	first := make([]int, n+len(merges))
	for i := 0; i < n; i++ {
		first[i] = i
	}
	for step, m := range merges {
		first[n+step] = first[m.a]
		if m.height <= threshold {
			l := labels[first[m.a]]
			blocs[l].Height = math.Max(blocs[l].Height, m.height)
		}
	}

	sort.SliceStable(blocs, func(i, j int) bool {
		return len(blocs[i].Members) > len(blocs[j].Members)
	})
	return blocs
}

// ForElection clusters the parties or candidates of an election.
func ForElection(e *election.Election, kind match.Kind, threshold float64) []Bloc {
	ids := make([]string, len(e.Theses))
	for i, t := range e.Theses {
		ids[i] = t.ID
	}
	return Blocs(e.Entities(kind), ids, e.Decisions, threshold)
}
