package cluster

import (
	"math"
	"testing"

	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
)

var theses = []string{"t1", "t2"}

// left and centre-left sit apart from right and centre-right.
func testParties() []match.Entity {
	return []match.Entity{
		{ID: "left", Ratings: match.Ratings{"t1": match.Rate(3), "t2": match.Rate(3)}},
		{ID: "right", Ratings: match.Ratings{"t1": match.Rate(1), "t2": match.Rate(1)}},
		{ID: "centre-left", Ratings: match.Ratings{"t1": match.Rate(3), "t2": match.Rate(2)}},
		{ID: "centre-right", Ratings: match.Ratings{"t1": match.Rate(1), "t2": match.Skip()}},
	}
}

func memberIDs(b Bloc) []string {
	ids := make([]string, len(b.Members))
	for i, m := range b.Members {
		ids[i] = m.ID
	}
	return ids
}

func TestPositions(t *testing.T) {
	points := Positions(testParties(), theses, 3)

	s := 1 / math.Sqrt2
	expected := [][]float64{
		{s, s},
		{0, 0},
		{s, 0.5 * s},
		{0, 0.5 * s}, // skipped counts as neutral
	}
	for i := range expected {
		for j := range expected[i] {
			if math.Abs(points[i][j]-expected[i][j]) > 1e-10 {
				t.Errorf("points[%d][%d] = %f, expected %f", i, j, points[i][j], expected[i][j])
			}
		}
	}
}

func TestBlocsTwoCamps(t *testing.T) {
	blocs := Blocs(testParties(), theses, 3, 0.4)

	if len(blocs) != 2 {
		t.Fatalf("expected 2 blocs, got %d", len(blocs))
	}
	if got := memberIDs(blocs[0]); len(got) != 2 || got[0] != "left" || got[1] != "centre-left" {
		t.Errorf("unexpected first bloc %v", got)
	}
	if got := memberIDs(blocs[1]); len(got) != 2 || got[0] != "right" || got[1] != "centre-right" {
		t.Errorf("unexpected second bloc %v", got)
	}

	// RMS difference of half a scale on one of two theses.
	want := 0.5 / math.Sqrt2
	for _, b := range blocs {
		if math.Abs(b.Height-want) > 1e-9 {
			t.Errorf("bloc %v height = %f, expected %f", memberIDs(b), b.Height, want)
		}
	}
}

func TestBlocsThresholds(t *testing.T) {
	singles := Blocs(testParties(), theses, 3, 0.1)
	if len(singles) != 4 {
		t.Fatalf("expected 4 blocs, got %d", len(singles))
	}
	for _, b := range singles {
		if b.Height != 0 {
			t.Errorf("single-member bloc %v has height %f", memberIDs(b), b.Height)
		}
	}
	if singles[0].Members[0].ID != "left" || singles[3].Members[0].ID != "centre-right" {
		t.Errorf("expected input order for equal sizes, got %v ... %v", memberIDs(singles[0]), memberIDs(singles[3]))
	}

	all := Blocs(testParties(), theses, 3, 10)
	if len(all) != 1 || len(all[0].Members) != 4 {
		t.Fatalf("expected one bloc of 4, got %+v", all)
	}
	if all[0].Height <= 0.4 {
		t.Errorf("expected final height above the camp heights, got %f", all[0].Height)
	}
}

func TestBlocsEdgeCases(t *testing.T) {
	if blocs := Blocs(nil, theses, 3, DefaultThreshold); blocs != nil {
		t.Errorf("expected nil, got %v", blocs)
	}

	one := Blocs(testParties()[:1], theses, 3, DefaultThreshold)
	if len(one) != 1 || len(one[0].Members) != 1 || one[0].Height != 0 {
		t.Errorf("unexpected result for one entity: %+v", one)
	}

	// Without theses every entity sits at the origin.
	same := Blocs(testParties(), nil, 3, 0)
	if len(same) != 1 {
		t.Errorf("expected one bloc without theses, got %d", len(same))
	}
}

func TestForElection(t *testing.T) {
	e := &election.Election{
		ID:        "e1",
		Decisions: 3,
		Theses:    []election.Thesis{{ID: "t1", Text: "One."}, {ID: "t2", Text: "Two."}},
		Parties:   testParties(),
		Candidates: []match.Entity{
			{ID: "c1", Kind: match.KindCandidate, Ratings: match.Ratings{"t1": match.Rate(1)}},
		},
	}

	if got := ForElection(e, match.KindParty, 0.4); len(got) != 2 {
		t.Errorf("expected 2 party blocs, got %d", len(got))
	}
	if got := ForElection(e, match.KindCandidate, 0.4); len(got) != 1 || got[0].Members[0].ID != "c1" {
		t.Errorf("unexpected candidate blocs %+v", got)
	}
}
