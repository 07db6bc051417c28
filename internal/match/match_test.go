package match

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func party(id string, ratings Ratings) Entity {
	return Entity{ID: id, Kind: KindParty, Name: "Party " + id, Ratings: ratings}
}

func percentages(results []Result) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.MatchPercentage
	}
	return out
}

func TestCalculateResultsPerfectAgreement(t *testing.T) {
	matrix := Matrix{{100, 50, 0}, {50, 100, 50}, {0, 50, 100}}
	user := Ratings{"t1": Rate(3)}
	entities := []Entity{party("a", Ratings{"t1": Rate(3)})}

	results, err := CalculateResults(matrix, entities, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].MatchPercentage != 100 {
		t.Errorf("expected 100, got %v", results[0].MatchPercentage)
	}
}

func TestCalculateResultsPerfectAgreementManyTheses(t *testing.T) {
	matrix := DefaultMatrix(5)
	user := Ratings{}
	theirs := Ratings{}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("t%d", i)
		user.Set(id, Rate(i))
		theirs.Set(id, Rate(i))
	}
	user.Set("t2", Rate(2).WithFavorite(true))

	results, err := CalculateResults(matrix, []Entity{party("a", theirs)}, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].MatchPercentage != 100 {
		t.Errorf("expected 100, got %v", results[0].MatchPercentage)
	}
}

func TestCalculateResultsZeroOverlap(t *testing.T) {
	matrix := DefaultMatrix(3)
	user := Ratings{"t1": Rate(1), "t2": Rate(2)}
	entities := []Entity{
		party("a", Ratings{"t3": Rate(1)}),
		party("b", Ratings{}),
		party("c", nil),
	}

	results, err := CalculateResults(matrix, entities, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.MatchPercentage != 0 {
			t.Errorf("entity %s: expected 0, got %v", r.Entity.ID, r.MatchPercentage)
		}
	}
}

func TestCalculateResultsEmptyUserRatings(t *testing.T) {
	matrix := DefaultMatrix(3)
	entities := []Entity{
		party("a", Ratings{"t1": Rate(1), "t2": Rate(3)}),
		party("b", Ratings{"t1": Rate(2)}),
	}

	for _, user := range []Ratings{nil, {}} {
		results, err := CalculateResults(matrix, entities, user)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		for _, r := range results {
			if r.MatchPercentage != 0 {
				t.Errorf("entity %s: expected 0, got %v", r.Entity.ID, r.MatchPercentage)
			}
		}
	}
}

func TestCalculateResultsNoEntities(t *testing.T) {
	results, err := CalculateResults(DefaultMatrix(3), nil, Ratings{"t1": Rate(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestCalculateResultsSkippedAndUnrated(t *testing.T) {
	matrix := DefaultMatrix(3)
	user := Ratings{
		"t1": Rate(1),
		"t2": Skip(),
		"t3": Rating{Favorite: true}, // unrated favorite
		"t4": Rate(3),
	}
	entity := party("a", Ratings{
		"t1": Rate(1),
		"t2": Rate(1),
		"t3": Rate(1),
		"t4": Skip(),
	})

	results, err := CalculateResults(matrix, []Entity{entity}, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only t1 is comparable on both sides.
	if results[0].MatchPercentage != 100 {
		t.Errorf("expected 100, got %v", results[0].MatchPercentage)
	}
}

func TestCalculateResultsRankingOrder(t *testing.T) {
	matrix := Matrix{{100, 0}, {0, 100}}
	user := Ratings{}
	for i := 0; i < 20; i++ {
		user.Set(fmt.Sprintf("t%02d", i), Rate(1))
	}
	agreeing := func(id string, k int) Entity {
		rs := Ratings{}
		for i := 0; i < 20; i++ {
			v := 2
			if i < k {
				v = 1
			}
			rs.Set(fmt.Sprintf("t%02d", i), Rate(v))
		}
		return party(id, rs)
	}

	entities := []Entity{agreeing("low", 2), agreeing("high", 16), agreeing("mid", 9)}
	results, err := CalculateResults(matrix, entities, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{80, 45, 10}
	got := percentages(results)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if results[0].Entity.ID != "high" || results[2].Entity.ID != "low" {
		t.Errorf("unexpected order: %s, %s, %s", results[0].Entity.ID, results[1].Entity.ID, results[2].Entity.ID)
	}
	// Input order is untouched.
	if entities[0].ID != "low" {
		t.Error("input slice was reordered")
	}
}

func TestCalculateResultsTieBreakByID(t *testing.T) {
	matrix := DefaultMatrix(3)
	user := Ratings{"t1": Rate(2)}
	entities := []Entity{
		party("c", Ratings{"t1": Rate(1)}),
		party("b", Ratings{"t1": Rate(3)}),
		party("a", Ratings{"t1": Rate(1)}),
	}

	results, err := CalculateResults(matrix, entities, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, id := range []string{"a", "b", "c"} {
		if results[i].Entity.ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, results[i].Entity.ID)
		}
		if results[i].MatchPercentage != 50 {
			t.Errorf("position %d: expected 50, got %v", i, results[i].MatchPercentage)
		}
	}
}

func TestCalculateResultsFavoriteWeighting(t *testing.T) {
	matrix := DefaultMatrix(3)
	entity := party("a", Ratings{"agree": Rate(1), "disagree": Rate(3)})

	tests := []struct {
		name string
		user Ratings
		want float64
	}{
		{"no favorite", Ratings{"agree": Rate(1), "disagree": Rate(1)}, 50},
		{"favorite agreement", Ratings{"agree": Rate(1).WithFavorite(true), "disagree": Rate(1)}, 66.7},
		{"favorite disagreement", Ratings{"agree": Rate(1), "disagree": Rate(1).WithFavorite(true)}, 33.3},
		{"both favorite", Ratings{"agree": Rate(1).WithFavorite(true), "disagree": Rate(1).WithFavorite(true)}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := CalculateResults(matrix, []Entity{entity}, tt.user)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := results[0].MatchPercentage; got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCalculateResultsEntityFavoriteIgnored(t *testing.T) {
	matrix := DefaultMatrix(3)
	user := Ratings{"agree": Rate(1), "disagree": Rate(1)}
	entity := party("a", Ratings{"agree": Rate(1).WithFavorite(true), "disagree": Rate(3)})

	results, err := CalculateResults(matrix, []Entity{entity}, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].MatchPercentage != 50 {
		t.Errorf("expected 50, got %v", results[0].MatchPercentage)
	}
}

func TestCalculateResultsNegativeMatrix(t *testing.T) {
	matrix := Matrix{{2, -1}, {-1, 2}}

	tests := []struct {
		name   string
		theirs Ratings
		want   float64
	}{
		{"full disagreement", Ratings{"t1": Rate(2), "t2": Rate(1)}, 0},
		{"full agreement", Ratings{"t1": Rate(1), "t2": Rate(2)}, 100},
		{"half", Ratings{"t1": Rate(1), "t2": Rate(1)}, 50},
	}
	user := Ratings{"t1": Rate(1), "t2": Rate(2)}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := CalculateResults(matrix, []Entity{party("a", tt.theirs)}, user)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := results[0].MatchPercentage; got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCalculateResultsAsymmetricMatrix(t *testing.T) {
	// Rows are indexed by the entity's answer, columns by the user's.
	matrix := Matrix{{100, 0}, {50, 100}}
	entities := []Entity{
		party("entity-no", Ratings{"t1": Rate(2)}),
		party("entity-yes", Ratings{"t1": Rate(1)}),
	}

	results, err := CalculateResults(matrix, entities, Ratings{"t1": Rate(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := map[string]float64{}
	for _, r := range results {
		got[r.Entity.ID] = r.MatchPercentage
	}
	if got["entity-yes"] != 100 {
		t.Errorf("entity-yes: expected 100, got %v", got["entity-yes"])
	}
	if got["entity-no"] != 50 {
		t.Errorf("entity-no: expected 50, got %v", got["entity-no"])
	}

	results, _ = CalculateResults(matrix, []Entity{party("a", Ratings{"t1": Rate(1)})}, Ratings{"t1": Rate(2)})
	if results[0].MatchPercentage != 0 {
		t.Errorf("expected matrix[0][1] = 0 to score 0, got %v", results[0].MatchPercentage)
	}
}

func TestCalculateResultsClampsOutOfRangeValues(t *testing.T) {
	matrix := DefaultMatrix(3)
	user := Ratings{"t1": Rate(3), "t2": Rate(1)}
	entity := party("a", Ratings{"t1": Rate(7), "t2": Rate(-4)})

	results, err := CalculateResults(matrix, []Entity{entity}, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].MatchPercentage != 100 {
		t.Errorf("expected clamped values to agree fully, got %v", results[0].MatchPercentage)
	}
}

func TestCalculateResultsOneDecimal(t *testing.T) {
	matrix := DefaultMatrix(3)
	user := Ratings{"t1": Rate(1), "t2": Rate(1), "t3": Rate(1)}
	entity := party("a", Ratings{"t1": Rate(1), "t2": Rate(3), "t3": Rate(3)})

	results, err := CalculateResults(matrix, []Entity{entity}, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].MatchPercentage != 33.3 {
		t.Errorf("expected 33.3, got %v", results[0].MatchPercentage)
	}
}

func TestCalculateResultsInvalidMatrix(t *testing.T) {
	tests := []struct {
		name   string
		matrix Matrix
	}{
		{"nil", nil},
		{"empty", Matrix{}},
		{"single level", Matrix{{1}}},
		{"not square", Matrix{{1, 2, 3}, {4, 5, 6}}},
		{"ragged", Matrix{{1, 2}, {3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateResults(tt.matrix, []Entity{party("a", nil)}, Ratings{"t1": Rate(1)})
			if err == nil {
				t.Fatal("expected error")
			}
			var mErr *InvalidMatrixError
			if !errors.As(err, &mErr) {
				t.Errorf("expected *InvalidMatrixError, got %T", err)
			}
			if !errors.Is(err, ErrInvalidMatrix) {
				t.Error("expected errors.Is(err, ErrInvalidMatrix)")
			}
		})
	}
}

func TestCalculateResultsConcurrent(t *testing.T) {
	matrix := DefaultMatrix(5)
	user := Ratings{"t1": Rate(1), "t2": Rate(5).WithFavorite(true), "t3": Rate(3)}
	entities := []Entity{
		party("a", Ratings{"t1": Rate(1), "t2": Rate(4), "t3": Rate(3)}),
		party("b", Ratings{"t1": Rate(5), "t2": Rate(1), "t3": Skip()}),
	}

	want, err := CalculateResults(matrix, entities, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := CalculateResults(matrix, entities, user)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			for j := range want {
				if got[j].Entity.ID != want[j].Entity.ID || got[j].MatchPercentage != want[j].MatchPercentage {
					t.Errorf("concurrent result %d differs", j)
				}
			}
		}()
	}
	wg.Wait()
}

func TestDefaultMatrix(t *testing.T) {
	m := DefaultMatrix(3)
	want := Matrix{{100, 50, 0}, {50, 100, 50}, {0, 50, 100}}
	for i := range want {
		for j := range want[i] {
			if m[i][j] != want[i][j] {
				t.Errorf("m[%d][%d] = %v, expected %v", i, j, m[i][j], want[i][j])
			}
		}
	}
	if DefaultMatrix(1) != nil {
		t.Error("expected nil for a single level")
	}
	if err := DefaultMatrix(5).Validate(); err != nil {
		t.Errorf("default 5-level matrix should be valid: %v", err)
	}
}

func TestMatrixBounds(t *testing.T) {
	lo, hi := Matrix{{3, -7}, {12, 0}}.Bounds()
	if lo != -7 || hi != 12 {
		t.Errorf("expected (-7, 12), got (%v, %v)", lo, hi)
	}
}

func TestRatingAccessors(t *testing.T) {
	if v, ok := Rate(4).Value(); !ok || v != 4 {
		t.Errorf("expected (4, true), got (%d, %v)", v, ok)
	}
	if _, ok := Skip().Value(); ok {
		t.Error("skipped rating should carry no value")
	}
	var zero Rating
	if zero.Status() != Unrated || zero.IsRated() {
		t.Error("zero rating should be unrated")
	}
	if s := Rate(2).WithFavorite(true).String(); s != "2*" {
		t.Errorf("expected \"2*\", got %q", s)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{Unrated, Rated, Skipped} {
		got, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", s.String(), err)
		}
		if got != s {
			t.Errorf("expected %v, got %v", s, got)
		}
	}
	if _, err := ParseStatus("maybe"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestRatingsSetOverwrites(t *testing.T) {
	rs := Ratings{}
	rs.Set("t1", Rate(1))
	rs.Set("t1", Skip())
	rs.Set("t2", Rate(2))

	if len(rs) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(rs))
	}
	if rs["t1"].Status() != Skipped {
		t.Error("expected second Set to replace the first")
	}
	if rs.RatedCount() != 1 {
		t.Errorf("expected 1 rated, got %d", rs.RatedCount())
	}

	c := rs.Clone()
	c.Set("t3", Rate(1))
	if _, ok := rs["t3"]; ok {
		t.Error("clone shares storage with original")
	}
}
