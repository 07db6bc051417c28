package compose

import (
	"strings"
	"testing"

	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
	"github.com/TobiSchelling/VoteMatch/internal/session"
)

func testElection() *election.Election {
	return &election.Election{
		ID:             "e1",
		Name:           "City Council",
		Decisions:      3,
		DecisionLabels: []string{"Disagree", "Neutral", "Agree"},
		Matrix:         match.DefaultMatrix(3),
		Theses: []election.Thesis{
			{ID: "t1", Text: "Expand public transit."},
			{ID: "t2", Text: "Build more housing."},
		},
		Parties: []match.Entity{
			{ID: "green", Kind: match.KindParty, Name: "Green | List", Ratings: match.Ratings{"t1": match.Rate(3), "t2": match.Skip()}},
			{ID: "civic", Kind: match.KindParty, Name: "Civic Union", Ratings: match.Ratings{"t1": match.Rate(1), "t2": match.Rate(2)}},
		},
		Candidates: []match.Entity{
			{ID: "ada", Kind: match.KindCandidate, Name: "Ada Example", Ratings: match.Ratings{"t1": match.Rate(3)}},
		},
	}
}

func evaluate(t *testing.T, ratings match.Ratings) *session.Outcome {
	t.Helper()
	out, err := session.Evaluate(testElection(), ratings)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return out
}

func TestReport(t *testing.T) {
	out := evaluate(t, match.Ratings{
		"t1": match.Rate(3).WithFavorite(true),
		"t2": match.Skip(),
	})

	report := Report(out, Options{Candidates: true})

	for _, want := range []string{
		"# Results: City Council",
		"- Closest party: **Green \\| List** (100.0%)",
		"- Closest candidate: **Ada Example** (100.0%)",
		"- Answered 1 of 2 theses, skipped 1, 1 counting double",
		"| 1 | Green \\| List | 100.0% |",
		"| 2 | Civic Union | 0.0% |",
		"## Candidates",
		"### 1. Expand public transit.",
		"- You: Agree (counts double)",
		"- Civic Union: Disagree",
		"- You: _skipped_",
		"- Green \\| List: _skipped_",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if n := strings.Count(report, "\n---\n"); n != 2 {
		t.Errorf("expected 2 section separators, got %d", n)
	}
}

func TestReportWithoutAnswers(t *testing.T) {
	report := Report(evaluate(t, nil), Options{})

	if !strings.Contains(report, "- No theses answered yet.") {
		t.Errorf("expected empty TL;DR:\n%s", report)
	}
	if strings.Contains(report, "## Candidates") {
		t.Error("candidates should be omitted unless requested")
	}
	if !strings.Contains(report, "- You: _no answer_") {
		t.Errorf("expected unanswered theses:\n%s", report)
	}
}

func TestReportComparesLeadingParties(t *testing.T) {
	out := evaluate(t, match.Ratings{"t1": match.Rate(1)})

	report := Report(out, Options{Compare: 1})
	if !strings.Contains(report, "- Civic Union: Disagree") {
		t.Errorf("expected leading party in comparison:\n%s", report)
	}
	if strings.Contains(report, "- Green \\| List: ") {
		t.Errorf("expected only one party in comparison:\n%s", report)
	}
}

func TestReportEscapesMarkdown(t *testing.T) {
	e := testElection()
	e.Name = "City_Council"
	e.Theses[0].Text = "Fund *all* schools [now]"
	e.Parties[1].Name = "Civic_Union*"
	out, err := session.Evaluate(e, match.Ratings{"t1": match.Rate(1)})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	report := Report(out, Options{})
	for _, want := range []string{
		`# Results: City\_Council`,
		`- Closest party: **Civic\_Union\*** (100.0%)`,
		`| 1 | Civic\_Union\* | 100.0% |`,
		`### 1. Fund \*all\* schools \[now\]`,
		`- Civic\_Union\*: Disagree`,
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "*all*") {
		t.Errorf("thesis text left unescaped:\n%s", report)
	}
}

func TestInline(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a|b", `a\|b`},
		{"*bold* _it_", `\*bold\* \_it\_`},
		{"[x](y) <b>", `\[x\](y) \<b>`},
		{`back\slash`, `back\\slash`},
		{"plain text.", "plain text."},
	}
	for _, tt := range tests {
		if got := inline(tt.in); got != tt.want {
			t.Errorf("inline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
