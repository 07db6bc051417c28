// Package compose writes a match outcome as a Markdown report.
package compose

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/VoteMatch/internal/match"
	"github.com/TobiSchelling/VoteMatch/internal/session"
)

// DefaultCompare is the number of leading parties shown next to each thesis.
const DefaultCompare = 3

// Options controls what goes into a report.
type Options struct {
	Candidates bool
	Compare    int
}

// Report composes the Markdown report for an outcome: a TL;DR, the party
// ranking, the candidate ranking when requested, and a thesis by thesis
// comparison with the leading parties.
func Report(out *session.Outcome, opts Options) string {
	if opts.Compare <= 0 {
		opts.Compare = DefaultCompare
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Results: %s\n\n", inline(out.Election.Name))
	b.WriteString(tldr(out, opts))

	sections := []string{rankingSection("Parties", out.Parties)}
	if opts.Candidates && len(out.Candidates) > 0 {
		sections = append(sections, rankingSection("Candidates", out.Candidates))
	}
	if len(out.Election.Theses) > 0 {
		sections = append(sections, comparisonSection(out, leading(out.Parties, opts.Compare)))
	}

	b.WriteString("\n\n")
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))
	b.WriteString("\n")
	return b.String()
}

func tldr(out *session.Outcome, opts Options) string {
	if out.Rated == 0 {
		return "- No theses answered yet."
	}

	var bullets []string
	if len(out.Parties) > 0 {
		top := out.Parties[0]
		bullets = append(bullets, fmt.Sprintf("- Closest party: **%s** (%.1f%%)", inline(top.Entity.Name), top.MatchPercentage))
	}
	if opts.Candidates && len(out.Candidates) > 0 {
		top := out.Candidates[0]
		bullets = append(bullets, fmt.Sprintf("- Closest candidate: **%s** (%.1f%%)", inline(top.Entity.Name), top.MatchPercentage))
	}

	favorites := 0
	for _, r := range out.Ratings {
		if r.Favorite && r.IsRated() {
			favorites++
		}
	}
	line := fmt.Sprintf("- Answered %d of %d theses", out.Rated, out.Total)
	if out.Skipped > 0 {
		line += fmt.Sprintf(", skipped %d", out.Skipped)
	}
	if favorites > 0 {
		line += fmt.Sprintf(", %d counting double", favorites)
	}
	bullets = append(bullets, line)

	return strings.Join(bullets, "\n")
}

func rankingSection(title string, results []match.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("## %s\n\nNothing to rank.", title)
	}

	lines := []string{
		"## " + title,
		"",
		"| # | Name | Match |",
		"|---|------|------:|",
	}
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("| %d | %s | %.1f%% |", i+1, inline(r.Entity.Name), r.MatchPercentage))
	}
	return strings.Join(lines, "\n")
}

func comparisonSection(out *session.Outcome, parties []match.Entity) string {
	e := out.Election
	var blocks []string
	for i, t := range e.Theses {
		lines := []string{fmt.Sprintf("### %d. %s", i+1, inline(t.Text)), ""}

		you := answer(e.Label, out.Ratings[t.ID])
		if out.Ratings[t.ID].Favorite {
			you += " (counts double)"
		}
		lines = append(lines, "- You: "+you)
		for _, p := range parties {
			lines = append(lines, fmt.Sprintf("- %s: %s", inline(p.Name), answer(e.Label, p.Ratings[t.ID])))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return "## Thesis by thesis\n\n" + strings.Join(blocks, "\n\n")
}

func leading(results []match.Result, n int) []match.Entity {
	n = min(n, len(results))
	out := make([]match.Entity, n)
	for i := 0; i < n; i++ {
		out[i] = results[i].Entity
	}
	return out
}

func answer(label func(int) string, r match.Rating) string {
	if v, ok := r.Value(); ok {
		return inline(label(v))
	}
	if r.Status() == match.Skipped {
		return "_skipped_"
	}
	return "_no answer_"
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"|", `\|`,
)

// inline escapes user supplied text so it renders literally in headings,
// bullets and table cells.
func inline(s string) string {
	return markdownEscaper.Replace(s)
}
