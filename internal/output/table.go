// Package output renders elections and match results as terminal tables.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/TobiSchelling/VoteMatch/internal/cluster"
	"github.com/TobiSchelling/VoteMatch/internal/database"
	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
)

const barWidth = 20

// Table writes data as a formatted table to stdout.
func Table(data any) error {
	return TableTo(os.Stdout, data)
}

// TableTo writes data as a formatted table to w.
func TableTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case []match.Result:
		return resultsTable(w, v)
	case []database.ElectionSummary:
		return electionsTable(w, v)
	case *election.Election:
		return thesesTable(w, v)
	case *database.Stats:
		return statsTable(w, v)
	case []cluster.Bloc:
		return blocsTable(w, v)
	default:
		return fmt.Errorf("unsupported data type for table output: %T", data)
	}
}

func resultsTable(w io.Writer, results []match.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "Nothing to rank.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tMATCH\t")
	fmt.Fprintln(tw, "-\t----\t-----\t")
	for i, r := range results {
		name := r.Entity.Name
		if r.Entity.Party != "" {
			name += " (" + r.Entity.Party + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%5.1f%%\t%s\n", i+1, truncate(name, 40), r.MatchPercentage, bar(r.MatchPercentage))
	}
	return tw.Flush()
}

func electionsTable(w io.Writer, elections []database.ElectionSummary) error {
	if len(elections) == 0 {
		fmt.Fprintln(w, "No elections imported.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTHESES\tPARTIES\tCANDIDATES\tIMPORTED")
	fmt.Fprintln(tw, "--\t----\t------\t-------\t----------\t--------")
	for _, e := range elections {
		imported := ""
		if e.ImportedAt != nil {
			imported = *e.ImportedAt
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			e.ID,
			truncate(e.Name, 40),
			e.ThesisCount,
			e.PartyCount,
			e.CandidateCount,
			imported,
		)
	}
	return tw.Flush()
}

func thesesTable(w io.Writer, e *election.Election) error {
	fmt.Fprintf(w, "%s (%s)\n", e.Name, e.ID)
	labels := make([]string, 0, e.Decisions)
	for v := 1; v <= e.Decisions; v++ {
		labels = append(labels, fmt.Sprintf("%d=%s", v, e.Label(v)))
	}
	fmt.Fprintf(w, "Answers: %s\n\n", strings.Join(labels, ", "))

	if len(e.Theses) == 0 {
		fmt.Fprintln(w, "No theses.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTHESIS")
	fmt.Fprintln(tw, "--\t--------\t------")
	for _, t := range e.Theses {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Category, truncate(t.Text, 70))
	}
	return tw.Flush()
}

func blocsTable(w io.Writer, blocs []cluster.Bloc) error {
	if len(blocs) == 0 {
		fmt.Fprintln(w, "Nothing to group.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BLOC\tSPREAD\tMEMBERS")
	fmt.Fprintln(tw, "----\t------\t-------")
	for i, b := range blocs {
		names := make([]string, len(b.Members))
		for j, m := range b.Members {
			names[j] = m.Name
		}
		fmt.Fprintf(tw, "%d\t%.2f\t%s\n", i+1, b.Height, strings.Join(names, ", "))
	}
	return tw.Flush()
}

func statsTable(w io.Writer, s *database.Stats) error {
	fmt.Fprintln(w, "Database Statistics")
	fmt.Fprintln(w, strings.Repeat("-", 30))
	fmt.Fprintf(w, "Elections:              %d\n", s.Elections)
	fmt.Fprintf(w, "Theses:                 %d\n", s.Theses)
	fmt.Fprintf(w, "Parties:                %d\n", s.Parties)
	fmt.Fprintf(w, "Candidates:             %d\n", s.Candidates)
	fmt.Fprintf(w, "Sessions:               %d\n", s.Sessions)
	fmt.Fprintf(w, "Session ratings:        %d\n", s.SessionRatings)
	return nil
}

func bar(pct float64) string {
	n := int(pct/100*barWidth + 0.5)
	n = min(max(n, 0), barWidth)
	return strings.Repeat("#", n) + strings.Repeat(".", barWidth-n)
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
