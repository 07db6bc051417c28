package election

import "sort"

// Segment is a run of thesis text, optionally carrying an explanation.
type Segment struct {
	Text        string
	Explanation string
}

// Explained reports whether the segment has an explanation attached.
func (s Segment) Explained() bool {
	return s.Explanation != ""
}

// Segments splits the thesis text at its explanation boundaries. Spans that
// fall outside the text or overlap an earlier span are ignored.
func (t Thesis) Segments() []Segment {
	spans := append([]Explanation(nil), t.Explanations...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	var out []Segment
	pos := 0
	for _, x := range spans {
		if x.Start < pos || x.End > len(t.Text) || x.Start >= x.End {
			continue
		}
		if x.Start > pos {
			out = append(out, Segment{Text: t.Text[pos:x.Start]})
		}
		out = append(out, Segment{Text: t.Text[x.Start:x.End], Explanation: x.Text})
		pos = x.End
	}
	if pos < len(t.Text) {
		out = append(out, Segment{Text: t.Text[pos:]})
	}
	return out
}
