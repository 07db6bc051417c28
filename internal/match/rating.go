package match

import "fmt"

// Status tags the state of a single rating.
type Status uint8

const (
	Unrated Status = iota
	Rated
	Skipped
)

func (s Status) String() string {
	switch s {
	case Rated:
		return "rated"
	case Skipped:
		return "skipped"
	default:
		return "unrated"
	}
}

// ParseStatus converts the stored form of a Status back into its value.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "rated":
		return Rated, nil
	case "skipped":
		return Skipped, nil
	case "unrated", "":
		return Unrated, nil
	}
	return Unrated, fmt.Errorf("unknown rating status %q", s)
}

// Rating is one respondent's answer to one thesis.
// The zero value is an unrated, non-favorite rating. Only Rate and Skip
// produce anything else, so a rated value always comes from Rate.
type Rating struct {
	status   Status
	value    int
	Favorite bool
}

// Rate returns a rating holding the 1-based scale value v.
func Rate(v int) Rating {
	return Rating{status: Rated, value: v}
}

// Skip returns a rating marking the thesis as deliberately skipped.
func Skip() Rating {
	return Rating{status: Skipped}
}

// Status reports whether r is unrated, rated or skipped.
func (r Rating) Status() Status {
	return r.status
}

// Value returns the scale value and whether the rating carries one.
func (r Rating) Value() (int, bool) {
	if r.status != Rated {
		return 0, false
	}
	return r.value, true
}

// IsRated reports whether the rating holds a scale value.
func (r Rating) IsRated() bool {
	return r.status == Rated
}

// WithFavorite returns a copy of r with the favorite flag set to fav.
func (r Rating) WithFavorite(fav bool) Rating {
	r.Favorite = fav
	return r
}

func (r Rating) String() string {
	s := r.status.String()
	if r.status == Rated {
		s = fmt.Sprintf("%d", r.value)
	}
	if r.Favorite {
		s += "*"
	}
	return s
}

// Ratings maps thesis IDs to ratings.
type Ratings map[string]Rating

// Set stores r for thesisID, replacing any previous rating.
func (rs Ratings) Set(thesisID string, r Rating) {
	rs[thesisID] = r
}

// Clone returns an independent copy of rs.
func (rs Ratings) Clone() Ratings {
	out := make(Ratings, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

// RatedCount returns the number of ratings holding a scale value.
func (rs Ratings) RatedCount() int {
	n := 0
	for _, r := range rs {
		if r.IsRated() {
			n++
		}
	}
	return n
}
