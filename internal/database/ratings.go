package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/VoteMatch/internal/match"
)

// ratingColumns splits a rating into its stored status and value.
func ratingColumns(r match.Rating) (string, *int) {
	if v, ok := r.Value(); ok {
		return r.Status().String(), &v
	}
	return r.Status().String(), nil
}

// scanRating rebuilds a rating from its stored columns.
func scanRating(status string, value sql.NullInt64, favorite bool) (match.Rating, error) {
	s, err := match.ParseStatus(status)
	if err != nil {
		return match.Rating{}, err
	}

	var r match.Rating
	switch s {
	case match.Rated:
		if !value.Valid {
			return match.Rating{}, fmt.Errorf("rated row without value")
		}
		r = match.Rate(int(value.Int64))
	case match.Skipped:
		r = match.Skip()
	}
	return r.WithFavorite(favorite), nil
}
