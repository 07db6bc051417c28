package database

// ElectionSummary is a listing row for an imported election.
type ElectionSummary struct {
	ID             string
	Name           string
	Description    *string
	Decisions      int
	ThesisCount    int
	PartyCount     int
	CandidateCount int
	ImportedAt     *string
}

// Session is one user's pass through an election's questionnaire.
type Session struct {
	ID         string
	ElectionID string
	CreatedAt  *string
	UpdatedAt  *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Elections      int
	Theses         int
	Parties        int
	Candidates     int
	Sessions       int
	SessionRatings int
}
