package domain

import "time"

// Score is a single user's score for a movie. (MovieID, UserID) is unique.
type Score struct {
	MovieID   string
	UserID    string
	Value     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Persisted reports whether the score was loaded from storage rather than
// built for a first submission.
func (s Score) Persisted() bool {
	return !s.CreatedAt.IsZero()
}

// ScoreSummary is the mean and number of stored scores for one movie, computed
// from the score rows rather than the running aggregate.
type ScoreSummary struct {
	Average float64
	Count   int64
}
