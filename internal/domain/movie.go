package domain

import "time"

// Movie represents the canonical movie entity together with its running
// aggregate of user scores.
type Movie struct {
	ID         string
	Title      string
	Image      *string
	Score      float64
	ScoreCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MovieView is the projection returned to callers after a score submission.
type MovieView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	ScoreCount int64   `json:"count"`
}

// View projects the movie onto its caller-facing representation.
func (m Movie) View() MovieView {
	return MovieView{
		ID:         m.ID,
		Title:      m.Title,
		Score:      m.Score,
		ScoreCount: m.ScoreCount,
	}
}
