package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/movie-scores/internal/domain"
)

// ScoresRepository stores one score per (movie, user).
type ScoresRepository struct {
	db dbtx
}

// FindByMovieAndUser returns the user's score for movie or ErrNotFound.
func (r *ScoresRepository) FindByMovieAndUser(ctx context.Context, movieID, userID string) (domain.Score, error) {
	const query = `
        SELECT movie_id::text, user_id::text, value, created_at, updated_at
        FROM scores
        WHERE movie_id = $1 AND user_id = $2
    `
	var score domain.Score
	err := r.db.QueryRow(ctx, query, movieID, userID).Scan(
		&score.MovieID,
		&score.UserID,
		&score.Value,
		&score.CreatedAt,
		&score.UpdatedAt,
	)
	if err != nil {
		return domain.Score{}, classify(err)
	}
	return score, nil
}

// Save inserts a first submission or overwrites a persisted score. A plain
// INSERT is used for new scores so a concurrent first submission by the same
// user surfaces as domain.ErrWriteConflict instead of silently double counting.
func (r *ScoresRepository) Save(ctx context.Context, score domain.Score) (domain.Score, error) {
	if !score.Persisted() {
		const insert = `
            INSERT INTO scores (movie_id, user_id, value)
            VALUES ($1, $2, $3)
            RETURNING created_at, updated_at
        `
		err := r.db.QueryRow(ctx, insert, score.MovieID, score.UserID, score.Value).
			Scan(&score.CreatedAt, &score.UpdatedAt)
		if err != nil {
			return domain.Score{}, classify(err)
		}
		return score, nil
	}

	const update = `
        UPDATE scores
        SET value = $3,
            updated_at = now()
        WHERE movie_id = $1 AND user_id = $2
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, update, score.MovieID, score.UserID, score.Value).Scan(&score.UpdatedAt)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrNotFound) {
			return domain.Score{}, fmt.Errorf("%w: score for movie %s vanished", domain.ErrWriteConflict, score.MovieID)
		}
		return domain.Score{}, err
	}
	return score, nil
}

// Summary recomputes the mean and count for movieID from the stored rows.
func (r *ScoresRepository) Summary(ctx context.Context, movieID string) (domain.ScoreSummary, error) {
	const query = `
        SELECT COALESCE(AVG(value), 0)::double precision, COUNT(*)
        FROM scores
        WHERE movie_id = $1
    `
	var summary domain.ScoreSummary
	if err := r.db.QueryRow(ctx, query, movieID).Scan(&summary.Average, &summary.Count); err != nil {
		return domain.ScoreSummary{}, classify(err)
	}
	return summary, nil
}
