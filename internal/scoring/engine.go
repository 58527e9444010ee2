// Package scoring folds user scores into per-movie running averages.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/events"
)

// ScoreInput is a request to score a movie on behalf of the acting user.
type ScoreInput struct {
	MovieID string
	Value   float64
}

// Submission describes a committed score submission.
type Submission struct {
	Movie    domain.MovieView
	UserID   string
	Value    float64
	Previous float64
	Revision bool
}

// Engine applies one submission per call as a single unit of work. It does
// not retry; see Service.
type Engine struct {
	tx        Transactor
	identity  IdentityResolver
	scoreRng  domain.ScoreRange
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithScoreRange sets the accepted score interval.
func WithScoreRange(r domain.ScoreRange) Option {
	return func(e *Engine) { e.scoreRng = r }
}

// WithPublisher sets where committed submissions are announced.
func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l.Named("scoring")
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine with the default 0-5 range.
func NewEngine(tx Transactor, identity IdentityResolver, opts ...Option) *Engine {
	e := &Engine{
		tx:       tx,
		identity: identity,
		scoreRng: domain.DefaultScoreRange,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScoreRange returns the configured score interval.
func (e *Engine) ScoreRange() domain.ScoreRange {
	return e.scoreRng
}

// Submit records the acting user's score for in.MovieID and updates the
// movie's aggregate. The score row and the aggregate are written in the same
// transaction; on any error neither changes.
func (e *Engine) Submit(ctx context.Context, in ScoreInput) (Submission, error) {
	user, err := e.identity.Authenticated(ctx)
	if err != nil {
		return Submission{}, err
	}
	if !e.scoreRng.Contains(in.Value) {
		return Submission{}, fmt.Errorf("%w: %v not in [%v, %v]", domain.ErrScoreOutOfRange, in.Value, e.scoreRng.Min, e.scoreRng.Max)
	}

	var sub Submission
	err = e.tx.InTx(ctx, func(uow UnitOfWork) error {
		movie, err := uow.Movies().FindByIDForUpdate(ctx, in.MovieID)
		if err != nil {
			return fmt.Errorf("lock movie %s: %w", in.MovieID, err)
		}

		score, err := uow.Scores().FindByMovieAndUser(ctx, movie.ID, user.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			score = domain.Score{MovieID: movie.ID, UserID: user.ID}
		case err != nil:
			return fmt.Errorf("load score: %w", err)
		}

		var aggregate float64
		var count int64
		if score.Persisted() {
			aggregate, count, err = domain.ReviseScore(movie.Score, movie.ScoreCount, score.Value, in.Value)
		} else {
			aggregate, count, err = domain.AddScore(movie.Score, movie.ScoreCount, in.Value)
		}
		if err != nil {
			return fmt.Errorf("movie %s: %w", movie.ID, err)
		}
		if aggregate, err = e.scoreRng.Settle(aggregate); err != nil {
			return fmt.Errorf("movie %s: %w", movie.ID, err)
		}

		sub.Revision = score.Persisted()
		sub.Previous = score.Value
		score.Value = in.Value
		if _, err := uow.Scores().Save(ctx, score); err != nil {
			return fmt.Errorf("save score: %w", err)
		}

		movie.Score = aggregate
		movie.ScoreCount = count
		saved, err := uow.Movies().SaveAggregate(ctx, movie)
		if err != nil {
			return fmt.Errorf("save aggregate: %w", err)
		}
		sub.Movie = saved.View()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			e.log.Error("movie aggregate invariant violated",
				zap.String("movie_id", in.MovieID),
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
		return Submission{}, err
	}

	sub.UserID = user.ID
	sub.Value = in.Value

	e.log.Debug("score submitted",
		zap.String("movie_id", sub.Movie.ID),
		zap.String("user_id", user.ID),
		zap.Bool("revision", sub.Revision),
		zap.Float64("aggregate", sub.Movie.Score),
		zap.Int64("count", sub.Movie.ScoreCount),
	)
	if e.publisher != nil {
		e.publisher.PublishScoreSubmitted(ctx, events.ScoreSubmitted{
			MovieID:        sub.Movie.ID,
			UserID:         sub.UserID,
			Value:          sub.Value,
			Revision:       sub.Revision,
			AggregateScore: sub.Movie.Score,
			ScoreCount:     sub.Movie.ScoreCount,
			OccurredAt:     e.now().UTC(),
		})
	}
	return sub, nil
}
