package scoring

import (
	"context"

	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/events"
	"github.com/Clark-Hu/movie-scores/internal/repository"
)

// MovieStore loads and persists the movie aggregate inside a unit of work.
type MovieStore interface {
	// FindByIDForUpdate returns the movie and holds its row lock until the
	// unit of work ends, or domain.ErrNotFound.
	FindByIDForUpdate(ctx context.Context, id string) (domain.Movie, error)
	SaveAggregate(ctx context.Context, movie domain.Movie) (domain.Movie, error)
}

// ScoreStore holds one score per (movie, user).
type ScoreStore interface {
	FindByMovieAndUser(ctx context.Context, movieID, userID string) (domain.Score, error)
	Save(ctx context.Context, score domain.Score) (domain.Score, error)
	Summary(ctx context.Context, movieID string) (domain.ScoreSummary, error)
}

// UnitOfWork exposes stores bound to one transaction.
type UnitOfWork interface {
	Movies() MovieStore
	Scores() ScoreStore
}

// Transactor runs fn in a transaction, committing only when fn returns nil.
type Transactor interface {
	InTx(ctx context.Context, fn func(UnitOfWork) error) error
}

// IdentityResolver supplies the acting user.
type IdentityResolver interface {
	Authenticated(ctx context.Context) (domain.User, error)
}

// EventPublisher receives committed submissions. Implementations must not block.
type EventPublisher interface {
	PublishScoreSubmitted(ctx context.Context, ev events.ScoreSubmitted)
}

// NewRepositoryTransactor adapts the Postgres repositories to Transactor.
func NewRepositoryTransactor(repo *repository.Repository) Transactor {
	return repoTransactor{repo: repo}
}

type repoTransactor struct {
	repo *repository.Repository
}

func (t repoTransactor) InTx(ctx context.Context, fn func(UnitOfWork) error) error {
	return t.repo.InTx(ctx, func(tx *repository.Repository) error {
		return fn(repoUnit{tx: tx})
	})
}

type repoUnit struct {
	tx *repository.Repository
}

func (u repoUnit) Movies() MovieStore { return u.tx.Movies }
func (u repoUnit) Scores() ScoreStore { return u.tx.Scores }
