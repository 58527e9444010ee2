package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-scores/internal/domain"
)

const driftTolerance = 1e-9

// MovieLister enumerates movie ids for a reconciliation pass.
type MovieLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Correction records an aggregate rewritten from score rows.
type Correction struct {
	MovieID string
	Before  domain.ScoreSummary
	After   domain.ScoreSummary
}

// Reconciler recomputes aggregates from stored scores, one transaction per
// movie, holding the same row lock as Engine.
type Reconciler struct {
	tx       Transactor
	movies   MovieLister
	scoreRng domain.ScoreRange
	log      *zap.Logger
}

// NewReconciler builds a Reconciler.
func NewReconciler(tx Transactor, movies MovieLister, scoreRng domain.ScoreRange, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{tx: tx, movies: movies, scoreRng: scoreRng, log: log.Named("reconcile")}
}

// Run visits every movie and returns the aggregates it corrected.
func (r *Reconciler) Run(ctx context.Context) ([]Correction, error) {
	ids, err := r.movies.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	var corrections []Correction
	for _, id := range ids {
		c, changed, err := r.reconcile(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return corrections, fmt.Errorf("reconcile movie %s: %w", id, err)
		}
		if changed {
			r.log.Info("aggregate corrected",
				zap.String("movie_id", id),
				zap.Float64("before", c.Before.Average),
				zap.Float64("after", c.After.Average),
				zap.Int64("count_before", c.Before.Count),
				zap.Int64("count_after", c.After.Count),
			)
			corrections = append(corrections, c)
		}
	}
	return corrections, nil
}

func (r *Reconciler) reconcile(ctx context.Context, id string) (Correction, bool, error) {
	var c Correction
	var changed bool
	err := r.tx.InTx(ctx, func(uow UnitOfWork) error {
		movie, err := uow.Movies().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		summary, err := uow.Scores().Summary(ctx, id)
		if err != nil {
			return err
		}
		var average float64
		if summary.Count > 0 {
			average, err = r.scoreRng.Settle(summary.Average)
			if err != nil {
				return err
			}
		}

		c = Correction{
			MovieID: id,
			Before:  domain.ScoreSummary{Average: movie.Score, Count: movie.ScoreCount},
			After:   domain.ScoreSummary{Average: average, Count: summary.Count},
		}
		if movie.ScoreCount == summary.Count && math.Abs(movie.Score-average) <= driftTolerance {
			return nil
		}

		movie.Score = average
		movie.ScoreCount = summary.Count
		if _, err := uow.Movies().SaveAggregate(ctx, movie); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return c, changed, err
}
