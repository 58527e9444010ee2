package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/metrics"
)

// RetryPolicy bounds how often a write conflict is retried.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy tries three times starting at 10ms.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 10 * time.Millisecond}

// Service is the entry point used by transports. It retries transient write
// conflicts and records metrics around Engine.
type Service struct {
	engine  *Engine
	policy  RetryPolicy
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewService wraps engine. m may be nil.
func NewService(engine *Engine, policy RetryPolicy, m *metrics.Metrics, log *zap.Logger) *Service {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{engine: engine, policy: policy, metrics: m, log: log.Named("scoring")}
}

// SubmitScore records the acting user's score and returns the updated movie.
func (s *Service) SubmitScore(ctx context.Context, in ScoreInput) (domain.MovieView, error) {
	start := time.Now()
	backoff := s.policy.Backoff

	for attempt := 1; ; attempt++ {
		sub, err := s.engine.Submit(ctx, in)
		if err == nil {
			kind := metrics.KindNew
			if sub.Revision {
				kind = metrics.KindRevision
			}
			s.metrics.ScoreSubmitted(kind, time.Since(start))
			return sub.Movie, nil
		}

		if !errors.Is(err, domain.ErrWriteConflict) || attempt >= s.policy.Attempts {
			s.metrics.ScoreFailed(FailureReason(err), time.Since(start))
			return domain.MovieView{}, err
		}

		s.metrics.ScoreRetried()
		s.log.Debug("retrying score after write conflict",
			zap.String("movie_id", in.MovieID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			aborted := fmt.Errorf("retry aborted after %v: %w", err, ctx.Err())
			s.metrics.ScoreFailed(FailureReason(aborted), time.Since(start))
			return domain.MovieView{}, aborted
		case <-timer.C:
		}
		backoff *= 2
	}
}

// FailureReason maps an error to a low-cardinality label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrIdentityUnresolvable):
		return "identity_unresolvable"
	case errors.Is(err, domain.ErrScoreOutOfRange):
		return "out_of_range"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, domain.ErrWriteConflict):
		return "write_conflict"
	}
	return "internal"
}
