package scoring

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Clark-Hu/movie-scores/internal/auth"
	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/events"
)

type scoreKey struct{ movieID, userID string }

// memStore is an in-memory Transactor. Transactions are serialized and work
// on a copy that is only installed on success.
type memStore struct {
	mu     sync.Mutex
	movies map[string]domain.Movie
	scores map[scoreKey]domain.Score

	// conflicts makes the next n commits fail with ErrWriteConflict.
	conflicts        int
	saveAggregateErr error
	txCount          int
}

func newMemStore(movies ...domain.Movie) *memStore {
	m := &memStore{
		movies: make(map[string]domain.Movie),
		scores: make(map[scoreKey]domain.Score),
	}
	for _, mv := range movies {
		m.movies[mv.ID] = mv
	}
	return m
}

func (m *memStore) InTx(_ context.Context, fn func(UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	u := &memUnit{store: m, movies: make(map[string]domain.Movie), scores: make(map[scoreKey]domain.Score)}
	for k, v := range m.movies {
		u.movies[k] = v
	}
	for k, v := range m.scores {
		u.scores[k] = v
	}
	if err := fn(u); err != nil {
		return err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return domain.ErrWriteConflict
	}
	m.movies, m.scores = u.movies, u.scores
	return nil
}

func (m *memStore) ListIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.movies))
	for id := range m.movies {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) movie(id string) domain.Movie {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.movies[id]
}

func (m *memStore) score(movieID, userID string) (domain.Score, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scores[scoreKey{movieID, userID}]
	return s, ok
}

func (m *memStore) putScore(s domain.Score) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.scores[scoreKey{s.MovieID, s.UserID}] = s
}

type memUnit struct {
	store  *memStore
	movies map[string]domain.Movie
	scores map[scoreKey]domain.Score
}

func (u *memUnit) Movies() MovieStore { return u }
func (u *memUnit) Scores() ScoreStore { return u }

func (u *memUnit) FindByIDForUpdate(_ context.Context, id string) (domain.Movie, error) {
	mv, ok := u.movies[id]
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	return mv, nil
}

func (u *memUnit) SaveAggregate(_ context.Context, movie domain.Movie) (domain.Movie, error) {
	if u.store.saveAggregateErr != nil {
		return domain.Movie{}, u.store.saveAggregateErr
	}
	if _, ok := u.movies[movie.ID]; !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	movie.UpdatedAt = time.Now()
	u.movies[movie.ID] = movie
	return movie, nil
}

func (u *memUnit) FindByMovieAndUser(_ context.Context, movieID, userID string) (domain.Score, error) {
	s, ok := u.scores[scoreKey{movieID, userID}]
	if !ok {
		return domain.Score{}, domain.ErrNotFound
	}
	return s, nil
}

func (u *memUnit) Save(_ context.Context, score domain.Score) (domain.Score, error) {
	key := scoreKey{score.MovieID, score.UserID}
	_, exists := u.scores[key]
	if !score.Persisted() {
		if exists {
			return domain.Score{}, domain.ErrWriteConflict
		}
		score.CreatedAt = time.Now()
	}
	score.UpdatedAt = time.Now()
	u.scores[key] = score
	return score, nil
}

func (u *memUnit) Summary(_ context.Context, movieID string) (domain.ScoreSummary, error) {
	var sum float64
	var n int64
	for k, s := range u.scores {
		if k.movieID == movieID {
			sum += s.Value
			n++
		}
	}
	if n == 0 {
		return domain.ScoreSummary{}, nil
	}
	return domain.ScoreSummary{Average: sum / float64(n), Count: n}, nil
}

// ctxIdentity treats the authenticated username as the user id.
type ctxIdentity struct{}

func (ctxIdentity) Authenticated(ctx context.Context) (domain.User, error) {
	name, ok := auth.UsernameFromContext(ctx)
	if !ok {
		return domain.User{}, domain.ErrIdentityUnresolvable
	}
	return domain.User{ID: name, Username: name}, nil
}

type failingIdentity struct{}

func (failingIdentity) Authenticated(context.Context) (domain.User, error) {
	return domain.User{}, errors.New("token store unavailable")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ScoreSubmitted
}

func (p *recordingPublisher) PublishScoreSubmitted(_ context.Context, ev events.ScoreSubmitted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *recordingPublisher) last() events.ScoreSubmitted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func as(user string) context.Context {
	return auth.WithUsername(context.Background(), user)
}
