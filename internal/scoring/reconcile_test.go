package scoring

import (
	"context"
	"testing"

	"github.com/Clark-Hu/movie-scores/internal/domain"
)

func TestReconciler_Run(t *testing.T) {
	const (
		drifted = "drifted"
		healthy = "healthy"
		orphan  = "orphan"
	)
	store := newMemStore(
		domain.Movie{ID: drifted, Score: 4.9, ScoreCount: 2},
		domain.Movie{ID: healthy, Score: 3, ScoreCount: 1},
		domain.Movie{ID: orphan, Score: 2, ScoreCount: 4},
	)
	store.putScore(domain.Score{MovieID: drifted, UserID: "a", Value: 4})
	store.putScore(domain.Score{MovieID: drifted, UserID: "b", Value: 5})
	store.putScore(domain.Score{MovieID: healthy, UserID: "a", Value: 3})

	r := NewReconciler(store, store, domain.DefaultScoreRange, nil)
	corrections, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	byID := make(map[string]Correction)
	for _, c := range corrections {
		byID[c.MovieID] = c
	}
	if len(byID) != 2 {
		t.Fatalf("corrections = %+v, want drifted and orphan", corrections)
	}
	if c := byID[drifted]; c.After.Average != 4.5 || c.After.Count != 2 || c.Before.Average != 4.9 {
		t.Fatalf("drifted correction = %+v", c)
	}
	if c := byID[orphan]; c.After.Average != 0 || c.After.Count != 0 {
		t.Fatalf("orphan correction = %+v", c)
	}

	if got := store.movie(drifted); got.Score != 4.5 || got.ScoreCount != 2 {
		t.Fatalf("drifted movie = %+v", got)
	}
	if got := store.movie(orphan); got.Score != 0 || got.ScoreCount != 0 {
		t.Fatalf("orphan movie = %+v", got)
	}

	again, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second run corrected %+v", again)
	}
}

func TestReconciler_UnscoredMovieWithPositiveMinimum(t *testing.T) {
	store := newMemStore(
		domain.Movie{ID: "unscored"},
		domain.Movie{ID: "scored", Score: 7, ScoreCount: 1},
	)
	store.putScore(domain.Score{MovieID: "scored", UserID: "a", Value: 8})

	r := NewReconciler(store, store, domain.ScoreRange{Min: 1, Max: 10}, nil)
	corrections, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(corrections) != 1 || corrections[0].MovieID != "scored" {
		t.Fatalf("corrections = %+v, want only scored", corrections)
	}
	if got := store.movie("unscored"); got.Score != 0 || got.ScoreCount != 0 {
		t.Fatalf("unscored movie = %+v", got)
	}
	if got := store.movie("scored"); got.Score != 8 || got.ScoreCount != 1 {
		t.Fatalf("scored movie = %+v", got)
	}
}
