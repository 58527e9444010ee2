package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Clark-Hu/movie-scores/internal/domain"
)

// failingDB rejects every statement with err.
type failingDB struct{ err error }

func (f failingDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.err
}

func (f failingDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func (f failingDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return failingRow{f.err}
}

type failingRow struct{ err error }

func (r failingRow) Scan(...any) error { return r.err }

func TestMoviesRepository_ListIDsClassifiesErrors(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{code: codeSerializationFailure, want: domain.ErrWriteConflict},
		{code: codeDeadlockDetected, want: domain.ErrWriteConflict},
		{code: codeForeignKeyViolation, want: domain.ErrReferentialConflict},
	}
	for _, tc := range cases {
		repo := bind(failingDB{err: &pgconn.PgError{Code: tc.code, Message: "boom"}})
		if _, err := repo.Movies.ListIDs(context.Background()); !errors.Is(err, tc.want) {
			t.Errorf("ListIDs with SQLSTATE %s: got %v, want %v", tc.code, err, tc.want)
		}
	}

	plain := errors.New("conn reset")
	repo := bind(failingDB{err: plain})
	if _, err := repo.Movies.ListIDs(context.Background()); !errors.Is(err, plain) {
		t.Fatalf("ListIDs passthrough: got %v", err)
	}
}
