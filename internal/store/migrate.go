package store

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-scores/db"
)

const migrationsTable = `
    CREATE TABLE IF NOT EXISTS schema_migrations (
        version    text PRIMARY KEY,
        applied_at timestamptz NOT NULL DEFAULT now()
    )
`

// Migrate applies the embedded *.up.sql files that have not run yet. Each
// file runs in its own transaction together with its bookkeeping row.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	applied, err := ApplyMigrations(ctx, s.pool)
	if err != nil {
		return applied, err
	}
	for _, version := range applied {
		s.logger.Info("migration applied", zap.String("version", version))
	}
	return applied, nil
}

// Seed loads the development fixtures. Fixtures are idempotent.
func (s *Store) Seed(ctx context.Context) error {
	files, err := sqlFiles(db.Seed, "seed", ".sql")
	if err != nil {
		return err
	}
	for _, name := range files {
		payload, err := fs.ReadFile(db.Seed, name)
		if err != nil {
			return fmt.Errorf("read seed %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(payload)); err != nil {
			return fmt.Errorf("apply seed %s: %w", name, err)
		}
		s.logger.Info("seed applied", zap.String("file", name))
	}
	return nil
}

// ApplyMigrations runs pending migrations against pool and returns the
// versions it applied, in order.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	if _, err := pool.Exec(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := sqlFiles(db.Migrations, "migrations", ".up.sql")
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range files {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".up.sql")
		payload, err := fs.ReadFile(db.Migrations, name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}

		ran, err := applyOne(ctx, pool, version, string(payload))
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", version, err)
		}
		if ran {
			applied = append(applied, version)
		}
	}
	return applied, nil
}

func applyOne(ctx context.Context, pool *pgxpool.Pool, version, payload string) (bool, error) {
	ran := false
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		if _, err := tx.Exec(ctx, payload); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return err
		}
		ran = true
		return nil
	})
	return ran, err
}

func sqlFiles(fsys fs.FS, dir, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		files = append(files, dir+"/"+entry.Name())
	}
	sort.Strings(files)
	return files, nil
}
