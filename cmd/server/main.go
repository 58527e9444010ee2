package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-scores/internal/auth"
	"github.com/Clark-Hu/movie-scores/internal/config"
	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/events"
	httpserver "github.com/Clark-Hu/movie-scores/internal/http"
	"github.com/Clark-Hu/movie-scores/internal/logging"
	"github.com/Clark-Hu/movie-scores/internal/metrics"
	"github.com/Clark-Hu/movie-scores/internal/repository"
	"github.com/Clark-Hu/movie-scores/internal/scoring"
	"github.com/Clark-Hu/movie-scores/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	publisher, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		logger.Fatal("connect nats", zap.Error(err))
	}
	defer publisher.Close()

	m := metrics.New()
	m.RegisterPool(st.Stats)

	repo := repository.New(st)
	engine := scoring.NewEngine(
		scoring.NewRepositoryTransactor(repo),
		auth.Resolver{Users: repo.Users},
		scoring.WithScoreRange(domain.ScoreRange{Min: cfg.ScoreMin, Max: cfg.ScoreMax}),
		scoring.WithPublisher(publisher),
		scoring.WithLogger(logger),
	)
	scores := scoring.NewService(engine, scoring.RetryPolicy{
		Attempts: cfg.ScoreRetryAttempts,
		Backoff:  time.Duration(cfg.ScoreRetryBackoffMS) * time.Millisecond,
	}, m, logger)

	server := httpserver.New(cfg, httpserver.Deps{
		Health:   st,
		Repo:     repo,
		Scores:   scores,
		Verifier: auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)},
		Metrics:  m,
		Logger:   logger,
	})

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
