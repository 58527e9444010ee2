package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Clark-Hu/movie-scores/internal/auth"
	"github.com/Clark-Hu/movie-scores/internal/config"
	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/scoring"
)

var testSecret = []byte("handler-test-secret-32-bytes!!!!")

const testMovieID = "0b6f3c1a-8d8e-4f3b-9f5c-2a1e7d9c4b10"

type stubScorer struct {
	view  domain.MovieView
	err   error
	calls []scoring.ScoreInput
}

func (s *stubScorer) SubmitScore(ctx context.Context, in scoring.ScoreInput) (domain.MovieView, error) {
	s.calls = append(s.calls, in)
	return s.view, s.err
}

func bearer(tb testing.TB, username string) string {
	tb.Helper()
	tok, err := auth.Issuer{Secret: testSecret, TTL: time.Hour}.Issue(username, time.Now())
	if err != nil {
		tb.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.JWTSecret = string(testSecret)
	return cfg
}

func newStubServer(scorer Scorer, cfg config.Config) *Server {
	return New(cfg, Deps{
		Scores:   scorer,
		Verifier: auth.JWTVerifier{Secret: testSecret},
	})
}

func putScore(tb testing.TB, h http.Handler, authz, body string) *httptest.ResponseRecorder {
	tb.Helper()
	req := httptest.NewRequest(http.MethodPut, "/scores", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSubmitScore_Success(t *testing.T) {
	scorer := &stubScorer{view: domain.MovieView{ID: testMovieID, Title: "Heat", Score: 4.25, ScoreCount: 4}}
	srv := newStubServer(scorer, testConfig())

	rec := putScore(t, srv.Handler(), bearer(t, "maria@gmail.com"), fmt.Sprintf(`{"movieId":%q,"score":0}`, testMovieID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got domain.MovieView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != scorer.view {
		t.Fatalf("body = %+v, want %+v", got, scorer.view)
	}
	if len(scorer.calls) != 1 || scorer.calls[0].Value != 0 || scorer.calls[0].MovieID != testMovieID {
		t.Fatalf("scorer calls = %+v", scorer.calls)
	}
}

func TestHandleSubmitScore_Errors(t *testing.T) {
	validBody := fmt.Sprintf(`{"movieId":%q,"score":4}`, testMovieID)
	tests := []struct {
		name     string
		authz    bool
		body     string
		err      error
		status   int
		code     string
		reachSvc bool
	}{
		{name: "no token", body: validBody, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "malformed json", authz: true, body: `{"movieId":`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "unknown field", authz: true, body: `{"movieId":"x","score":1,"extra":true}`, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "missing score", authz: true, body: fmt.Sprintf(`{"movieId":%q}`, testMovieID), status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "bad movie id", authz: true, body: `{"movieId":"42","score":1}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "not found", authz: true, body: validBody, err: domain.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND", reachSvc: true},
		{name: "unknown user", authz: true, body: validBody, err: domain.ErrIdentityUnresolvable, status: http.StatusUnauthorized, code: "UNAUTHORIZED", reachSvc: true},
		{name: "out of range", authz: true, body: validBody, err: domain.ErrScoreOutOfRange, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR", reachSvc: true},
		{name: "write conflict", authz: true, body: validBody, err: domain.ErrWriteConflict, status: http.StatusConflict, code: "CONFLICT", reachSvc: true},
		{name: "canceled", authz: true, body: validBody, err: context.DeadlineExceeded, status: http.StatusServiceUnavailable, code: "REQUEST_CANCELED", reachSvc: true},
		{name: "invariant", authz: true, body: validBody, err: domain.ErrInvariantViolation, status: http.StatusInternalServerError, code: "INTERNAL_ERROR", reachSvc: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scorer := &stubScorer{err: tc.err}
			srv := newStubServer(scorer, testConfig())
			authz := ""
			if tc.authz {
				authz = bearer(t, "alex@gmail.com")
			}

			rec := putScore(t, srv.Handler(), authz, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Code != tc.code {
				t.Fatalf("code = %s, want %s", resp.Code, tc.code)
			}
			if reached := len(scorer.calls) > 0; reached != tc.reachSvc {
				t.Fatalf("scorer reached = %v, want %v", reached, tc.reachSvc)
			}
		})
	}
}

func TestHandleSubmitScore_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.ScoreRateLimit = 2
	cfg.ScoreRateLimitWindowS = 60
	scorer := &stubScorer{view: domain.MovieView{ID: testMovieID}}
	srv := newStubServer(scorer, cfg)
	body := fmt.Sprintf(`{"movieId":%q,"score":3}`, testMovieID)

	alex := bearer(t, "alex@gmail.com")
	for i := 0; i < 2; i++ {
		if rec := putScore(t, srv.Handler(), alex, body); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := putScore(t, srv.Handler(), alex, body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", rec.Code)
	}

	// Limits are per user.
	if rec := putScore(t, srv.Handler(), bearer(t, "bob@gmail.com"), body); rec.Code != http.StatusOK {
		t.Fatalf("other user: status %d, want 200", rec.Code)
	}
}
