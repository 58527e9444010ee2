package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Clark-Hu/movie-scores/internal/auth"
	"github.com/Clark-Hu/movie-scores/internal/testdb"
)

const witcherID = "0b9a3c4e-1c5e-4f4e-8c0e-7d1a8f5e6b01"

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("moviectl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommandsAgainstDatabase(t *testing.T) {
	pool := testdb.New(t, 50000)
	t.Setenv("DSMOVIE_DB_URL", pool.Config().ConnString())
	t.Setenv("DSMOVIE_JWT_SECRET", "cli-secret")
	t.Setenv("DSMOVIE_LOG_LEVEL", "error")

	if out := runCmd(t, "migrate"); !strings.Contains(out, "schema up to date") {
		t.Fatalf("migrate output = %q", out)
	}
	if out := runCmd(t, "seed"); !strings.Contains(out, "seed data loaded") {
		t.Fatalf("seed output = %q", out)
	}

	tok := strings.TrimSpace(runCmd(t, "token", "maria@gmail.com"))
	claims, err := auth.JWTVerifier{Secret: []byte("cli-secret")}.Parse(tok)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Subject != "maria@gmail.com" {
		t.Fatalf("subject = %q", claims.Subject)
	}

	if out := runCmd(t, "reconcile"); !strings.Contains(out, "0 movie(s) corrected") {
		t.Fatalf("clean reconcile output = %q", out)
	}

	if _, err := pool.Exec(context.Background(),
		`UPDATE movies SET score = 4.2, score_count = 3 WHERE id = $1`, witcherID); err != nil {
		t.Fatalf("drift movie: %v", err)
	}
	out := runCmd(t, "reconcile")
	if !strings.Contains(out, witcherID) || !strings.Contains(out, "1 movie(s) corrected") {
		t.Fatalf("reconcile output = %q", out)
	}

	var score float64
	var count int64
	if err := pool.QueryRow(context.Background(),
		`SELECT score, score_count FROM movies WHERE id = $1`, witcherID).Scan(&score, &count); err != nil {
		t.Fatalf("read movie: %v", err)
	}
	if score != 0 || count != 0 {
		t.Fatalf("movie aggregate = %v/%d, want 0/0", score, count)
	}
}

func TestTokenUnknownUser(t *testing.T) {
	pool := testdb.New(t, 52000)
	t.Setenv("DSMOVIE_DB_URL", pool.Config().ConnString())
	t.Setenv("DSMOVIE_JWT_SECRET", "cli-secret")
	t.Setenv("DSMOVIE_LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"token", "nobody"})
	err := root.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not provisioned") {
		t.Fatalf("error = %v, want not provisioned", err)
	}
}
