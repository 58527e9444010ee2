// Package events publishes score domain events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	// SubjectScoreSubmitted carries one message per committed score submission.
	SubjectScoreSubmitted = "movies.score.submitted"

	streamName = "MOVIE_EVENTS"
)

// ScoreSubmitted is published after a score and the movie aggregate commit.
type ScoreSubmitted struct {
	EventID        string    `json:"event_id"`
	MovieID        string    `json:"movie_id"`
	UserID         string    `json:"user_id"`
	Value          float64   `json:"value"`
	Revision       bool      `json:"revision"`
	AggregateScore float64   `json:"aggregate_score"`
	ScoreCount     int64     `json:"score_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher sends events fire-and-forget.
// A nil *Publisher and one built without a connection are both no-ops.
type Publisher struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *zap.Logger
}

// Connect dials natsURL and ensures the MOVIE_EVENTS stream exists.
// An empty URL yields a no-op publisher.
func Connect(natsURL string, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("events")
	if natsURL == "" {
		log.Warn("nats_url not set, score events will not be published")
		return &Publisher{log: log}, nil
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("movies-api"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", natsURL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js, log: log}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info("nats publisher initialised", zap.String("stream", streamName))
	return p, nil
}

func (p *Publisher) ensureStream() error {
	if _, err := p.js.StreamInfo(streamName); err == nil {
		return nil
	}
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"movies.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", streamName, err)
	}
	return nil
}

// PublishScoreSubmitted stamps ev with an id and timestamp when missing and
// publishes it asynchronously. Failures are logged and never reach the caller.
func (p *Publisher) PublishScoreSubmitted(_ context.Context, ev ScoreSubmitted) {
	if p == nil || p.js == nil {
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("marshal score event failed", zap.String("movie_id", ev.MovieID), zap.Error(err))
		return
	}
	msg := &nats.Msg{Subject: SubjectScoreSubmitted, Data: data, Header: nats.Header{}}
	msg.Header.Set(nats.MsgIdHdr, ev.EventID)
	if _, err := p.js.PublishMsgAsync(msg); err != nil {
		p.log.Warn("publish score event failed",
			zap.String("subject", SubjectScoreSubmitted),
			zap.String("event_id", ev.EventID),
			zap.Error(err),
		)
	}
}

// Close waits briefly for pending async acks and drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		p.log.Warn("timed out waiting for pending score events")
	}
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("nats drain failed", zap.Error(err))
	}
}
