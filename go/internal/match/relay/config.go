package relay

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Config holds connection, stream and consumer settings for the match relay
type Config struct {
	URL             string
	StreamName      string
	SubjectPrefix   string        // e.g. "match.events"
	AuthorityBucket string        // KV bucket holding the authority claim per match
	AuthorityTTL    time.Duration // claims left behind by a crashed peer expire after this
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	DuplicateWindow time.Duration // Window for duplicate detection
	MaxDeliver      int           // Max delivery attempts
	AckWait         time.Duration // How long to wait for ack
	MaxAckPending   int           // Max messages pending ack
}

func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "MATCH_EVENTS",
		SubjectPrefix:   "match.events",
		AuthorityBucket: "MATCH_AUTHORITY",
		AuthorityTTL:    2 * time.Hour,
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          2 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		MaxDeliver:      5,
		AckWait:         10 * time.Second,
		MaxAckPending:   100,
	}
}

// Subject is where events of one code for one match are published
func Subject(prefix string, matchID uuid.UUID, code events.EventCode) string {
	return fmt.Sprintf("%s.%s.%s", prefix, matchID, code)
}

// FilterSubject matches every event of one match
func FilterSubject(prefix string, matchID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.>", prefix, matchID)
}

// Connect creates a NATS connection with JetStream
func Connect(cfg Config) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return nc, js, nil
}
