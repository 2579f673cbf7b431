package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Handler receives decoded events from other peers
type Handler interface {
	HandleEvent(ctx context.Context, code events.EventCode, payload []byte, senderID string) error
}

// Consumer feeds relay events for one match into a Handler
type Consumer struct {
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   Config
	matchID  uuid.UUID
	peerID   string
	handler  Handler
}

func NewConsumer(ctx context.Context, js jetstream.JetStream, cfg Config, matchID uuid.UUID, peerID string, handler Handler) (*Consumer, error) {
	c := &Consumer{
		js:      js,
		config:  cfg,
		matchID: matchID,
		peerID:  peerID,
		handler: handler,
	}
	if err := c.ensureConsumer(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

// name is the durable consumer name. JetStream rejects '.', '*', '>', '/', '\\' and
// whitespace in names, and hostnames used as peer ids often carry dots.
func (c *Consumer) name() string {
	return fmt.Sprintf("match-%s-%s", c.matchID, consumerToken(c.peerID))
}

// consumerToken maps a peer id onto the characters JetStream allows in a consumer name.
// Ids that need rewriting get a short hash of the original appended so two peers
// such as "rig.1" and "rig_1" keep distinct consumers.
func consumerToken(peerID string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, peerID)
	if token == peerID && token != "" {
		return token
	}
	sum := uuid.NewSHA1(uuid.NameSpaceOID, []byte(peerID))
	return token + "-" + sum.String()[:8]
}

// ensureConsumer creates or gets the durable consumer for this peer
func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          c.name(),
		Durable:       c.name(),
		Description:   "Match relay consumer for one peer",
		FilterSubject: FilterSubject(c.config.SubjectPrefix, c.matchID),
		DeliverPolicy: jetstream.DeliverNewPolicy, // peers only care about live events
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
		MaxAckPending: c.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, c.name())
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", c.name()).
			Str("stream", c.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", c.name()).
			Str("stream", c.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	c.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", c.name()).
		Str("match_id", c.matchID.String()).
		Msg("starting match relay consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("match relay consumer shutting down")
			return nil
		case msg := <-messageCh:
			c.handleMsg(ctx, msg)
		}
	}
}

// handleMsg dispatches one message and settles it: Ack on success, Term when a
// redelivery could never succeed, Nak otherwise.
func (c *Consumer) handleMsg(ctx context.Context, msg jetstream.Msg) {
	err := c.dispatch(ctx, msg.Data())
	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
		return
	}

	log.Error().
		Err(err).
		Str("subject", msg.Subject()).
		Msg("failed to process relay message")
	if isPermanent(err) {
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
		return
	}
	if nakErr := msg.Nak(); nakErr != nil {
		log.Error().Err(nakErr).Msg("failed to NAK message")
	}
}

// dispatch decodes one envelope and hands it to the handler
func (c *Consumer) dispatch(ctx context.Context, data []byte) error {
	env, err := events.DecodeEnvelope(data)
	if err != nil {
		return err
	}
	if env.MatchID != c.matchID.String() {
		return fmt.Errorf("%w: event %s belongs to match %s, not %s", errForeignMatch, env.EventID, env.MatchID, c.matchID)
	}

	log.Debug().
		Str("event_id", env.EventID).
		Str("event_code", string(env.EventCode)).
		Str("sender_id", env.SenderID).
		Msg("processing relay event")

	if err := c.handler.HandleEvent(ctx, env.EventCode, env.Payload, env.SenderID); err != nil {
		return fmt.Errorf("handle %s event: %w", env.EventCode, err)
	}
	return nil
}

var errForeignMatch = errors.New("event for another match")

// isPermanent reports whether redelivering the message could never succeed
func isPermanent(err error) bool {
	return errors.Is(err, events.ErrMalformedEnvelope) ||
		errors.Is(err, errForeignMatch) ||
		errors.Is(err, match.ErrUnknownState) ||
		errors.Is(err, match.ErrUnknownEventCode)
}
