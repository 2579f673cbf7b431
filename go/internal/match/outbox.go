package match

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/rs/zerolog/log"
)

const (
	defaultOutboxSize  = 64
	defaultSendTimeout = tickInterval
)

type outboundEvent struct {
	code    events.EventCode
	payload any
}

// outbox hands peer events to the relay from its own goroutine, so a slow or
// unreachable relay never holds up the controller lock or the countdown.
// Events are sent in order. When the queue is full new events are dropped.
type outbox struct {
	relay   Relay
	matchID uuid.UUID
	timeout time.Duration
	queue   chan outboundEvent

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

func newOutbox(relay Relay, matchID uuid.UUID, size int, timeout time.Duration) *outbox {
	if size <= 0 {
		size = defaultOutboxSize
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &outbox{
		relay:   relay,
		matchID: matchID,
		timeout: timeout,
		queue:   make(chan outboundEvent, size),
		ctx:     ctx,
		cancel:  cancel,
	}
	o.wg.Add(1)
	go o.run()
	return o
}

// enqueue never blocks. It must not be called after stop.
func (o *outbox) enqueue(code events.EventCode, payload any) {
	select {
	case o.queue <- outboundEvent{code: code, payload: payload}:
	default:
		log.Warn().
			Str("match_id", o.matchID.String()).
			Str("event_code", string(code)).
			Msg("relay outbox full, dropping match event")
	}
}

func (o *outbox) run() {
	defer o.wg.Done()
	for ev := range o.queue {
		o.send(ev)
	}
}

func (o *outbox) send(ev outboundEvent) {
	ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
	defer cancel()

	if err := o.relay.Send(ctx, ev.code, ev.payload); err != nil {
		log.Error().
			Err(err).
			Str("match_id", o.matchID.String()).
			Str("event_code", string(ev.code)).
			Msg("failed to broadcast match event")
	}
}

// stop cancels in-flight sends, hands what is still queued to the relay with a
// cancelled context and waits for the worker to exit.
func (o *outbox) stop() {
	o.once.Do(func() {
		o.cancel()
		close(o.queue)
	})
	o.wg.Wait()
}
