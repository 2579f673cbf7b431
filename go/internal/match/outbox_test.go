package match

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRelay holds every send until release is closed
type gatedRelay struct {
	fakeRelay
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRelay) Send(ctx context.Context, code events.EventCode, payload any) error {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeRelay.Send(ctx, code, payload)
}

func TestOutbox_DeliversInOrder(t *testing.T) {
	relay := &fakeRelay{}
	o := newOutbox(relay, uuid.New(), 8, time.Second)

	for i := 3; i >= 0; i-- {
		o.enqueue(events.GameTime, events.GameTimePayload{TimeRemainingSec: i})
	}
	o.stop()

	var got []int
	for _, p := range relay.Sent(events.GameTime) {
		got = append(got, p.(events.GameTimePayload).TimeRemainingSec)
	}
	assert.Equal(t, []int{3, 2, 1, 0}, got)
}

func TestOutbox_DropsWhenFull(t *testing.T) {
	relay := &gatedRelay{entered: make(chan struct{}, 8), release: make(chan struct{})}
	o := newOutbox(relay, uuid.New(), 1, time.Second)

	o.enqueue(events.GameTime, events.GameTimePayload{TimeRemainingSec: 3})
	select {
	case <-relay.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first event")
	}

	// one slot left in the queue; the rest are dropped without blocking
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 2; i >= 0; i-- {
			o.enqueue(events.GameTime, events.GameTimePayload{TimeRemainingSec: i})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a full outbox")
	}

	close(relay.release)
	o.stop()

	require.Len(t, relay.Sent(events.GameTime), 2)
}
