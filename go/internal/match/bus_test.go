package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a, unsubA := bus.Subscribe(1)
	b, unsubB := bus.Subscribe(1)
	defer unsubA()
	defer unsubB()

	bus.Publish(StateChange{State: GameReady})

	assert.Equal(t, GameReady, (<-a).State)
	assert.Equal(t, GameReady, (<-b).State)
}

func TestBus_DropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Publish(StateChange{State: GameReady})
	bus.Publish(StateChange{State: GameStart})

	assert.Equal(t, GameReady, (<-ch).State)
	assert.Empty(t, ch)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(1)
	require.Equal(t, 1, bus.Subscribers())

	unsub()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Subscribers())

	bus.Publish(StateChange{State: GameReady})
}
