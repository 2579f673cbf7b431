package match

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateChange is published on the Bus once per accepted transition
type StateChange struct {
	MatchID       uuid.UUID `json:"match_id"`
	Previous      GameState `json:"previous"`
	State         GameState `json:"state"`
	TimeRemaining int       `json:"time_remaining_sec"`
	Origin        Origin    `json:"origin"`
	ChangedAt     time.Time `json:"changed_at"`
}

// Bus fans state-change notifications out to subscribers.
// Publish never blocks; a subscriber whose buffer is full misses the notification.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan StateChange
	nextID uint64
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]chan StateChange),
	}
}

// Subscribe returns a channel of notifications and a func that unsubscribes and closes it
func (b *Bus) Subscribe(buffer int) (<-chan StateChange, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan StateChange, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus) Publish(change StateChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- change:
		default:
			log.Warn().
				Uint64("subscriber", id).
				Str("state", change.State.String()).
				Msg("state change subscriber buffer full, dropping notification")
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
