package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"flight_surety/internal/models"
)

// Broadcaster fans committed events out to subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[string]chan models.Event
	closed  bool
	dropped atomic.Uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]chan models.Event)}
}

// Subscribe registers a named subscriber with the given buffer size
func (b *Broadcaster) Subscribe(name string, buffer int) <-chan models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Event, buffer)
	if b.closed {
		close(ch)
		return ch
	}
	if old, ok := b.subs[name]; ok {
		close(old)
	}
	b.subs[name] = ch
	return ch
}

// Publish delivers evt to every subscriber with room in its buffer
func (b *Broadcaster) Publish(evt models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for name, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			slog.Warn("Event subscriber full, dropping event", "subscriber", name, "event", evt.Type)
		}
	}
}

// Dropped returns the number of deliveries skipped because a buffer was full
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for name, ch := range b.subs {
		close(ch)
		delete(b.subs, name)
	}
}
