package feed

import (
	"context"
	"sync"

	"flight_surety/internal/models"
)

// Board keeps the latest reported status per flight
type Board struct {
	mu       sync.RWMutex
	statuses map[models.FlightKey]models.FlightStatus
}

func NewBoard() *Board {
	return &Board{statuses: make(map[models.FlightKey]models.FlightStatus)}
}

// Set records status for key
func (b *Board) Set(key models.FlightKey, status models.FlightStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[key] = status
}

// Status returns the latest status reported for key
func (b *Board) Status(key models.FlightKey) (models.FlightStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.statuses[key]
	return s, ok
}

// Consume applies updates until the context is cancelled or the channel is closed
func (b *Board) Consume(ctx context.Context, updates <-chan Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.Set(u.Key, u.Status)
		}
	}
}
