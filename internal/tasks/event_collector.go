package tasks

import (
	"context"
	"log/slog"
	"time"

	"flight_surety/internal/database"
	"flight_surety/internal/models"
)

// EventCollector journals committed events to the database in batches
type EventCollector struct {
	repo          database.EventRepository
	events        <-chan models.Event
	batchSize     int           // maximum number of events in a batch before committing to database
	flushInterval time.Duration // time to flush batch even if not full
}

// Default batch size is 100 events and flush interval is 1 second
func NewEventCollector(repo database.EventRepository, events <-chan models.Event) *EventCollector {
	return &EventCollector{
		repo:          repo,
		events:        events,
		batchSize:     100,
		flushInterval: 1 * time.Second,
	}
}

// NewEventCollectorWithConfig creates an event collector with custom batch settings
func NewEventCollectorWithConfig(repo database.EventRepository, events <-chan models.Event, batchSize int, flushInterval time.Duration) *EventCollector {
	return &EventCollector{
		repo:          repo,
		events:        events,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Start collects events until the context is cancelled or the channel is
// closed, flushing when the batch is full or flushInterval has elapsed
func (c *EventCollector) Start(ctx context.Context) error {
	batch := make([]models.Event, 0, c.batchSize)

	flushBatch := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.repo.InsertBatch(batch); err != nil {
			slog.Error("Error journaling events", "batch_size", len(batch), "error", err)
		} else {
			slog.Debug("Journaled events", "batch_size", len(batch))
		}
		batch = batch[:0]
	}

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// drain what is already buffered before exiting
			for {
				select {
				case evt, ok := <-c.events:
					if !ok {
						flushBatch()
						return ctx.Err()
					}
					batch = append(batch, evt)
				default:
					flushBatch()
					return ctx.Err()
				}
			}

		case <-ticker.C:
			flushBatch()

		case evt, ok := <-c.events:
			if !ok {
				flushBatch()
				return nil
			}

			batch = append(batch, evt)
			slog.Debug("Added event to batch",
				"type", evt.Type,
				"id", evt.ID,
				"current_batch_size", len(batch),
				"max_batch_size", c.batchSize,
			)

			if len(batch) >= c.batchSize {
				flushBatch()
			}
		}
	}
}
