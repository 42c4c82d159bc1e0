package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flight_surety/internal/database"
	"flight_surety/internal/models"
)

// Snapshotter produces the current persistent state
type Snapshotter interface {
	Snapshot() models.Snapshot
}

// SnapshotTask periodically persists the surety state, and once more on shutdown
type SnapshotTask struct {
	source   Snapshotter
	repo     database.SnapshotRepository
	interval time.Duration
}

func NewSnapshotTask(source Snapshotter, repo database.SnapshotRepository, interval time.Duration) *SnapshotTask {
	return &SnapshotTask{source: source, repo: repo, interval: interval}
}

func (t *SnapshotTask) Name() string { return "snapshot" }

func (t *SnapshotTask) Interval() time.Duration { return t.interval }

func (t *SnapshotTask) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := t.source.Snapshot()
	if err := t.repo.Save(&snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	slog.Debug("Snapshot saved",
		"airlines", len(snap.Airlines),
		"flights", len(snap.Flights),
		"policies", len(snap.Policies),
	)
	return nil
}

// Finalize saves a last snapshot after the scheduler stopped
func (t *SnapshotTask) Finalize(ctx context.Context) error {
	return t.Run(ctx)
}
