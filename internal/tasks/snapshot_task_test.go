package tasks

import (
	"context"
	"testing"
	"time"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSnapshotter struct {
	snap models.Snapshot
}

func (s staticSnapshotter) Snapshot() models.Snapshot { return s.snap }

type mockSnapshotRepository struct {
	saved []*models.Snapshot
	err   error
}

func (m *mockSnapshotRepository) Save(snap *models.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *mockSnapshotRepository) Load() (*models.Snapshot, bool, error) {
	if len(m.saved) == 0 {
		return nil, false, nil
	}
	return m.saved[len(m.saved)-1], true, nil
}

func TestSnapshotTask_Run(t *testing.T) {
	source := staticSnapshotter{snap: models.Snapshot{Owner: "0xowner", Treasury: decimal.NewFromInt(10)}}
	repo := &mockSnapshotRepository{}
	task := NewSnapshotTask(source, repo, time.Minute)

	assert.Equal(t, "snapshot", task.Name())
	assert.Equal(t, time.Minute, task.Interval())

	require.NoError(t, task.Run(context.Background()))
	require.NoError(t, task.Finalize(context.Background()))
	require.Len(t, repo.saved, 2)
	assert.Equal(t, models.Address("0xowner"), repo.saved[1].Owner)
}

func TestSnapshotTask_Errors(t *testing.T) {
	repo := &mockSnapshotRepository{err: assert.AnError}
	task := NewSnapshotTask(staticSnapshotter{}, repo, time.Minute)

	err := task.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewSnapshotTask(staticSnapshotter{}, &mockSnapshotRepository{}, time.Minute).Run(ctx), context.Canceled)
}
