package database

import (
	"os"
	"testing"
	"time"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	tmpFile := t.TempDir() + "/surety_test.db"
	os.Remove(tmpFile)

	db, err := New(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, db)

	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	if db != nil {
		err := db.Close()
		assert.NoError(t, err)
	}
}

func TestNew(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	assert.NotNil(t, db)
}

func TestEventRepository_InsertBatch(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	repo := db.EventRepository()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	key := models.FlightKey{Airline: "0xowner", Code: "ND1309", Timestamp: 1714564800}

	request := models.NewEvent(models.EventOracleRequest, now, "0xpassenger")
	request.Subject = "0xowner"
	request.Flight = &key
	request.Indexes = []uint8{1, 4, 7}

	credited := models.NewEvent(models.EventInsureeCredited, now.Add(time.Second), "0xoracle")
	credited.Subject = "0xpassenger"
	credited.Flight = &key
	credited.Amount = "1.5"

	funded := models.NewEvent(models.EventAirlineFunded, now.Add(2*time.Second), "0xowner")
	funded.Amount = "10"

	err := repo.InsertBatch([]models.Event{request, credited, funded})
	require.NoError(t, err)

	events, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, funded.ID, events[0].ID)
	assert.Nil(t, events[0].Flight)
	assert.Equal(t, "10", events[0].Amount)

	assert.Equal(t, credited.ID, events[1].ID)
	assert.Equal(t, "1.5", events[1].Amount)

	got := events[2]
	assert.Equal(t, models.EventOracleRequest, got.Type)
	assert.Equal(t, []uint8{1, 4, 7}, got.Indexes)
	require.NotNil(t, got.Flight)
	assert.Equal(t, key, *got.Flight)
	assert.True(t, got.Timestamp.Equal(now))
}

func TestEventRepository_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	repo := db.EventRepository()

	err := repo.InsertBatch([]models.Event{})
	assert.NoError(t, err)

	events, err := repo.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventRepository_Duplicates(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	repo := db.EventRepository()
	evt := models.NewEvent(models.EventAirlineRegistered, time.Now(), "0xowner")

	// Should not error, duplicates are ignored
	err := repo.InsertBatch([]models.Event{evt, evt})
	assert.NoError(t, err)

	events, err := repo.Recent(10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSnapshotRepository_SaveLoad(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	repo := db.SnapshotRepository()

	_, found, err := repo.Load()
	require.NoError(t, err)
	assert.False(t, found)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	key := models.FlightKey{Airline: "0xowner", Code: "ND1309", Timestamp: 1714564800}
	snap := &models.Snapshot{
		TakenAt:     now,
		Owner:       "0xowner",
		Operational: true,
		Authorized:  []models.Address{"0xapp"},
		Treasury:    decimal.RequireFromString("12.5"),
		Airlines: []models.Airline{
			{Address: "0xe", Name: "Airline E", State: models.AirlinePending, Votes: []models.Address{"0xb", "0xc"}},
			{Address: "0xowner", Name: "Genesis Air", State: models.AirlineRegistered, Funded: true},
		},
		Flights: []models.Flight{
			{Key: key, Status: models.StatusLateAirline, RegisteredAt: now, UpdatedAt: now.Add(time.Hour), Seq: 1},
		},
		Oracles: []models.Oracle{
			{Address: "0xoracle", Indexes: models.OracleIndexes{1, 2, 3}, RegisteredAt: now},
		},
		Policies: []models.Policy{
			{Passenger: "0xpassenger", Flight: key, Paid: decimal.NewFromInt(1), Credit: decimal.RequireFromString("1.5"), Credited: true, BoughtAt: now},
		},
	}

	require.NoError(t, repo.Save(snap))

	loaded, found, err := repo.Load()
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, snap.Owner, loaded.Owner)
	assert.True(t, loaded.Operational)
	assert.True(t, loaded.TakenAt.Equal(now))
	assert.True(t, loaded.Treasury.Equal(snap.Treasury))
	assert.Equal(t, snap.Authorized, loaded.Authorized)
	assert.Equal(t, snap.Airlines, loaded.Airlines)
	assert.Equal(t, snap.Oracles, loaded.Oracles)

	require.Len(t, loaded.Flights, 1)
	assert.Equal(t, key, loaded.Flights[0].Key)
	assert.Equal(t, models.StatusLateAirline, loaded.Flights[0].Status)
	assert.Equal(t, uint64(1), loaded.Flights[0].Seq)

	require.Len(t, loaded.Policies, 1)
	assert.True(t, loaded.Policies[0].Credit.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, loaded.Policies[0].Credited)

	// a second save replaces the first
	snap.Policies = nil
	snap.Operational = false
	require.NoError(t, repo.Save(snap))

	loaded, found, err = repo.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, loaded.Operational)
	assert.Empty(t, loaded.Policies)
}
