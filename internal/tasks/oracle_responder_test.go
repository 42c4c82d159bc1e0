package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"flight_surety/internal/events"
	"flight_surety/internal/models"
	"flight_surety/internal/surety"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[models.FlightKey]models.FlightStatus

func (m mapLookup) Status(key models.FlightKey) (models.FlightStatus, bool) {
	s, ok := m[key]
	return s, ok
}

const owner models.Address = "0xowner"

func setupResponder(t *testing.T, lookup StatusLookup, fallback models.FlightStatus, oracleCount int) (*surety.Surety, *OracleResponder, models.FlightKey) {
	t.Helper()
	bus := events.NewBroadcaster()
	t.Cleanup(bus.Close)

	s, err := surety.New(surety.Params{
		Owner:           owner,
		MinimumFunds:    decimal.NewFromInt(10),
		RegistrationFee: decimal.NewFromInt(1),
		MaxInsurance:    decimal.NewFromInt(1),
	},
		surety.WithIndexSource(surety.NewSequenceSource(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)),
		surety.WithPublisher(bus),
	)
	require.NoError(t, err)

	addrs := make([]models.Address, oracleCount)
	for i := range addrs {
		addrs[i] = models.Address(fmt.Sprintf("0xoracle%02d", i))
	}
	responder := NewOracleResponder(s, lookup, bus.Subscribe("oracles", 256), addrs, fallback)
	require.NoError(t, responder.Register())

	require.NoError(t, s.Fund(owner, decimal.NewFromInt(10)))
	key := models.FlightKey{Airline: owner, Code: "ND1309", Timestamp: 1714564800}
	require.NoError(t, s.RegisterFlight(owner, key.Code, key.Timestamp))
	return s, responder, key
}

func TestOracleResponder_Register(t *testing.T) {
	s, responder, _ := setupResponder(t, nil, models.StatusOnTime, 5)

	assert.Len(t, responder.indexes, 5)
	// five fees plus the genesis funding
	treasury := s.Treasury()
	assert.True(t, treasury.Equal(decimal.NewFromInt(15)), "treasury %s", treasury)

	// registering again reuses the existing indexes and charges nothing
	before := responder.indexes[models.Address("0xoracle00")]
	require.NoError(t, responder.Register())
	assert.Equal(t, before, responder.indexes[models.Address("0xoracle00")])
	assert.True(t, s.Treasury().Equal(treasury))
}

func TestOracleResponder_FinalizesFromLookup(t *testing.T) {
	lookup := mapLookup{}
	s, responder, key := setupResponder(t, lookup, models.StatusOnTime, 20)
	lookup[key] = models.StatusLateAirline

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = responder.Start(ctx)
	}()

	_, err := s.FetchFlightStatus("0xpassenger", key)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		status, err := s.ViewFlightStatus(key.Code, owner)
		return err == nil && status == models.StatusLateAirline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOracleResponder_Fallback(t *testing.T) {
	s, responder, key := setupResponder(t, mapLookup{}, models.StatusLateOther, 20)

	req, err := s.FetchFlightStatus("0xpassenger", key)
	require.NoError(t, err)

	accepted := responder.respond(key, req.Indexes[:])
	assert.Greater(t, accepted, 0)

	status, err := s.ViewFlightStatus(key.Code, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLateOther, status)
}

func TestOracleResponder_AbstainsWithoutKnownStatus(t *testing.T) {
	lookup := mapLookup{}
	s, responder, key := setupResponder(t, lookup, models.StatusUnknown, 20)

	req, err := s.FetchFlightStatus("0xpassenger", key)
	require.NoError(t, err)

	assert.Equal(t, 0, responder.respond(key, req.Indexes[:]))
	open, ok := s.Request(key)
	require.True(t, ok)
	assert.False(t, open.Finalized)

	// a feed report lets the oracles answer the still open request
	lookup[key] = models.StatusLateWeather
	assert.Greater(t, responder.respond(key, req.Indexes[:]), 0)

	status, err := s.ViewFlightStatus(key.Code, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLateWeather, status)
}
