package surety

import (
	"sync"
	"testing"
	"time"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	owner     models.Address = "0xowner"
	passenger models.Address = "0xpassenger"
)

var (
	minimumFunds    = decimal.NewFromInt(10)
	registrationFee = decimal.NewFromInt(1)
	maxInsurance    = decimal.NewFromInt(1)
	testNow         = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(evt models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) count(typ models.EventType) int {
	n := 0
	for _, t := range p.types() {
		if t == typ {
			n++
		}
	}
	return n
}

func testParams() Params {
	return Params{
		Owner:           owner,
		GenesisName:     "Genesis Air",
		MinimumFunds:    minimumFunds,
		RegistrationFee: registrationFee,
		MaxInsurance:    maxInsurance,
	}
}

// setupSurety creates a surety whose index source always yields {1, 2, 3}
func setupSurety(t *testing.T, opts ...Option) *Surety {
	t.Helper()
	base := []Option{
		WithIndexSource(NewSequenceSource(1, 2, 3)),
		WithClock(func() time.Time { return testNow }),
	}
	s, err := New(testParams(), append(base, opts...)...)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

// setupFundedGenesis funds the genesis airline and registers flight ND1309
func setupFundedGenesis(t *testing.T, s *Surety) models.FlightKey {
	t.Helper()
	require.NoError(t, s.Fund(owner, minimumFunds))
	key := models.FlightKey{Airline: owner, Code: "ND1309", Timestamp: testNow.Unix()}
	require.NoError(t, s.RegisterFlight(owner, key.Code, key.Timestamp))
	return key
}

func oracleAddr(i int) models.Address {
	return models.Address("0xoracle" + string(rune('a'+i)))
}

// registerOracles registers n oracles paying the fee
func registerOracles(t *testing.T, s *Surety, n int) []models.Address {
	t.Helper()
	out := make([]models.Address, 0, n)
	for i := 0; i < n; i++ {
		addr := oracleAddr(i)
		_, err := s.RegisterOracle(addr, registrationFee)
		require.NoError(t, err)
		out = append(out, addr)
	}
	return out
}
