package surety

import (
	"context"
	"errors"
	"testing"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPayer struct{}

func (failingPayer) Transfer(context.Context, models.Address, decimal.Decimal) error {
	return errors.New("wallet offline")
}

// finalizeStatus has three oracles report status for key
func finalizeStatus(t *testing.T, s *Surety, key models.FlightKey, status models.FlightStatus) {
	t.Helper()
	oracles := registerOracles(t, s, 3)
	_, err := s.FetchFlightStatus(passenger, key)
	require.NoError(t, err)
	for _, o := range oracles {
		require.NoError(t, s.SubmitOracleResponse(o, 2, key, status))
	}
	got, err := s.ViewFlightStatus(key.Code, key.Airline)
	require.NoError(t, err)
	require.Equal(t, status, got)
}

func TestBuy(t *testing.T) {
	s := setupSurety(t)
	key := setupFundedGenesis(t, s)
	treasury := s.Treasury()

	tests := []struct {
		name    string
		code    string
		amount  decimal.Decimal
		wantErr error
	}{
		{name: "unknown flight", code: "XX1", amount: maxInsurance, wantErr: ErrFlightNotFound},
		{name: "zero payment", code: key.Code, amount: decimal.Zero, wantErr: ErrPaymentOutOfBounds},
		{name: "negative payment", code: key.Code, amount: decimal.NewFromInt(-1), wantErr: ErrPaymentOutOfBounds},
		{name: "above limit", code: key.Code, amount: maxInsurance.Add(decimal.RequireFromString("0.000001")), wantErr: ErrPaymentOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Buy(passenger, tt.code, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, s.IsExistingPassenger(passenger))
		})
	}
	assert.True(t, s.Treasury().Equal(treasury))

	require.NoError(t, s.Buy(passenger, key.Code, maxInsurance))
	assert.True(t, s.IsExistingPassenger(passenger))
	assert.True(t, s.Treasury().Equal(treasury.Add(maxInsurance)))

	err := s.Buy(passenger, key.Code, decimal.RequireFromString("0.5"))
	assert.ErrorIs(t, err, ErrDuplicatePolicy)

	policy, ok := s.Policy(passenger, key.Code)
	require.True(t, ok)
	assert.Equal(t, key, policy.Flight)
	_, ok = s.Policy(passenger, "XX1")
	assert.False(t, ok)

	policies := s.Policies(passenger)
	require.Len(t, policies, 1)
	assert.True(t, policies[0].Paid.Equal(maxInsurance))
	assert.True(t, policies[0].Credit.IsZero())
	assert.True(t, s.GetPayableCredit(passenger).IsZero())
}

func TestCredit_OnlyForLateAirline(t *testing.T) {
	s := setupSurety(t)
	key := setupFundedGenesis(t, s)
	require.NoError(t, s.Buy(passenger, key.Code, maxInsurance))

	finalizeStatus(t, s, key, models.StatusLateWeather)
	assert.True(t, s.GetPayableCredit(passenger).IsZero())

	_, err := s.Pay(context.Background(), passenger, passenger)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestPay_Authorization(t *testing.T) {
	s := setupSurety(t)
	key := setupFundedGenesis(t, s)
	require.NoError(t, s.Buy(passenger, key.Code, maxInsurance))
	finalizeStatus(t, s, key, models.StatusLateAirline)

	_, err := s.Pay(context.Background(), "0xstranger", passenger)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, s.AuthorizeCaller(owner, "0xapp"))
	paid, err := s.Pay(context.Background(), "0xapp", passenger)
	require.NoError(t, err)
	assert.True(t, paid.Equal(decimal.RequireFromString("1.5")))
}

func TestPay_TransferFailureReverts(t *testing.T) {
	s := setupSurety(t, WithPayer(failingPayer{}))
	key := setupFundedGenesis(t, s)
	require.NoError(t, s.Buy(passenger, key.Code, maxInsurance))
	finalizeStatus(t, s, key, models.StatusLateAirline)
	treasury := s.Treasury()

	_, err := s.Pay(context.Background(), passenger, passenger)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.True(t, s.GetPayableCredit(passenger).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, s.Treasury().Equal(treasury))
}

func TestPay_InsufficientTreasury(t *testing.T) {
	s := setupSurety(t)
	key := setupFundedGenesis(t, s)
	require.NoError(t, s.Buy(passenger, key.Code, maxInsurance))
	finalizeStatus(t, s, key, models.StatusLateAirline)

	// drain the treasury through a restore of the same state
	snap := s.Snapshot()
	snap.Treasury = decimal.NewFromInt(1)
	require.NoError(t, s.Restore(snap))

	_, err := s.Pay(context.Background(), passenger, passenger)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, s.GetPayableCredit(passenger).Equal(decimal.RequireFromString("1.5")))
}

// Passenger buys at the limit, three oracles report late-airline, the
// passenger is credited 1.5x and withdraws exactly once.
func TestInsurancePayoutScenario(t *testing.T) {
	pub := &recordingPublisher{}
	wallets := NewWallets()
	s := setupSurety(t, WithPublisher(pub), WithPayer(wallets))
	key := setupFundedGenesis(t, s)

	require.NoError(t, s.Buy(passenger, key.Code, maxInsurance))
	finalizeStatus(t, s, key, models.StatusLateAirline)

	expected := maxInsurance.Mul(decimal.RequireFromString("1.5"))
	credit := s.GetPayableCredit(passenger)
	assert.True(t, credit.Equal(expected), "credit %s", credit)
	assert.Equal(t, 1, pub.count(models.EventInsureeCredited))

	treasury := s.Treasury()
	paid, err := s.Pay(context.Background(), owner, passenger)
	require.NoError(t, err)
	assert.True(t, paid.Equal(expected))
	assert.True(t, wallets.Balance(passenger).Equal(expected))
	assert.True(t, s.GetPayableCredit(passenger).IsZero())
	assert.True(t, s.Treasury().Equal(treasury.Sub(expected)))

	_, err = s.Pay(context.Background(), passenger, passenger)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
	assert.True(t, wallets.Balance(passenger).Equal(expected))

	// a repeated notification cannot credit the policy again
	s.mu.Lock()
	s.ledger.creditInsurees(&txn{now: testNow}, key, models.StatusLateAirline)
	s.mu.Unlock()
	assert.True(t, s.GetPayableCredit(passenger).IsZero())

	policies := s.Policies(passenger)
	require.Len(t, policies, 1)
	assert.True(t, policies[0].Credited)
	assert.Equal(t, 1, pub.count(models.EventInsureePaid))
}
