package surety

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
)

// ConsensusThreshold is the number of registered airlines from which new
// admissions require a vote of the existing members
const ConsensusThreshold = 4

// Params holds the limits fixed at initialization
type Params struct {
	Owner           models.Address
	GenesisName     string
	MinimumFunds    decimal.Decimal
	RegistrationFee decimal.Decimal
	MaxInsurance    decimal.Decimal
}

func (p Params) validate() error {
	if p.Owner.IsZero() {
		return fmt.Errorf("owner is required")
	}
	if !p.MinimumFunds.IsPositive() {
		return fmt.Errorf("minimum funds must be positive")
	}
	if p.RegistrationFee.IsNegative() {
		return fmt.Errorf("registration fee must not be negative")
	}
	if !p.MaxInsurance.IsPositive() {
		return fmt.Errorf("max insurance must be positive")
	}
	return nil
}

// Publisher receives events after the transition that produced them commits
type Publisher interface {
	Publish(evt models.Event)
}

// Payer moves funds out of the contract to a passenger. Transfer runs while
// the Surety lock is held, so it must not call back into the Surety.
type Payer interface {
	Transfer(ctx context.Context, to models.Address, amount decimal.Decimal) error
}

// Option configures a Surety
type Option func(*Surety)

// WithIndexSource replaces the default crypto/rand index source
func WithIndexSource(src IndexSource) Option {
	return func(s *Surety) { s.entropy = src }
}

// WithPublisher sets the receiver of committed events
func WithPublisher(p Publisher) Option {
	return func(s *Surety) { s.publisher = p }
}

// WithPayer sets the transfer backend used by Pay
func WithPayer(p Payer) Option {
	return func(s *Surety) { s.payer = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Surety) { s.now = now }
}

// Surety owns the whole state store and composes the authorization gate,
// airline registry, flight catalog, oracle consensus and insurance ledger.
// Calls are serialized: each public operation runs to completion before the
// next starts, and a rejected operation changes nothing.
type Surety struct {
	mu sync.Mutex

	params    Params
	now       func() time.Time
	entropy   IndexSource
	publisher Publisher
	payer     Payer

	gate     *gate
	airlines *airlineRegistry
	flights  *flightCatalog
	oracles  *oracleConsensus
	ledger   *insuranceLedger
	treasury decimal.Decimal
}

// New creates a surety with the owner pre-registered as the genesis airline
// (Registered, not funded) and operations enabled
func New(params Params, opts ...Option) (*Surety, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	s := &Surety{
		params:  params,
		now:     time.Now,
		entropy: CryptoSource{},
		payer:   nopPayer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()

	return s, nil
}

func (s *Surety) reset() {
	s.gate = newGate(s.params.Owner)
	s.airlines = newAirlineRegistry()
	s.flights = newFlightCatalog()
	s.oracles = newOracleConsensus()
	s.ledger = newInsuranceLedger()
	s.treasury = decimal.Zero

	name := s.params.GenesisName
	if name == "" {
		name = "genesis"
	}
	s.airlines.seed(s.params.Owner, name)
}

// Params returns the fixed limits
func (s *Surety) Params() Params {
	return s.params
}

// MinimumFunds is the amount an airline must provide to fund itself
func (s *Surety) MinimumFunds() decimal.Decimal { return s.params.MinimumFunds }

// RegistrationFee is the amount an oracle pays to register
func (s *Surety) RegistrationFee() decimal.Decimal { return s.params.RegistrationFee }

// MaxInsurance is the largest premium a passenger may pay for one flight
func (s *Surety) MaxInsurance() decimal.Decimal { return s.params.MaxInsurance }

// txn collects the events of one operation until it commits
type txn struct {
	now    time.Time
	caller models.Address
	events []models.Event
}

func (t *txn) emit(typ models.EventType, fill func(e *models.Event)) {
	evt := models.NewEvent(typ, t.now, t.caller)
	if fill != nil {
		fill(&evt)
	}
	t.events = append(t.events, evt)
}

// mutate runs fn under the lock after the operational check. fn must check
// every precondition before changing any state.
func (s *Surety) mutate(op string, caller models.Address, fn func(tx *txn) error) error {
	return s.run(op, caller, true, fn)
}

func (s *Surety) run(op string, caller models.Address, requireOperational bool, fn func(tx *txn) error) error {
	tx := &txn{caller: caller}

	s.mu.Lock()
	tx.now = s.now().UTC()
	var err error
	if requireOperational && !s.gate.operational {
		err = fmt.Errorf("%s: %w", op, ErrNotOperational)
	} else {
		err = fn(tx)
	}
	s.mu.Unlock()

	if err != nil {
		slog.Debug("Call rejected", "op", op, "caller", caller, "error", err)
		return err
	}

	if s.publisher != nil {
		for _, evt := range tx.events {
			s.publisher.Publish(evt)
		}
	}
	return nil
}

// view runs a read under the lock
func (s *Surety) view(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Treasury returns the balance held by the contract
func (s *Surety) Treasury() decimal.Decimal {
	var out decimal.Decimal
	s.view(func() { out = s.treasury })
	return out
}

type nopPayer struct{}

func (nopPayer) Transfer(context.Context, models.Address, decimal.Decimal) error { return nil }
