package surety

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
)

type policyKey struct {
	passenger models.Address
	flight    models.FlightKey
}

// insuranceLedger owns policies. It reads flight status but never writes it.
type insuranceLedger struct {
	policies map[policyKey]*models.Policy
}

func newInsuranceLedger() *insuranceLedger {
	return &insuranceLedger{policies: make(map[policyKey]*models.Policy)}
}

// creditInsurees awards Paid x 1.5 to every policy on the flight when it was
// late due to the airline. Policies already credited are left alone.
func (l *insuranceLedger) creditInsurees(tx *txn, key models.FlightKey, status models.FlightStatus) {
	if status != models.StatusLateAirline {
		return
	}
	for pk, p := range l.policies {
		if pk.flight != key || p.Credited {
			continue
		}
		p.Credit = p.Paid.Mul(models.CreditMultiplier)
		p.Credited = true
		tx.emit(models.EventInsureeCredited, func(e *models.Event) {
			e.Subject = p.Passenger
			e.Flight = &p.Flight
			e.Amount = p.Credit.String()
		})
		slog.Info("Insuree credited", "passenger", p.Passenger, "flight", key.String(), "credit", p.Credit.String())
	}
}

func (l *insuranceLedger) owed(passenger models.Address) []*models.Policy {
	var out []*models.Policy
	for pk, p := range l.policies {
		if pk.passenger == passenger && p.Credit.IsPositive() {
			out = append(out, p)
		}
	}
	return out
}

// Buy insures passenger on the latest registered flight with code for a
// premium in (0, MaxInsurance]. A passenger holds at most one policy per flight.
func (s *Surety) Buy(passenger models.Address, code string, payment decimal.Decimal) error {
	return s.mutate("buy", passenger, func(tx *txn) error {
		if passenger.IsZero() {
			return fmt.Errorf("buy: empty passenger: %w", ErrInvalidArgument)
		}
		f := s.flights.latest(code, "")
		if f == nil {
			return fmt.Errorf("buy: %s: %w", code, ErrFlightNotFound)
		}
		if !s.airlines.get(f.Key.Airline).CanOperate() {
			return fmt.Errorf("buy: airline %s cannot sell insurance: %w", f.Key.Airline, ErrUnauthorized)
		}
		if !payment.IsPositive() || payment.GreaterThan(s.params.MaxInsurance) {
			return fmt.Errorf("buy: %s not in (0, %s]: %w", payment, s.params.MaxInsurance, ErrPaymentOutOfBounds)
		}
		pk := policyKey{passenger: passenger, flight: f.Key}
		if _, ok := s.ledger.policies[pk]; ok {
			return fmt.Errorf("buy: %s on %s: %w", passenger, f.Key, ErrDuplicatePolicy)
		}

		s.ledger.policies[pk] = &models.Policy{
			Passenger: passenger,
			Flight:    f.Key,
			Paid:      payment,
			Credit:    decimal.Zero,
			BoughtAt:  tx.now,
		}
		s.treasury = s.treasury.Add(payment)
		tx.emit(models.EventInsuranceBought, func(e *models.Event) {
			e.Subject = passenger
			e.Flight = &pk.flight
			e.Amount = payment.String()
		})
		slog.Info("Insurance bought", "passenger", passenger, "flight", f.Key.String(), "amount", payment.String())
		return nil
	})
}

// GetPayableCredit returns the credit owed to caller across all policies
func (s *Surety) GetPayableCredit(caller models.Address) decimal.Decimal {
	total := decimal.Zero
	s.view(func() {
		for _, p := range s.ledger.owed(caller) {
			total = total.Add(p.Credit)
		}
	})
	return total
}

// Pay transfers all credit owed to passenger. Credit is zeroed before the
// transfer; a failed transfer reverts the call. The caller must be the
// passenger or an authorized caller.
func (s *Surety) Pay(ctx context.Context, caller, passenger models.Address) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := s.mutate("pay", caller, func(tx *txn) error {
		if caller != passenger && !s.gate.isAuthorized(caller) {
			return fmt.Errorf("pay: %w", ErrUnauthorized)
		}
		owed := s.ledger.owed(passenger)
		total := decimal.Zero
		for _, p := range owed {
			total = total.Add(p.Credit)
		}
		if !total.IsPositive() {
			return fmt.Errorf("pay: %s: %w", passenger, ErrNothingToWithdraw)
		}
		if s.treasury.LessThan(total) {
			return fmt.Errorf("pay: treasury %s cannot cover %s: %w", s.treasury, total, ErrInsufficientFunds)
		}

		previous := make([]decimal.Decimal, len(owed))
		for i, p := range owed {
			previous[i] = p.Credit
			p.Credit = decimal.Zero
		}
		s.treasury = s.treasury.Sub(total)

		if err := s.payer.Transfer(ctx, passenger, total); err != nil {
			for i, p := range owed {
				p.Credit = previous[i]
			}
			s.treasury = s.treasury.Add(total)
			return fmt.Errorf("pay: %v: %w", err, ErrTransferFailed)
		}

		paid = total
		tx.emit(models.EventInsureePaid, func(e *models.Event) {
			e.Subject = passenger
			e.Amount = total.String()
		})
		slog.Info("Insuree paid", "passenger", passenger, "amount", total.String())
		return nil
	})
	return paid, err
}

// IsExistingPassenger reports whether passenger holds any policy
func (s *Surety) IsExistingPassenger(passenger models.Address) bool {
	var out bool
	s.view(func() {
		for pk := range s.ledger.policies {
			if pk.passenger == passenger {
				out = true
				return
			}
		}
	})
	return out
}

// Policy returns the passenger's policy on the latest registered flight with code
func (s *Surety) Policy(passenger models.Address, code string) (models.Policy, bool) {
	var (
		out models.Policy
		ok  bool
	)
	s.view(func() {
		f := s.flights.latest(code, "")
		if f == nil {
			return
		}
		p, found := s.ledger.policies[policyKey{passenger: passenger, flight: f.Key}]
		if found {
			out, ok = *p, true
		}
	})
	return out, ok
}

// Policies returns copies of the passenger's policies ordered by purchase time
func (s *Surety) Policies(passenger models.Address) []models.Policy {
	var out []models.Policy
	s.view(func() {
		for pk, p := range s.ledger.policies {
			if pk.passenger == passenger {
				out = append(out, *p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].BoughtAt.Before(out[j].BoughtAt) })
	return out
}
