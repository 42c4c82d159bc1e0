package surety

import (
	"fmt"
	"log/slog"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
)

// airlineRegistry owns airline records and admission voting
type airlineRegistry struct {
	airlines   map[models.Address]*models.Airline
	registered int
}

func newAirlineRegistry() *airlineRegistry {
	return &airlineRegistry{airlines: make(map[models.Address]*models.Airline)}
}

func (r *airlineRegistry) seed(addr models.Address, name string) {
	r.airlines[addr] = &models.Airline{
		Address: addr,
		Name:    name,
		State:   models.AirlineRegistered,
	}
	r.registered = 1
}

func (r *airlineRegistry) get(addr models.Address) *models.Airline {
	return r.airlines[addr]
}

// quorum is ceil(registered/2)
func (r *airlineRegistry) quorum() int {
	return (r.registered + 1) / 2
}

func (r *airlineRegistry) admit(tx *txn, a *models.Airline) {
	a.State = models.AirlineRegistered
	a.Votes = nil
	r.registered++
	tx.emit(models.EventAirlineRegistered, func(e *models.Event) {
		e.Subject = a.Address
		e.Detail = a.Name
	})
	slog.Info("Airline registered", "airline", a.Address, "name", a.Name, "airlines_count", r.registered)
}

// admitIfQuorum admits a pending airline once enough distinct members voted for it
func (r *airlineRegistry) admitIfQuorum(tx *txn, a *models.Airline) bool {
	if a.State != models.AirlinePending || len(a.Votes) < r.quorum() {
		return false
	}
	r.admit(tx, a)
	return true
}

// RegisterAirline admits candidate directly while fewer than ConsensusThreshold
// airlines are registered, otherwise queues it as Pending until a quorum of
// members votes for it. Calling it again for a Pending candidate re-checks the
// quorum. The caller must be a registered, funded airline.
func (s *Surety) RegisterAirline(caller, candidate models.Address, name string) error {
	return s.mutate("registerAirline", caller, func(tx *txn) error {
		r := s.airlines
		if !r.get(caller).CanOperate() {
			return fmt.Errorf("registerAirline: caller must be a registered, funded airline: %w", ErrUnauthorized)
		}
		if candidate.IsZero() {
			return fmt.Errorf("registerAirline: empty candidate: %w", ErrInvalidArgument)
		}

		existing := r.get(candidate)
		switch {
		case existing.IsRegistered():
			return fmt.Errorf("registerAirline: %s: %w", candidate, ErrAlreadyRegistered)
		case existing != nil:
			r.admitIfQuorum(tx, existing)
			return nil
		}

		a := &models.Airline{Address: candidate, Name: name, State: models.AirlinePending}
		r.airlines[candidate] = a
		if r.registered < ConsensusThreshold {
			r.admit(tx, a)
			return nil
		}

		tx.emit(models.EventAirlineQueued, func(e *models.Event) {
			e.Subject = candidate
			e.Detail = name
		})
		slog.Info("Airline queued for admission vote", "airline", candidate, "name", name, "quorum", r.quorum())
		return nil
	})
}

// SubmitAirlineVote records the caller's vote for a Pending candidate and
// admits it as soon as the votes reach ceil(registered/2)
func (s *Surety) SubmitAirlineVote(caller, candidate models.Address) error {
	return s.mutate("submitAirlineVote", caller, func(tx *txn) error {
		r := s.airlines
		if !r.get(caller).IsRegistered() {
			return fmt.Errorf("submitAirlineVote: caller must be a registered airline: %w", ErrUnauthorized)
		}
		a := r.get(candidate)
		if a == nil || a.State != models.AirlinePending {
			return fmt.Errorf("submitAirlineVote: %s: %w", candidate, ErrNotPending)
		}
		if a.HasVoted(caller) {
			return fmt.Errorf("submitAirlineVote: %s: %w", candidate, ErrDuplicateVote)
		}

		a.Votes = append(a.Votes, caller)
		tx.emit(models.EventAirlineVoted, func(e *models.Event) {
			e.Subject = candidate
			e.Detail = fmt.Sprintf("%d/%d", len(a.Votes), r.quorum())
		})
		slog.Info("Airline vote recorded", "airline", candidate, "voter", caller, "votes", len(a.Votes), "quorum", r.quorum())

		r.admitIfQuorum(tx, a)
		return nil
	})
}

// Fund marks the calling airline funded. Funding an already funded airline is
// a no-op and takes no payment.
func (s *Surety) Fund(caller models.Address, amount decimal.Decimal) error {
	return s.mutate("fund", caller, func(tx *txn) error {
		a := s.airlines.get(caller)
		if !a.IsRegistered() {
			return fmt.Errorf("fund: caller must be a registered airline: %w", ErrUnauthorized)
		}
		if a.Funded {
			return nil
		}
		if amount.LessThan(s.params.MinimumFunds) {
			return fmt.Errorf("fund: %s below minimum %s: %w", amount, s.params.MinimumFunds, ErrInsufficientFunds)
		}

		a.Funded = true
		s.treasury = s.treasury.Add(amount)
		tx.emit(models.EventAirlineFunded, func(e *models.Event) {
			e.Subject = caller
			e.Amount = amount.String()
		})
		slog.Info("Airline funded", "airline", caller, "amount", amount.String())
		return nil
	})
}

// AirlinesCount returns the number of registered airlines
func (s *Surety) AirlinesCount() int {
	var out int
	s.view(func() { out = s.airlines.registered })
	return out
}

// IsRegistered reports whether addr is a registered airline
func (s *Surety) IsRegistered(addr models.Address) bool {
	var out bool
	s.view(func() { out = s.airlines.get(addr).IsRegistered() })
	return out
}

// Airline returns a copy of the airline record
func (s *Surety) Airline(addr models.Address) (models.Airline, bool) {
	var out models.Airline
	var ok bool
	s.view(func() {
		a := s.airlines.get(addr)
		if a == nil {
			return
		}
		out, ok = cloneAirline(a), true
	})
	return out, ok
}

func cloneAirline(a *models.Airline) models.Airline {
	out := *a
	out.Votes = append([]models.Address(nil), a.Votes...)
	return out
}
