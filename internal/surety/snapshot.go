package surety

import (
	"fmt"
	"log/slog"
	"sort"

	"flight_surety/internal/models"
)

// Snapshot captures the persistent state. Open status requests are not included.
func (s *Surety) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		TakenAt:     s.now().UTC(),
		Owner:       s.gate.owner,
		Operational: s.gate.operational,
		Treasury:    s.treasury,
	}
	for a := range s.gate.authorized {
		snap.Authorized = append(snap.Authorized, a)
	}
	for _, a := range s.airlines.airlines {
		snap.Airlines = append(snap.Airlines, cloneAirline(a))
	}
	for _, f := range s.flights.flights {
		snap.Flights = append(snap.Flights, *f)
	}
	for _, o := range s.oracles.oracles {
		snap.Oracles = append(snap.Oracles, *o)
	}
	for _, p := range s.ledger.policies {
		snap.Policies = append(snap.Policies, *p)
	}

	sort.Slice(snap.Authorized, func(i, j int) bool { return snap.Authorized[i] < snap.Authorized[j] })
	sort.Slice(snap.Airlines, func(i, j int) bool { return snap.Airlines[i].Address < snap.Airlines[j].Address })
	sort.Slice(snap.Flights, func(i, j int) bool { return snap.Flights[i].Seq < snap.Flights[j].Seq })
	sort.Slice(snap.Oracles, func(i, j int) bool { return snap.Oracles[i].Address < snap.Oracles[j].Address })
	sort.Slice(snap.Policies, func(i, j int) bool {
		if snap.Policies[i].Passenger != snap.Policies[j].Passenger {
			return snap.Policies[i].Passenger < snap.Policies[j].Passenger
		}
		return snap.Policies[i].Flight.String() < snap.Policies[j].Flight.String()
	})
	return snap
}

// Restore replaces the state with snap. Flights with a final status get a
// finalized request so that consensus cannot run on them again.
func (s *Surety) Restore(snap models.Snapshot) error {
	if snap.Owner != s.params.Owner {
		return fmt.Errorf("restore: owner %s, configured %s: %w", snap.Owner, s.params.Owner, ErrSnapshotMismatch)
	}

	airlines := newAirlineRegistry()
	for i := range snap.Airlines {
		a := cloneAirline(&snap.Airlines[i])
		airlines.airlines[a.Address] = &a
		if a.IsRegistered() {
			airlines.registered++
		}
	}
	if !airlines.get(snap.Owner).IsRegistered() {
		return fmt.Errorf("restore: genesis airline missing: %w", ErrSnapshotMismatch)
	}

	g := newGate(snap.Owner)
	g.operational = snap.Operational
	for _, a := range snap.Authorized {
		g.authorized[a] = true
	}

	flights := newFlightCatalog()
	oracles := newOracleConsensus()
	for i := range snap.Flights {
		f := snap.Flights[i]
		flights.flights[f.Key] = &f
		if f.Seq > flights.seq {
			flights.seq = f.Seq
		}
		if f.Status.IsFinal() {
			oracles.requests[f.Key] = &models.StatusRequest{
				Key:         f.Key,
				Responses:   make(map[uint8]map[models.FlightStatus][]models.Address),
				Finalized:   true,
				FinalStatus: f.Status,
				FinalizedAt: f.UpdatedAt,
			}
		}
	}
	for i := range snap.Oracles {
		o := snap.Oracles[i]
		oracles.oracles[o.Address] = &o
	}

	ledger := newInsuranceLedger()
	for i := range snap.Policies {
		p := snap.Policies[i]
		ledger.policies[policyKey{passenger: p.Passenger, flight: p.Flight}] = &p
	}

	s.mu.Lock()
	s.gate = g
	s.airlines = airlines
	s.flights = flights
	s.oracles = oracles
	s.ledger = ledger
	s.treasury = snap.Treasury
	s.mu.Unlock()

	slog.Info("State restored",
		"taken_at", snap.TakenAt,
		"airlines", len(snap.Airlines),
		"flights", len(snap.Flights),
		"oracles", len(snap.Oracles),
		"policies", len(snap.Policies),
	)
	return nil
}
