package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
)

// OracleBackend is the part of the surety the simulated oracles talk to
type OracleBackend interface {
	RegisterOracle(caller models.Address, payment decimal.Decimal) (models.OracleIndexes, error)
	GetMyIndexes(caller models.Address) (models.OracleIndexes, error)
	SubmitOracleResponse(caller models.Address, index uint8, key models.FlightKey, status models.FlightStatus) error
	RegistrationFee() decimal.Decimal
}

// StatusLookup knows the real-world status of a flight, if any
type StatusLookup interface {
	Status(key models.FlightKey) (models.FlightStatus, bool)
}

// OracleResponder runs a set of oracles that answer every oracle request
// they hold a matching index for
type OracleResponder struct {
	backend  OracleBackend
	lookup   StatusLookup
	events   <-chan models.Event
	oracles  []models.Address
	fallback models.FlightStatus
	indexes  map[models.Address]models.OracleIndexes
}

func NewOracleResponder(backend OracleBackend, lookup StatusLookup, events <-chan models.Event, oracles []models.Address, fallback models.FlightStatus) *OracleResponder {
	return &OracleResponder{
		backend:  backend,
		lookup:   lookup,
		events:   events,
		oracles:  oracles,
		fallback: fallback,
		indexes:  make(map[models.Address]models.OracleIndexes, len(oracles)),
	}
}

// Register makes sure every oracle is registered and caches its indexes.
// Oracles restored from a snapshot keep their indexes and are not charged
// again. The fee of a fresh registration has no wallet behind it: it is an
// operator endowment that enters the treasury once.
func (r *OracleResponder) Register() error {
	fee := r.backend.RegistrationFee()
	for _, addr := range r.oracles {
		idx, err := r.backend.GetMyIndexes(addr)
		if err != nil {
			idx, err = r.backend.RegisterOracle(addr, fee)
			if err != nil {
				return fmt.Errorf("failed to register oracle %s: %w", addr, err)
			}
		}
		r.indexes[addr] = idx
	}
	slog.Info("Oracles registered", "count", len(r.indexes))
	return nil
}

// Start answers oracle requests until the context is cancelled or the channel is closed
func (r *OracleResponder) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-r.events:
			if !ok {
				return nil
			}
			if evt.Type != models.EventOracleRequest || evt.Flight == nil {
				continue
			}
			r.respond(*evt.Flight, evt.Indexes)
		}
	}
}

// respond submits, for every oracle and every one of its indexes that is open
// on the request, the status known for the flight. Oracles abstain when
// neither the lookup nor the fallback yields a final status.
func (r *OracleResponder) respond(key models.FlightKey, open []uint8) int {
	status := r.fallback
	if r.lookup != nil {
		if known, ok := r.lookup.Status(key); ok {
			status = known
		}
	}
	if !status.IsFinal() {
		slog.Debug("No status known for flight, oracles abstain", "flight", key.String())
		return 0
	}

	accepted := 0
	for _, addr := range r.oracles {
		idx, ok := r.indexes[addr]
		if !ok {
			continue
		}
		for _, i := range idx {
			if !contains(open, i) {
				continue
			}
			err := r.backend.SubmitOracleResponse(addr, i, key, status)
			if err != nil {
				slog.Warn("Oracle response rejected", "oracle", addr, "index", i, "flight", key.String(), "error", err)
				continue
			}
			accepted++
		}
	}

	slog.Info("Oracles responded to request", "flight", key.String(), "status", status.String(), "accepted", accepted)
	return accepted
}

func contains(set []uint8, v uint8) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
