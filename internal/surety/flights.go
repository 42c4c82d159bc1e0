package surety

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flight_surety/internal/models"
)

// flightCatalog owns flight records. Status is written only by consensus.
type flightCatalog struct {
	flights map[models.FlightKey]*models.Flight
	seq     uint64
}

func newFlightCatalog() *flightCatalog {
	return &flightCatalog{flights: make(map[models.FlightKey]*models.Flight)}
}

func (c *flightCatalog) get(key models.FlightKey) *models.Flight {
	return c.flights[key]
}

// latest resolves a bare flight code to the most recently registered flight
// carrying it, optionally restricted to one airline
func (c *flightCatalog) latest(code string, airline models.Address) *models.Flight {
	var found *models.Flight
	for _, f := range c.flights {
		if f.Key.Code != code {
			continue
		}
		if !airline.IsZero() && f.Key.Airline != airline {
			continue
		}
		if found == nil || f.Seq > found.Seq {
			found = f
		}
	}
	return found
}

func (c *flightCatalog) setStatus(key models.FlightKey, status models.FlightStatus, now time.Time) {
	f := c.flights[key]
	if f == nil || f.Status.IsFinal() {
		return
	}
	f.Status = status
	f.UpdatedAt = now
}

// RegisterFlight creates a flight with status Unknown for the calling airline.
// Registering the same (airline, code, timestamp) twice fails with ErrAlreadyRegistered.
func (s *Surety) RegisterFlight(caller models.Address, code string, timestamp int64) error {
	return s.mutate("registerFlight", caller, func(tx *txn) error {
		if !s.airlines.get(caller).CanOperate() {
			return fmt.Errorf("registerFlight: caller must be a registered, funded airline: %w", ErrUnauthorized)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("registerFlight: empty flight code: %w", ErrInvalidArgument)
		}

		key := models.FlightKey{Airline: caller, Code: code, Timestamp: timestamp}
		c := s.flights
		if c.get(key) != nil {
			return fmt.Errorf("registerFlight: %s: %w", key, ErrAlreadyRegistered)
		}

		c.seq++
		c.flights[key] = &models.Flight{
			Key:          key,
			Status:       models.StatusUnknown,
			RegisteredAt: tx.now,
			UpdatedAt:    tx.now,
			Seq:          c.seq,
		}
		tx.emit(models.EventFlightRegistered, func(e *models.Event) {
			e.Subject = caller
			e.Flight = &key
		})
		slog.Info("Flight registered", "flight", key.String())
		return nil
	})
}

// ViewFlightStatus returns the status of the latest flight with this code
// operated by airline
func (s *Surety) ViewFlightStatus(code string, airline models.Address) (models.FlightStatus, error) {
	var (
		status models.FlightStatus
		err    error
	)
	s.view(func() {
		f := s.flights.latest(code, airline)
		if f == nil {
			err = fmt.Errorf("viewFlightStatus: %s/%s: %w", airline, code, ErrFlightNotFound)
			return
		}
		status = f.Status
	})
	return status, err
}

// Flight returns a copy of the flight record for key
func (s *Surety) Flight(key models.FlightKey) (models.Flight, bool) {
	var out models.Flight
	var ok bool
	s.view(func() {
		if f := s.flights.get(key); f != nil {
			out, ok = *f, true
		}
	})
	return out, ok
}
