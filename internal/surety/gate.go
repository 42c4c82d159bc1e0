package surety

import (
	"fmt"
	"log/slog"

	"flight_surety/internal/models"
)

// gate holds the operational switch and the caller allow-list
type gate struct {
	owner       models.Address
	operational bool
	authorized  map[models.Address]bool
}

func newGate(owner models.Address) *gate {
	return &gate{
		owner:       owner,
		operational: true,
		authorized:  make(map[models.Address]bool),
	}
}

func (g *gate) requireOwner(caller models.Address) error {
	if caller != g.owner {
		return ErrNotOwner
	}
	return nil
}

// isAuthorized reports whether caller may act on behalf of others. The owner always may.
func (g *gate) isAuthorized(caller models.Address) bool {
	return caller == g.owner || g.authorized[caller]
}

// IsOperational reports whether mutating operations are enabled
func (s *Surety) IsOperational() bool {
	var out bool
	s.view(func() { out = s.gate.operational })
	return out
}

// SetOperatingStatus enables or disables all mutating operations. Only the
// owner may call it and it is allowed while not operational; setting the
// current value is accepted and changes nothing.
func (s *Surety) SetOperatingStatus(caller models.Address, mode bool) error {
	return s.run("setOperatingStatus", caller, false, func(tx *txn) error {
		if err := s.gate.requireOwner(caller); err != nil {
			return fmt.Errorf("setOperatingStatus: %w", err)
		}
		if s.gate.operational == mode {
			return nil
		}
		s.gate.operational = mode
		tx.emit(models.EventOperatingStatusChanged, func(e *models.Event) {
			e.Detail = fmt.Sprintf("operational=%t", mode)
		})
		slog.Info("Operating status changed", "operational", mode)
		return nil
	})
}

// AuthorizeCaller adds a caller to the allow-list
func (s *Surety) AuthorizeCaller(caller, target models.Address) error {
	return s.mutate("authorizeCaller", caller, func(tx *txn) error {
		if err := s.gate.requireOwner(caller); err != nil {
			return fmt.Errorf("authorizeCaller: %w", err)
		}
		if target.IsZero() {
			return fmt.Errorf("authorizeCaller: empty address: %w", ErrInvalidArgument)
		}
		if s.gate.authorized[target] {
			return nil
		}
		s.gate.authorized[target] = true
		tx.emit(models.EventCallerAuthorized, func(e *models.Event) { e.Subject = target })
		slog.Info("Caller authorized", "caller", target)
		return nil
	})
}

// IsAuthorized reports whether target is on the allow-list
func (s *Surety) IsAuthorized(target models.Address) bool {
	var out bool
	s.view(func() { out = s.gate.isAuthorized(target) })
	return out
}
