package surety

import (
	"fmt"
	"log/slog"

	"flight_surety/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// oracleConsensus owns oracle registrations and status requests
type oracleConsensus struct {
	oracles  map[models.Address]*models.Oracle
	requests map[models.FlightKey]*models.StatusRequest
}

func newOracleConsensus() *oracleConsensus {
	return &oracleConsensus{
		oracles:  make(map[models.Address]*models.Oracle),
		requests: make(map[models.FlightKey]*models.StatusRequest),
	}
}

// record adds oracle under responses[index][status], ignoring repeats
func record(req *models.StatusRequest, index uint8, status models.FlightStatus, oracle models.Address) {
	byStatus := req.Responses[index]
	if byStatus == nil {
		byStatus = make(map[models.FlightStatus][]models.Address)
		req.Responses[index] = byStatus
	}
	for _, a := range byStatus[status] {
		if a == oracle {
			return
		}
	}
	byStatus[status] = append(byStatus[status], oracle)
}

// agreeing counts distinct oracles that reported status under any index of the request
func agreeing(req *models.StatusRequest, status models.FlightStatus) int {
	seen := make(map[models.Address]struct{})
	for _, byStatus := range req.Responses {
		for _, a := range byStatus[status] {
			seen[a] = struct{}{}
		}
	}
	return len(seen)
}

// RegisterOracle assigns three distinct indexes to the caller for a payment
// of at least the registration fee
func (s *Surety) RegisterOracle(caller models.Address, payment decimal.Decimal) (models.OracleIndexes, error) {
	var out models.OracleIndexes
	err := s.mutate("registerOracle", caller, func(tx *txn) error {
		if caller.IsZero() {
			return fmt.Errorf("registerOracle: empty caller: %w", ErrInvalidArgument)
		}
		if _, ok := s.oracles.oracles[caller]; ok {
			return fmt.Errorf("registerOracle: %s: %w", caller, ErrAlreadyRegistered)
		}
		if payment.LessThan(s.params.RegistrationFee) {
			return fmt.Errorf("registerOracle: %s below fee %s: %w", payment, s.params.RegistrationFee, ErrInsufficientFunds)
		}
		indexes, err := drawIndexes(s.entropy)
		if err != nil {
			return fmt.Errorf("registerOracle: %w", err)
		}

		s.oracles.oracles[caller] = &models.Oracle{Address: caller, Indexes: indexes, RegisteredAt: tx.now}
		s.treasury = s.treasury.Add(payment)
		out = indexes
		tx.emit(models.EventOracleRegistered, func(e *models.Event) {
			e.Subject = caller
			e.Indexes = indexes[:]
			e.Amount = payment.String()
		})
		slog.Info("Oracle registered", "oracle", caller, "indexes", indexes)
		return nil
	})
	return out, err
}

// GetMyIndexes returns the indexes assigned to the calling oracle
func (s *Surety) GetMyIndexes(caller models.Address) (models.OracleIndexes, error) {
	var (
		out models.OracleIndexes
		err error
	)
	s.view(func() {
		o, ok := s.oracles.oracles[caller]
		if !ok {
			err = fmt.Errorf("getMyIndexes: %s is not a registered oracle: %w", caller, ErrUnauthorized)
			return
		}
		out = o.Indexes
	})
	return out, err
}

// FetchFlightStatus opens a status request for a registered flight with three
// freshly drawn open indexes. Only oracles holding one of them may answer. If
// a request for the key already exists, open or finalized, it is returned
// unchanged.
func (s *Surety) FetchFlightStatus(caller models.Address, key models.FlightKey) (models.StatusRequest, error) {
	var out models.StatusRequest
	err := s.mutate("fetchFlightStatus", caller, func(tx *txn) error {
		if s.flights.get(key) == nil {
			return fmt.Errorf("fetchFlightStatus: %s: %w", key, ErrFlightNotFound)
		}
		if req, ok := s.oracles.requests[key]; ok {
			out = cloneRequest(req)
			return nil
		}

		indexes, err := drawIndexes(s.entropy)
		if err != nil {
			return fmt.Errorf("fetchFlightStatus: %w", err)
		}
		req := &models.StatusRequest{
			ID:        uuid.New(),
			Key:       key,
			Indexes:   indexes,
			Requester: caller,
			OpenedAt:  tx.now,
			Responses: make(map[uint8]map[models.FlightStatus][]models.Address),
		}
		s.oracles.requests[key] = req
		out = cloneRequest(req)
		tx.emit(models.EventOracleRequest, func(e *models.Event) {
			e.Subject = key.Airline
			e.Flight = &req.Key
			e.Indexes = indexes[:]
			e.Detail = req.ID.String()
		})
		slog.Info("Oracle request opened", "flight", key.String(), "indexes", indexes, "request_id", req.ID)
		return nil
	})
	return out, err
}

// SubmitOracleResponse records the caller's status report under index. The
// index must be both open on the request and assigned to the caller. When
// MinResponses distinct oracles agree on a status other than Unknown the
// request finalizes: the flight takes that status and policies are credited.
// Responses after finalization are accepted but have no effect.
func (s *Surety) SubmitOracleResponse(caller models.Address, index uint8, key models.FlightKey, status models.FlightStatus) error {
	return s.mutate("submitOracleResponse", caller, func(tx *txn) error {
		if _, err := models.ParseFlightStatus(int(status)); err != nil {
			return fmt.Errorf("submitOracleResponse: %v: %w", err, ErrInvalidArgument)
		}
		req, ok := s.oracles.requests[key]
		if !ok || !req.Indexes.Contains(index) {
			return fmt.Errorf("submitOracleResponse: index %d not open for %s: %w", index, key, ErrIndexMismatch)
		}
		o, ok := s.oracles.oracles[caller]
		if !ok || !o.Indexes.Contains(index) {
			return fmt.Errorf("submitOracleResponse: index %d not assigned to %s: %w", index, caller, ErrIndexMismatch)
		}

		record(req, index, status, caller)
		if req.Finalized {
			return nil
		}
		tx.emit(models.EventOracleReport, func(e *models.Event) {
			e.Subject = caller
			e.Flight = &req.Key
			e.Indexes = []uint8{index}
			e.Status = status
		})

		// Unknown is recorded but is never a verdict
		if !status.IsFinal() || agreeing(req, status) < models.MinResponses {
			return nil
		}
		s.finalize(tx, req, status)
		return nil
	})
}

// finalize closes the request, writes the flight status and credits insurees
func (s *Surety) finalize(tx *txn, req *models.StatusRequest, status models.FlightStatus) {
	req.Finalized = true
	req.FinalStatus = status
	req.FinalizedAt = tx.now

	s.flights.setStatus(req.Key, status, tx.now)
	tx.emit(models.EventFlightStatusInfo, func(e *models.Event) {
		e.Subject = req.Key.Airline
		e.Flight = &req.Key
		e.Status = status
	})
	slog.Info("Flight status finalized", "flight", req.Key.String(), "status", status.String())

	s.ledger.creditInsurees(tx, req.Key, status)
}

// Request returns a copy of the status request for key
func (s *Surety) Request(key models.FlightKey) (models.StatusRequest, bool) {
	var out models.StatusRequest
	var ok bool
	s.view(func() {
		if req, found := s.oracles.requests[key]; found {
			out, ok = cloneRequest(req), true
		}
	})
	return out, ok
}

func cloneRequest(req *models.StatusRequest) models.StatusRequest {
	out := *req
	out.Responses = make(map[uint8]map[models.FlightStatus][]models.Address, len(req.Responses))
	for idx, byStatus := range req.Responses {
		m := make(map[models.FlightStatus][]models.Address, len(byStatus))
		for st, oracles := range byStatus {
			m[st] = append([]models.Address(nil), oracles...)
		}
		out.Responses[idx] = m
	}
	return out
}
