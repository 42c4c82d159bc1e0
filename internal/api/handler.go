package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flight_surety/internal/database"
	"flight_surety/internal/models"
	"flight_surety/internal/surety"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CallerHeader carries the address on whose behalf a request is made
const CallerHeader = "X-Caller"

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// BalanceReader reports settled payout balances
type BalanceReader interface {
	Balance(addr models.Address) decimal.Decimal
}

// Handler serves the ledger operations over HTTP
type Handler struct {
	surety  *surety.Surety
	events  database.EventRepository
	wallets BalanceReader
	started time.Time
}

// NewHandler creates a new handler. events and wallets may be nil.
func NewHandler(s *surety.Surety, events database.EventRepository, wallets BalanceReader) *Handler {
	return &Handler{
		surety:  s,
		events:  events,
		wallets: wallets,
		started: time.Now(),
	}
}

func caller(r *http.Request) models.Address {
	return models.NormalizeAddress(r.Header.Get(CallerHeader))
}

func pathAddress(r *http.Request) models.Address {
	return models.NormalizeAddress(chi.URLParam(r, "address"))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %v: %w", err, surety.ErrInvalidArgument))
		return false
	}
	return true
}

// GetHealth reports liveness and the operating mode
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"operational": h.surety.IsOperational(),
		"uptime":      time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) GetParams(w http.ResponseWriter, r *http.Request) {
	p := h.surety.Params()
	writeJSON(w, http.StatusOK, paramsResponse{
		Owner:           string(p.Owner),
		MinimumFunds:    p.MinimumFunds,
		RegistrationFee: p.RegistrationFee,
		MaxInsurance:    p.MaxInsurance,
		Treasury:        h.surety.Treasury(),
	})
}

func (h *Handler) GetOperational(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, operationalRequest{Operational: h.surety.IsOperational()})
}

func (h *Handler) SetOperational(w http.ResponseWriter, r *http.Request) {
	var req operationalRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.surety.SetOperatingStatus(caller(r), req.Operational); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, operationalRequest{Operational: h.surety.IsOperational()})
}

func (h *Handler) GetCaller(w http.ResponseWriter, r *http.Request) {
	addr := pathAddress(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"address":    addr,
		"authorized": h.surety.IsAuthorized(addr),
	})
}

func (h *Handler) AuthorizeCaller(w http.ResponseWriter, r *http.Request) {
	addr := pathAddress(r)
	if err := h.surety.AuthorizeCaller(caller(r), addr); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "authorized": true})
}

func (h *Handler) GetAirlinesCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": h.surety.AirlinesCount()})
}

func (h *Handler) GetAirline(w http.ResponseWriter, r *http.Request) {
	a, ok := h.surety.Airline(pathAddress(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "airline not found"})
		return
	}
	writeJSON(w, http.StatusOK, newAirlineResponse(a))
}

func (h *Handler) RegisterAirline(w http.ResponseWriter, r *http.Request) {
	var req registerAirlineRequest
	if !decode(w, r, &req) {
		return
	}
	candidate := models.NormalizeAddress(req.Address)
	if err := h.surety.RegisterAirline(caller(r), candidate, req.Name); err != nil {
		writeError(w, err)
		return
	}
	h.writeAirline(w, candidate, http.StatusCreated)
}

func (h *Handler) VoteAirline(w http.ResponseWriter, r *http.Request) {
	candidate := pathAddress(r)
	if err := h.surety.SubmitAirlineVote(caller(r), candidate); err != nil {
		writeError(w, err)
		return
	}
	h.writeAirline(w, candidate, http.StatusOK)
}

func (h *Handler) FundAirline(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	c := caller(r)
	if err := h.surety.Fund(c, req.Value); err != nil {
		writeError(w, err)
		return
	}
	h.writeAirline(w, c, http.StatusOK)
}

func (h *Handler) writeAirline(w http.ResponseWriter, addr models.Address, status int) {
	a, _ := h.surety.Airline(addr)
	writeJSON(w, status, newAirlineResponse(a))
}

func (h *Handler) RegisterFlight(w http.ResponseWriter, r *http.Request) {
	var req registerFlightRequest
	if !decode(w, r, &req) {
		return
	}
	c := caller(r)
	code := strings.TrimSpace(req.Flight)
	if err := h.surety.RegisterFlight(c, code, req.Timestamp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newFlightKeyResponse(models.FlightKey{Airline: c, Code: code, Timestamp: req.Timestamp}))
}

// GetFlightStatus resolves the latest flight with the code, optionally
// restricted to the airline query parameter
func (h *Handler) GetFlightStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	status, err := h.surety.ViewFlightStatus(code, models.NormalizeAddress(r.URL.Query().Get("airline")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Flight: code, Status: int(status), Label: status.String()})
}

func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("timestamp: %v: %w", err, surety.ErrInvalidArgument))
		return
	}
	key := flightKeyRequest{Airline: chi.URLParam(r, "address"), Flight: chi.URLParam(r, "code"), Timestamp: ts}.key()
	f, ok := h.surety.Flight(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "flight not found"})
		return
	}
	writeJSON(w, http.StatusOK, flightResponse{
		Flight:       newFlightKeyResponse(f.Key),
		Status:       int(f.Status),
		Label:        f.Status.String(),
		RegisteredAt: f.RegisteredAt,
		UpdatedAt:    f.UpdatedAt,
	})
}

func (h *Handler) FetchFlightStatus(w http.ResponseWriter, r *http.Request) {
	var req flightKeyRequest
	if !decode(w, r, &req) {
		return
	}
	sr, err := h.surety.FetchFlightStatus(caller(r), req.key())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newStatusRequestResponse(sr))
}

func (h *Handler) GetStatusRequest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ts, err := strconv.ParseInt(q.Get("timestamp"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("timestamp: %v: %w", err, surety.ErrInvalidArgument))
		return
	}
	key := flightKeyRequest{Airline: q.Get("airline"), Flight: q.Get("flight"), Timestamp: ts}.key()
	sr, ok := h.surety.Request(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "status request not found"})
		return
	}
	writeJSON(w, http.StatusOK, newStatusRequestResponse(sr))
}

func (h *Handler) RegisterOracle(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	idx, err := h.surety.RegisterOracle(caller(r), req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, indexesResponse{Indexes: idx[:]})
}

func (h *Handler) GetOracleIndexes(w http.ResponseWriter, r *http.Request) {
	idx, err := h.surety.GetMyIndexes(caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indexesResponse{Indexes: idx[:]})
}

func (h *Handler) SubmitOracleResponse(w http.ResponseWriter, r *http.Request) {
	var req oracleResponseRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Index < 0 || req.Index >= models.OracleIndexRange {
		writeError(w, fmt.Errorf("index %d out of range: %w", req.Index, surety.ErrIndexMismatch))
		return
	}
	status, err := models.ParseFlightStatus(req.Status)
	if err != nil {
		writeError(w, fmt.Errorf("%v: %w", err, surety.ErrInvalidArgument))
		return
	}
	key := req.key()
	if err := h.surety.SubmitOracleResponse(caller(r), uint8(req.Index), key, status); err != nil {
		writeError(w, err)
		return
	}
	sr, _ := h.surety.Request(key)
	writeJSON(w, http.StatusOK, newStatusRequestResponse(sr))
}

func (h *Handler) BuyInsurance(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.surety.Buy(caller(r), req.Flight, req.Value); err != nil {
		writeError(w, err)
		return
	}
	h.writePassenger(w, caller(r), http.StatusCreated)
}

func (h *Handler) GetPayableCredit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, amountResponse{Amount: h.surety.GetPayableCredit(caller(r))})
}

// PayInsuree pays out the credit of the passenger in the body, or of the
// caller when none is given
func (h *Handler) PayInsuree(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("invalid request body: %v: %w", err, surety.ErrInvalidArgument))
		return
	}
	c := caller(r)
	passenger := models.NormalizeAddress(req.Passenger)
	if passenger.IsZero() {
		passenger = c
	}
	paid, err := h.surety.Pay(r.Context(), c, passenger)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: paid})
}

func (h *Handler) GetPassenger(w http.ResponseWriter, r *http.Request) {
	h.writePassenger(w, pathAddress(r), http.StatusOK)
}

func (h *Handler) writePassenger(w http.ResponseWriter, addr models.Address, status int) {
	policies := h.surety.Policies(addr)
	out := passengerResponse{
		Address:  string(addr),
		Existing: h.surety.IsExistingPassenger(addr),
		Policies: make([]policyResponse, 0, len(policies)),
	}
	for _, p := range policies {
		out.Policies = append(out.Policies, policyResponse{
			Flight:   newFlightKeyResponse(p.Flight),
			Paid:     p.Paid,
			Credit:   p.Credit,
			Credited: p.Credited,
			BoughtAt: p.BoughtAt,
		})
	}
	writeJSON(w, status, out)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	if h.wallets == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "wallets not available"})
		return
	}
	addr := pathAddress(r)
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "balance": h.wallets.Balance(addr)})
}

// GetEvents returns the most recent journaled events, newest first
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "event journal not available"})
		return
	}
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxEventLimit {
			limit = n
		}
	}
	events, err := h.events.Recent(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list events"})
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, newEventResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}
