package api

import (
	"strings"
	"time"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
)

type operationalRequest struct {
	Operational bool `json:"operational"`
}

type registerAirlineRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// valueRequest carries a payment; decimal.Decimal decodes from a JSON string or number
type valueRequest struct {
	Value decimal.Decimal `json:"value"`
}

type registerFlightRequest struct {
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
}

type flightKeyRequest struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
}

func (r flightKeyRequest) key() models.FlightKey {
	return models.FlightKey{
		Airline:   models.NormalizeAddress(r.Airline),
		Code:      strings.TrimSpace(r.Flight),
		Timestamp: r.Timestamp,
	}
}

type oracleResponseRequest struct {
	flightKeyRequest
	Index  int `json:"index"`
	Status int `json:"status"`
}

type buyRequest struct {
	Flight string          `json:"flight"`
	Value  decimal.Decimal `json:"value"`
}

type payRequest struct {
	Passenger string `json:"passenger"`
}

type airlineResponse struct {
	Address    string   `json:"address"`
	Name       string   `json:"name"`
	State      string   `json:"state"`
	Registered bool     `json:"registered"`
	Funded     bool     `json:"funded"`
	Votes      []string `json:"votes"`
}

func newAirlineResponse(a models.Airline) airlineResponse {
	votes := make([]string, len(a.Votes))
	for i, v := range a.Votes {
		votes[i] = string(v)
	}
	return airlineResponse{
		Address:    string(a.Address),
		Name:       a.Name,
		State:      string(a.State),
		Registered: a.IsRegistered(),
		Funded:     a.Funded,
		Votes:      votes,
	}
}

type flightKeyResponse struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
}

func newFlightKeyResponse(k models.FlightKey) flightKeyResponse {
	return flightKeyResponse{Airline: string(k.Airline), Flight: k.Code, Timestamp: k.Timestamp}
}

type statusResponse struct {
	Flight string `json:"flight"`
	Status int    `json:"status"`
	Label  string `json:"label"`
}

type flightResponse struct {
	Flight       flightKeyResponse `json:"flight"`
	Status       int               `json:"status"`
	Label        string            `json:"label"`
	RegisteredAt time.Time         `json:"registered_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type statusRequestResponse struct {
	ID          string            `json:"id"`
	Flight      flightKeyResponse `json:"flight"`
	Indexes     []uint8           `json:"indexes"`
	Requester   string            `json:"requester"`
	OpenedAt    time.Time         `json:"opened_at"`
	Finalized   bool              `json:"finalized"`
	FinalStatus *int              `json:"final_status,omitempty"`
}

func newStatusRequestResponse(r models.StatusRequest) statusRequestResponse {
	out := statusRequestResponse{
		ID:        r.ID.String(),
		Flight:    newFlightKeyResponse(r.Key),
		Indexes:   r.Indexes[:],
		Requester: string(r.Requester),
		OpenedAt:  r.OpenedAt,
		Finalized: r.Finalized,
	}
	if r.Finalized {
		status := int(r.FinalStatus)
		out.FinalStatus = &status
	}
	return out
}

type indexesResponse struct {
	Indexes []uint8 `json:"indexes"`
}

type amountResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

type policyResponse struct {
	Flight   flightKeyResponse `json:"flight"`
	Paid     decimal.Decimal   `json:"paid"`
	Credit   decimal.Decimal   `json:"credit"`
	Credited bool              `json:"credited"`
	BoughtAt time.Time         `json:"bought_at"`
}

type passengerResponse struct {
	Address  string           `json:"address"`
	Existing bool             `json:"existing"`
	Policies []policyResponse `json:"policies"`
}

type eventResponse struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Actor     string             `json:"actor"`
	Subject   string             `json:"subject,omitempty"`
	Flight    *flightKeyResponse `json:"flight,omitempty"`
	Indexes   []uint8            `json:"indexes,omitempty"`
	Status    int                `json:"status"`
	Amount    string             `json:"amount,omitempty"`
	Detail    string             `json:"detail,omitempty"`
}

func newEventResponse(e models.Event) eventResponse {
	out := eventResponse{
		ID:        e.ID.String(),
		Type:      string(e.Type),
		Timestamp: e.Timestamp,
		Actor:     string(e.Actor),
		Subject:   string(e.Subject),
		Indexes:   e.Indexes,
		Status:    int(e.Status),
		Amount:    e.Amount,
		Detail:    e.Detail,
	}
	if e.Flight != nil {
		k := newFlightKeyResponse(*e.Flight)
		out.Flight = &k
	}
	return out
}

type paramsResponse struct {
	Owner           string          `json:"owner"`
	MinimumFunds    decimal.Decimal `json:"minimum_funds"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
	MaxInsurance    decimal.Decimal `json:"max_insurance"`
	Treasury        decimal.Decimal `json:"treasury"`
}
