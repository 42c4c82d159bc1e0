package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a committed state transition
type EventType string

// Event types
const (
	EventOperatingStatusChanged EventType = "operating_status_changed"
	EventCallerAuthorized       EventType = "caller_authorized"
	EventAirlineRegistered      EventType = "airline_registered"
	EventAirlineQueued          EventType = "airline_queued"
	EventAirlineVoted           EventType = "airline_voted"
	EventAirlineFunded          EventType = "airline_funded"
	EventFlightRegistered       EventType = "flight_registered"
	EventOracleRegistered       EventType = "oracle_registered"
	EventOracleRequest          EventType = "oracle_request"
	EventOracleReport           EventType = "oracle_report"
	EventFlightStatusInfo       EventType = "flight_status_info"
	EventInsuranceBought        EventType = "insurance_bought"
	EventInsureeCredited        EventType = "insuree_credited"
	EventInsureePaid            EventType = "insuree_paid"
)

// Event describes a committed state transition. Fields that do not apply
// to a given type are left zero.
type Event struct {
	ID        uuid.UUID
	Type      EventType
	Timestamp time.Time
	Actor     Address    // caller that triggered the transition
	Subject   Address    // airline, oracle or passenger the event is about
	Flight    *FlightKey // set for flight scoped events
	Indexes   []uint8    // oracle indexes (registration, request)
	Status    FlightStatus
	Amount    string // decimal amount, empty when not monetary
	Detail    string
}

// NewEvent creates an event with a fresh ID and the given timestamp
func NewEvent(typ EventType, ts time.Time, actor Address) Event {
	return Event{
		ID:        uuid.New(),
		Type:      typ,
		Timestamp: ts,
		Actor:     actor,
	}
}
