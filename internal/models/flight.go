package models

import (
	"fmt"
	"time"
)

// FlightKey identifies a flight: operating airline, flight code and departure time
type FlightKey struct {
	Airline   Address
	Code      string
	Timestamp int64 // departure, unix seconds
}

// String returns a stable textual form of the key, used for persistence and logs
func (k FlightKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Airline, k.Code, k.Timestamp)
}

// Departure returns the departure time in UTC
func (k FlightKey) Departure() time.Time {
	return time.Unix(k.Timestamp, 0).UTC()
}

// Flight represents a registered flight
type Flight struct {
	Key          FlightKey
	Status       FlightStatus
	RegisteredAt time.Time
	UpdatedAt    time.Time
	Seq          uint64 // registration order, used to resolve a bare flight code
}
