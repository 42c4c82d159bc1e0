package models

import (
	"fmt"
)

// FlightStatus is the status code reported by oracles for a flight
type FlightStatus uint8

// Flight status codes
const (
	StatusUnknown       FlightStatus = 0
	StatusOnTime        FlightStatus = 10
	StatusLateAirline   FlightStatus = 20
	StatusLateWeather   FlightStatus = 30
	StatusLateTechnical FlightStatus = 40
	StatusLateOther     FlightStatus = 50
)

// Oracle index constants
const (
	// OracleIndexRange is the exclusive upper bound of capability indexes (0-9)
	OracleIndexRange = 10

	// OracleIndexCount is the number of indexes held by an oracle and opened by a request
	OracleIndexCount = 3

	// MinResponses is the number of distinct oracles that must agree on a status
	MinResponses = 3
)

// ParseFlightStatus validates a raw status code
func ParseFlightStatus(code int) (FlightStatus, error) {
	if code < 0 || code > 255 {
		return StatusUnknown, fmt.Errorf("unknown flight status code: %d", code)
	}
	switch s := FlightStatus(code); s {
	case StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return s, nil
	}
	return StatusUnknown, fmt.Errorf("unknown flight status code: %d", code)
}

// String returns a human readable status name
func (s FlightStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOnTime:
		return "on_time"
	case StatusLateAirline:
		return "late_airline"
	case StatusLateWeather:
		return "late_weather"
	case StatusLateTechnical:
		return "late_technical"
	case StatusLateOther:
		return "late_other"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// IsFinal reports whether the status is a consensus outcome rather than the initial Unknown
func (s FlightStatus) IsFinal() bool {
	return s != StatusUnknown
}
