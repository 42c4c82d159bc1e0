package models

import (
	"time"

	"github.com/google/uuid"
)

// OracleIndexes is the fixed set of capability indexes assigned to an oracle
// or opened by a status request
type OracleIndexes [OracleIndexCount]uint8

// Contains reports whether idx is one of the indexes
func (o OracleIndexes) Contains(idx uint8) bool {
	for _, v := range o {
		if v == idx {
			return true
		}
	}
	return false
}

// Oracle is a registered status reporter
type Oracle struct {
	Address      Address
	Indexes      OracleIndexes
	RegisteredAt time.Time
}

// StatusRequest aggregates oracle responses for one flight key
type StatusRequest struct {
	ID        uuid.UUID
	Key       FlightKey
	Indexes   OracleIndexes
	Requester Address
	OpenedAt  time.Time

	// Responses maps index -> status -> oracles that reported it under that index
	Responses map[uint8]map[FlightStatus][]Address

	Finalized   bool
	FinalStatus FlightStatus
	FinalizedAt time.Time
}

// IsOpen reports whether the request still accepts responses that can finalize it
func (r *StatusRequest) IsOpen() bool {
	return r != nil && !r.Finalized
}
